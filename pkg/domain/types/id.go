package types

import "github.com/google/uuid"

type (
	// UserID identifies a user account
	UserID string
	// ActionID identifies an action record
	ActionID string
	// PlanID identifies an action plan
	PlanID string
	// TokenID is the unique id (jti) of an issued access token
	TokenID string
)

func NewUserID() UserID {
	return UserID(uuid.NewString())
}

func NewActionID() ActionID {
	return ActionID(uuid.NewString())
}

func NewPlanID() PlanID {
	return PlanID(uuid.NewString())
}

func NewTokenID() TokenID {
	return TokenID(uuid.NewString())
}

func (x UserID) String() string   { return string(x) }
func (x ActionID) String() string { return string(x) }
func (x PlanID) String() string   { return string(x) }
func (x TokenID) String() string  { return string(x) }
