package model

import (
	"time"

	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// ActionRecord is a user-owned free-form JSON entry. It is mutable only
// during the calendar year of CreatedAt.
type ActionRecord struct {
	ID        types.ActionID
	OwnerID   types.UserID
	Data      Payload
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the record.
func (a *ActionRecord) Clone() *ActionRecord {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = a.Data.Clone()
	return &c
}

// PublicAction is the redacted projection of an ActionRecord exposed to
// unauthenticated callers.
type PublicAction struct {
	ID        types.ActionID   `json:"id"`
	Data      PublicActionData `json:"data"`
	CreatedAt time.Time        `json:"createdAt"`
}

type PublicActionData struct {
	Title    any `json:"title"`
	Category any `json:"category"`
	Priority any `json:"priority"`
}

// UntitledAction is the title shown when a record carries no title.
const UntitledAction = "Untitled Action"

// Redact projects the record to the public feed shape. Only title, category
// and priority survive; every other payload field is dropped.
func (a *ActionRecord) Redact() PublicAction {
	fields := a.Data.Fields("title", "category", "priority")
	title, ok := fields["title"]
	if !ok {
		title = UntitledAction
	}
	category := fields["category"]
	priority := fields["priority"]

	return PublicAction{
		ID: a.ID,
		Data: PublicActionData{
			Title:    title,
			Category: category,
			Priority: priority,
		},
		CreatedAt: a.CreatedAt,
	}
}
