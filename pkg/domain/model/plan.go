package model

import (
	"slices"
	"time"

	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// ActionPlan is an admin-authored broadcast addressed to a set of users.
type ActionPlan struct {
	ID          types.PlanID
	Title       string
	Description Payload
	UserIDs     []types.UserID
	CreatedBy   types.UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Targets reports whether the plan is addressed to userID.
func (p *ActionPlan) Targets(userID types.UserID) bool {
	return slices.Contains(p.UserIDs, userID)
}

func (p *ActionPlan) Clone() *ActionPlan {
	if p == nil {
		return nil
	}
	c := *p
	c.Description = p.Description.Clone()
	c.UserIDs = slices.Clone(p.UserIDs)
	return &c
}

// UniqueUserIDs drops duplicates while keeping first-seen order.
func UniqueUserIDs(ids []types.UserID) []types.UserID {
	seen := make(map[types.UserID]struct{}, len(ids))
	out := make([]types.UserID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
