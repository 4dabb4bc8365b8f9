package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// ActionFilter narrows action listings. Zero values mean "any".
// CreatedFrom is inclusive, CreatedBefore exclusive.
type ActionFilter struct {
	OwnerID       types.UserID
	CreatedFrom   time.Time
	CreatedBefore time.Time
}

// Match reports whether a record satisfies the filter.
func (f ActionFilter) Match(a *model.ActionRecord) bool {
	if f.OwnerID != "" && a.OwnerID != f.OwnerID {
		return false
	}
	if !f.CreatedFrom.IsZero() && a.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !a.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

// ActionRepository defines the interface for action record data access
type ActionRepository interface {
	// Create stores a record, assigning an ID when empty
	Create(ctx context.Context, action *model.ActionRecord) (*model.ActionRecord, error)

	Get(ctx context.Context, id types.ActionID) (*model.ActionRecord, error)

	// List returns matching records ordered by CreatedAt descending
	List(ctx context.Context, filter ActionFilter, page Page) ([]*model.ActionRecord, error)

	Count(ctx context.Context, filter ActionFilter) (int, error)

	// Update replaces Data and UpdatedAt. CreatedAt and OwnerID are never changed.
	Update(ctx context.Context, action *model.ActionRecord) (*model.ActionRecord, error)

	Delete(ctx context.Context, id types.ActionID) error

	// DeleteByOwner removes every record owned by ownerID and returns the count
	DeleteByOwner(ctx context.Context, ownerID types.UserID) (int, error)
}
