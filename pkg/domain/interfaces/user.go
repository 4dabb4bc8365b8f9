package interfaces

import (
	"context"

	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// UserRepository defines the interface for the user directory
type UserRepository interface {
	// Create stores a new user. When the user is active, the active-user count
	// check against maxActive and the username uniqueness check are atomic with
	// the insert. Returns ErrUserLimitReached or ErrDuplicateUsername.
	Create(ctx context.Context, user *model.User, maxActive int) (*model.User, error)

	Get(ctx context.Context, id types.UserID) (*model.User, error)

	// GetByUsername looks up by the normalized username
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// List returns every user, newest first
	List(ctx context.Context) ([]*model.User, error)

	// GetMany returns the users that exist among ids, keyed by id
	GetMany(ctx context.Context, ids []types.UserID) (map[types.UserID]*model.User, error)

	// Update replaces a stored user. Renames keep usernames unique and an
	// inactive-to-active transition re-checks maxActive atomically.
	Update(ctx context.Context, user *model.User, maxActive int) (*model.User, error)

	Delete(ctx context.Context, id types.UserID) error

	CountActive(ctx context.Context) (int, error)
}
