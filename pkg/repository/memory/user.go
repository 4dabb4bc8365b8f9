package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[types.UserID]*model.User
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[types.UserID]*model.User),
	}
}

// countActive must be called with mu held
func (r *userRepository) countActive() int {
	n := 0
	for _, u := range r.users {
		if u.IsActive {
			n++
		}
	}
	return n
}

// usernameTaken must be called with mu held
func (r *userRepository) usernameTaken(username string, except types.UserID) bool {
	for _, u := range r.users {
		if u.Username == username && u.ID != except {
			return true
		}
	}
	return false
}

func (r *userRepository) Create(ctx context.Context, user *model.User, maxActive int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.IsActive && maxActive > 0 && r.countActive() >= maxActive {
		return nil, goerr.Wrap(interfaces.ErrUserLimitReached, "cannot create user",
			goerr.V("max_active", maxActive))
	}
	if r.usernameTaken(user.Username, "") {
		return nil, goerr.Wrap(interfaces.ErrDuplicateUsername, "cannot create user",
			goerr.V("username", user.Username))
	}

	created := user.Clone()
	if created.ID == "" {
		created.ID = types.NewUserID()
	}
	if _, exists := r.users[created.ID]; exists {
		return nil, goerr.New("user ID already exists", goerr.V("id", created.ID))
	}

	r.users[created.ID] = created
	return created.Clone(), nil
}

func (r *userRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	return u.Clone(), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return u.Clone(), nil
		}
	}
	return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("username", username))
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u.Clone())
	}
	slices.SortFunc(users, func(a, b *model.User) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return users, nil
}

func (r *userRepository) GetMany(ctx context.Context, ids []types.UserID) (map[types.UserID]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[types.UserID]*model.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			result[id] = u.Clone()
		}
	}
	return result, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User, maxActive int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", user.ID))
	}
	if user.IsActive && !existing.IsActive && maxActive > 0 && r.countActive() >= maxActive {
		return nil, goerr.Wrap(interfaces.ErrUserLimitReached, "cannot activate user",
			goerr.V("id", user.ID), goerr.V("max_active", maxActive))
	}
	if user.Username != existing.Username && r.usernameTaken(user.Username, user.ID) {
		return nil, goerr.Wrap(interfaces.ErrDuplicateUsername, "cannot rename user",
			goerr.V("username", user.Username))
	}

	updated := user.Clone()
	updated.CreatedAt = existing.CreatedAt
	r.users[updated.ID] = updated
	return updated.Clone(), nil
}

func (r *userRepository) Delete(ctx context.Context, id types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	delete(r.users, id)
	return nil
}

func (r *userRepository) CountActive(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countActive(), nil
}
