package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

func newUser(name string, active bool, createdAt time.Time) *model.User {
	return &model.User{
		Username:     name,
		PasswordHash: "hash-" + name,
		Role:         types.RoleUser,
		IsActive:     active,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func runUserRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Create assigns ID and Get returns it", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.User().Create(ctx, newUser("alice", true, ts(2025, 1, 1)), 30)
		gt.NoError(t, err).Required()
		gt.String(t, created.ID.String()).NotEqual("")

		got, err := repo.User().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Username).Equal("alice")
		gt.Value(t, got.PasswordHash).Equal("hash-alice")
		gt.Value(t, got.Role).Equal(types.RoleUser)
		gt.Bool(t, got.IsActive).True()

		byName, err := repo.User().GetByUsername(ctx, "alice")
		gt.NoError(t, err).Required()
		gt.Value(t, byName.ID).Equal(created.ID)
	})

	t.Run("Get returns ErrNotFound for unknown user", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.User().Get(context.Background(), types.NewUserID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		_, err = repo.User().GetByUsername(context.Background(), "nobody")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Create rejects duplicate username", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.User().Create(ctx, newUser("bob", true, ts(2025, 1, 1)), 30)
		gt.NoError(t, err).Required()
		_, err = repo.User().Create(ctx, newUser("bob", false, ts(2025, 1, 2)), 30)
		gt.Error(t, err).Is(interfaces.ErrDuplicateUsername)
	})

	t.Run("Create enforces active cap but allows inactive users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := range 3 {
			_, err := repo.User().Create(ctx, newUser(fmt.Sprintf("u%d", i), true, ts(2025, 1, i+1)), 3)
			gt.NoError(t, err).Required()
		}

		_, err := repo.User().Create(ctx, newUser("overflow", true, ts(2025, 2, 1)), 3)
		gt.Error(t, err).Is(interfaces.ErrUserLimitReached)

		_, err = repo.User().Create(ctx, newUser("dormant", false, ts(2025, 2, 1)), 3)
		gt.NoError(t, err).Required()

		n, err := repo.User().CountActive(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, n).Equal(3)
	})

	t.Run("concurrent creates never exceed the cap", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		const limit = 5

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := range 12 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.User().Create(ctx, newUser(fmt.Sprintf("race%d", i), true, ts(2025, 3, 1)), limit)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		n, err := repo.User().CountActive(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, n).Equal(succeeded)
		gt.Bool(t, n <= limit).True()
	})

	t.Run("Update re-checks the cap on reactivation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.User().Create(ctx, newUser("a", true, ts(2025, 1, 1)), 1)
		gt.NoError(t, err).Required()
		dormant, err := repo.User().Create(ctx, newUser("b", false, ts(2025, 1, 2)), 1)
		gt.NoError(t, err).Required()

		dormant.IsActive = true
		_, err = repo.User().Update(ctx, dormant, 1)
		gt.Error(t, err).Is(interfaces.ErrUserLimitReached)

		dormant.IsActive = false
		dormant.Role = types.RoleAdmin
		updated, err := repo.User().Update(ctx, dormant, 1)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Role).Equal(types.RoleAdmin)
	})

	t.Run("Update keeps usernames unique and frees the old name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		carol, err := repo.User().Create(ctx, newUser("carol", true, ts(2025, 1, 1)), 30)
		gt.NoError(t, err).Required()
		_, err = repo.User().Create(ctx, newUser("dave", true, ts(2025, 1, 2)), 30)
		gt.NoError(t, err).Required()

		carol.Username = "dave"
		_, err = repo.User().Update(ctx, carol, 30)
		gt.Error(t, err).Is(interfaces.ErrDuplicateUsername)

		carol.Username = "caroline"
		_, err = repo.User().Update(ctx, carol, 30)
		gt.NoError(t, err).Required()

		_, err = repo.User().Create(ctx, newUser("carol", true, ts(2025, 1, 3)), 30)
		gt.NoError(t, err).Required()
	})

	t.Run("List is newest first and GetMany skips missing ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		older, err := repo.User().Create(ctx, newUser("older", true, ts(2024, 5, 1)), 30)
		gt.NoError(t, err).Required()
		newer, err := repo.User().Create(ctx, newUser("newer", true, ts(2025, 5, 1)), 30)
		gt.NoError(t, err).Required()

		users, err := repo.User().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, users).Length(2)
		gt.Value(t, users[0].ID).Equal(newer.ID)
		gt.Value(t, users[1].ID).Equal(older.ID)

		found, err := repo.User().GetMany(ctx, []types.UserID{older.ID, types.NewUserID()})
		gt.NoError(t, err).Required()
		gt.Value(t, len(found)).Equal(1)
		gt.Value(t, found[older.ID].Username).Equal("older")
	})

	t.Run("Delete removes user and frees username", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		u, err := repo.User().Create(ctx, newUser("erin", true, ts(2025, 1, 1)), 30)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.User().Delete(ctx, u.ID)).Required()

		_, err = repo.User().Get(ctx, u.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
		gt.Error(t, repo.User().Delete(ctx, u.ID)).Is(interfaces.ErrNotFound)

		_, err = repo.User().Create(ctx, newUser("erin", true, ts(2025, 1, 2)), 30)
		gt.NoError(t, err).Required()
	})
}
