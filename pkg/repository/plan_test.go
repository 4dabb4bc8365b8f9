package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

func runActionPlanRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	create := func(t *testing.T, repo interfaces.Repository, title string, at time.Time, users ...types.UserID) *model.ActionPlan {
		t.Helper()
		p, err := repo.ActionPlan().Create(context.Background(), &model.ActionPlan{
			Title:       title,
			Description: model.MustPayload("do the thing"),
			UserIDs:     users,
			CreatedBy:   "admin-1",
			CreatedAt:   at,
			UpdatedAt:   at,
		})
		gt.NoError(t, err).Required()
		return p
	}

	t.Run("Create and Get", func(t *testing.T) {
		repo := newRepo(t)
		p := create(t, repo, "Plan A", ts(2025, 1, 1), "u1", "u2")

		got, err := repo.ActionPlan().Get(context.Background(), p.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Plan A")
		gt.Value(t, got.UserIDs).Equal([]types.UserID{"u1", "u2"})
		gt.Value(t, got.CreatedBy).Equal(types.UserID("admin-1"))
		gt.Value(t, string(got.Description)).Equal(`"do the thing"`)

		_, err = repo.ActionPlan().Get(context.Background(), types.NewPlanID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("List, Count and ListByUser are newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		p1 := create(t, repo, "old", ts(2024, 1, 1), "u1")
		p2 := create(t, repo, "mid", ts(2025, 1, 1), "u2")
		p3 := create(t, repo, "new", ts(2025, 6, 1), "u1", "u2")

		plans, err := repo.ActionPlan().List(ctx, interfaces.Page{Limit: 2})
		gt.NoError(t, err).Required()
		gt.Array(t, plans).Length(2)
		gt.Value(t, plans[0].ID).Equal(p3.ID)
		gt.Value(t, plans[1].ID).Equal(p2.ID)

		n, err := repo.ActionPlan().Count(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, n).Equal(3)

		mine, err := repo.ActionPlan().ListByUser(ctx, "u1")
		gt.NoError(t, err).Required()
		gt.Array(t, mine).Length(2)
		gt.Value(t, mine[0].ID).Equal(p3.ID)
		gt.Value(t, mine[1].ID).Equal(p1.ID)

		none, err := repo.ActionPlan().ListByUser(ctx, "u9")
		gt.NoError(t, err).Required()
		gt.Array(t, none).Length(0)
	})

	t.Run("Update and Delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		p := create(t, repo, "draft", ts(2025, 1, 1), "u1")

		p.Title = "final"
		p.UserIDs = []types.UserID{"u3"}
		p.UpdatedAt = ts(2025, 2, 1)
		updated, err := repo.ActionPlan().Update(ctx, p)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Title).Equal("final")
		gt.Value(t, updated.UserIDs).Equal([]types.UserID{"u3"})
		gt.Bool(t, updated.CreatedAt.Equal(ts(2025, 1, 1))).True()

		gt.NoError(t, repo.ActionPlan().Delete(ctx, p.ID)).Required()
		gt.Error(t, repo.ActionPlan().Delete(ctx, p.ID)).Is(interfaces.ErrNotFound)

		_, err = repo.ActionPlan().Update(ctx, p)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}
