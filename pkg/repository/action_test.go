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

func runActionRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	create := func(t *testing.T, repo interfaces.Repository, owner types.UserID, title string, y int, m int) *model.ActionRecord {
		t.Helper()
		at := ts(y, time.Month(m), 1)
		a, err := repo.Action().Create(context.Background(), &model.ActionRecord{
			OwnerID:   owner,
			Data:      model.MustPayload(map[string]any{"title": title, "nested": [][]int{{1, 2}}}),
			CreatedAt: at,
			UpdatedAt: at,
		})
		gt.NoError(t, err).Required()
		return a
	}

	t.Run("Create and Get round trip payload", func(t *testing.T) {
		repo := newRepo(t)
		a := create(t, repo, "owner-1", "first", 2025, 1)
		gt.String(t, a.ID.String()).NotEqual("")

		got, err := repo.Action().Get(context.Background(), a.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.OwnerID).Equal(types.UserID("owner-1"))
		gt.Value(t, string(got.Data)).Equal(`{"nested":[[1,2]],"title":"first"}`)
		gt.Value(t, got.CreatedAt.Equal(a.CreatedAt)).Equal(true)
	})

	t.Run("Get returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Action().Get(context.Background(), types.NewActionID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("List filters by owner and year, newest first, paginated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a1 := create(t, repo, "u1", "jan24", 2024, 1)
		a2 := create(t, repo, "u1", "mar25", 2025, 3)
		a3 := create(t, repo, "u1", "jun25", 2025, 6)
		create(t, repo, "u2", "other", 2025, 7)

		all, err := repo.Action().List(ctx, interfaces.ActionFilter{OwnerID: "u1"}, interfaces.Page{})
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3)
		gt.Value(t, all[0].ID).Equal(a3.ID)
		gt.Value(t, all[1].ID).Equal(a2.ID)
		gt.Value(t, all[2].ID).Equal(a1.ID)

		page, err := repo.Action().List(ctx, interfaces.ActionFilter{OwnerID: "u1"}, interfaces.Page{Offset: 1, Limit: 1})
		gt.NoError(t, err).Required()
		gt.Array(t, page).Length(1)
		gt.Value(t, page[0].ID).Equal(a2.ID)

		from, before := model.YearWindow{}.Range(2025)
		filter := interfaces.ActionFilter{OwnerID: "u1", CreatedFrom: from, CreatedBefore: before}
		y25, err := repo.Action().List(ctx, filter, interfaces.Page{})
		gt.NoError(t, err).Required()
		gt.Array(t, y25).Length(2)

		n, err := repo.Action().Count(ctx, filter)
		gt.NoError(t, err).Required()
		gt.Value(t, n).Equal(2)

		total, err := repo.Action().Count(ctx, interfaces.ActionFilter{})
		gt.NoError(t, err).Required()
		gt.Value(t, total).Equal(4)

		beyond, err := repo.Action().List(ctx, interfaces.ActionFilter{OwnerID: "u1"}, interfaces.Page{Offset: 10, Limit: 10})
		gt.NoError(t, err).Required()
		gt.Array(t, beyond).Length(0)
	})

	t.Run("Update replaces data and keeps createdAt", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		a := create(t, repo, "u1", "before", 2025, 2)

		later := ts(2025, 9, 1)
		updated, err := repo.Action().Update(ctx, &model.ActionRecord{
			ID:        a.ID,
			OwnerID:   "someone-else",
			Data:      model.Payload(`{"title":"after"}`),
			CreatedAt: ts(2030, 1, 1),
			UpdatedAt: later,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, string(updated.Data)).Equal(`{"title":"after"}`)
		gt.Bool(t, updated.CreatedAt.Equal(a.CreatedAt)).True()
		gt.Bool(t, updated.UpdatedAt.Equal(later)).True()
		gt.Value(t, updated.OwnerID).Equal(types.UserID("u1"))

		_, err = repo.Action().Update(ctx, &model.ActionRecord{ID: types.NewActionID(), Data: model.Payload(`{}`)})
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Delete and DeleteByOwner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		a := create(t, repo, "u1", "x", 2025, 1)
		create(t, repo, "u1", "y", 2024, 1)
		create(t, repo, "u2", "z", 2025, 1)

		gt.NoError(t, repo.Action().Delete(ctx, a.ID)).Required()
		gt.Error(t, repo.Action().Delete(ctx, a.ID)).Is(interfaces.ErrNotFound)

		n, err := repo.Action().DeleteByOwner(ctx, "u1")
		gt.NoError(t, err).Required()
		gt.Value(t, n).Equal(1)

		remaining, err := repo.Action().Count(ctx, interfaces.ActionFilter{})
		gt.NoError(t, err).Required()
		gt.Value(t, remaining).Equal(1)
	})
}
