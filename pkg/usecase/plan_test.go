package usecase_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/secmon-lab/actiontrail/pkg/utils/async"
)

type notifyCall struct {
	plan    *model.ActionPlan
	author  *model.User
	targets []*model.User
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) NotifyPlan(ctx context.Context, plan *model.ActionPlan, author *model.User, targets []*model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{plan: plan, author: author, targets: targets})
	return nil
}

func (n *fakeNotifier) snapshot() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

func waitAsync(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gt.NoError(t, async.Wait(ctx)).Required()
}

func TestPlanBroadcast(t *testing.T) {
	notifier := &fakeNotifier{}
	f := newFixture(t, usecase.WithNotifier(notifier))
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	carol := f.createUser(t, "carol")
	_, err := f.uc.User.Delete(ctx, f.admin.ID, carol.ID, false)
	gt.NoError(t, err).Required()

	t.Run("inactive target rejects the whole plan", func(t *testing.T) {
		_, err := f.uc.Plan.Create(ctx, f.admin.ID, usecase.PlanInput{
			Title:       "Rotate keys",
			Description: model.MustPayload("rotate all API keys"),
			UserIDs:     []types.UserID{alice.ID, carol.ID},
		})
		gt.Error(t, err).Is(usecase.ErrValidation)
		gt.Value(t, usecase.Reason(err)).Equal("One or more user IDs are invalid or inactive")

		list, err := f.uc.Plan.List(ctx, 0, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, list.Plans).Length(0)
	})

	t.Run("unknown target rejects the whole plan", func(t *testing.T) {
		_, err := f.uc.Plan.Create(ctx, f.admin.ID, usecase.PlanInput{
			Title:       "Rotate keys",
			Description: model.MustPayload("rotate all API keys"),
			UserIDs:     []types.UserID{types.NewUserID()},
		})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	var planID types.PlanID
	t.Run("targets see the plan and others do not", func(t *testing.T) {
		created, err := f.uc.Plan.Create(ctx, f.admin.ID, usecase.PlanInput{
			Title:       "  Patch servers ",
			Description: model.MustPayload(map[string]string{"deadline": "2025-07-01"}),
			UserIDs:     []types.UserID{alice.ID, alice.ID},
		})
		gt.NoError(t, err).Required()
		planID = created.ID
		gt.Value(t, created.Title).Equal("Patch servers")
		gt.Array(t, created.Users).Length(1)
		gt.Value(t, created.Users[0].Username).Equal("alice")
		gt.Value(t, created.CreatedBy.Username).Equal("root")

		mine, err := f.uc.Plan.ListForUser(ctx, alice.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, mine).Length(1)
		gt.Value(t, mine[0].ID).Equal(created.ID)
		gt.Value(t, len(mine[0].Users)).Equal(0)

		others, err := f.uc.Plan.ListForUser(ctx, bob.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, others).Length(0)

		waitAsync(t)
		calls := notifier.snapshot()
		gt.Array(t, calls).Length(1)
		gt.Value(t, calls[0].plan.ID).Equal(created.ID)
		gt.Value(t, calls[0].author.ID).Equal(f.admin.ID)
		gt.Array(t, calls[0].targets).Length(1)
	})

	t.Run("patch retargets and keeps unset fields", func(t *testing.T) {
		updated, err := f.uc.Plan.Update(ctx, planID, usecase.PlanPatch{
			UserIDs: &[]types.UserID{bob.ID},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Title).Equal("Patch servers")
		gt.Array(t, updated.Users).Length(1)
		gt.Value(t, updated.Users[0].ID).Equal(bob.ID)

		mine, err := f.uc.Plan.ListForUser(ctx, alice.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, mine).Length(0)

		_, err = f.uc.Plan.Update(ctx, planID, usecase.PlanPatch{
			UserIDs: &[]types.UserID{carol.ID},
		})
		gt.Error(t, err).Is(usecase.ErrValidation)

		_, err = f.uc.Plan.Update(ctx, planID, usecase.PlanPatch{
			Description: model.MustPayload(42),
		})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("delete", func(t *testing.T) {
		gt.NoError(t, f.uc.Plan.Delete(ctx, planID)).Required()
		_, err := f.uc.Plan.Get(ctx, planID)
		gt.Error(t, err).Is(usecase.ErrNotFound)
		gt.Error(t, f.uc.Plan.Delete(ctx, planID)).Is(usecase.ErrNotFound)
	})
}

func TestPlanValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	t.Run("non-admin author is forbidden", func(t *testing.T) {
		_, err := f.uc.Plan.Create(ctx, alice.ID, usecase.PlanInput{
			Title:       "t",
			Description: model.MustPayload("d"),
		})
		gt.Error(t, err).Is(usecase.ErrForbidden)
	})

	t.Run("title and description are required", func(t *testing.T) {
		for _, input := range []usecase.PlanInput{
			{Title: " ", Description: model.MustPayload("d")},
			{Title: "t"},
			{Title: "t", Description: model.MustPayload("")},
			{Title: "t", Description: model.MustPayload([]string{"a"})},
		} {
			_, err := f.uc.Plan.Create(ctx, f.admin.ID, input)
			gt.Error(t, err).Is(usecase.ErrValidation)
			gt.Value(t, usecase.Reason(err)).Equal("Title and description are required")
		}
	})

	t.Run("plan without targets is allowed", func(t *testing.T) {
		created, err := f.uc.Plan.Create(ctx, f.admin.ID, usecase.PlanInput{
			Title:       "Announcement",
			Description: model.MustPayload("quarterly review"),
		})
		gt.NoError(t, err).Required()
		gt.Array(t, created.Users).Length(0)
	})

	t.Run("list paginates newest first", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		_, err := f.uc.Plan.Create(ctx, f.admin.ID, usecase.PlanInput{
			Title:       "Second",
			Description: model.MustPayload("later"),
		})
		gt.NoError(t, err).Required()

		list, err := f.uc.Plan.List(ctx, 1, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, list.Plans).Length(1)
		gt.Value(t, list.Plans[0].Title).Equal("Second")
		gt.Value(t, list.Pagination.TotalPages).Equal(2)
		gt.Bool(t, list.Pagination.HasNextPage).True()

		list, err = f.uc.Plan.List(ctx, math.MaxInt, 100)
		gt.NoError(t, err).Required()
		gt.Array(t, list.Plans).Length(0)
		gt.Bool(t, list.Pagination.HasPrevPage).True()
	})
}
