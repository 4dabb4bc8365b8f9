package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

type actionPlanRepository struct {
	mu    sync.RWMutex
	plans map[types.PlanID]*model.ActionPlan
}

func newActionPlanRepository() *actionPlanRepository {
	return &actionPlanRepository{
		plans: make(map[types.PlanID]*model.ActionPlan),
	}
}

func (r *actionPlanRepository) Create(ctx context.Context, plan *model.ActionPlan) (*model.ActionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := plan.Clone()
	if created.ID == "" {
		created.ID = types.NewPlanID()
	}
	if _, exists := r.plans[created.ID]; exists {
		return nil, goerr.New("action plan ID already exists", goerr.V("id", created.ID))
	}

	r.plans[created.ID] = created
	return created.Clone(), nil
}

func (r *actionPlanRepository) Get(ctx context.Context, id types.PlanID) (*model.ActionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "action plan not found", goerr.V("id", id))
	}
	return p.Clone(), nil
}

// sorted must be called with mu held
func (r *actionPlanRepository) sorted(keep func(*model.ActionPlan) bool) []*model.ActionPlan {
	var plans []*model.ActionPlan
	for _, p := range r.plans {
		if keep(p) {
			plans = append(plans, p.Clone())
		}
	}
	slices.SortFunc(plans, func(a, b *model.ActionPlan) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(b.ID), string(a.ID))
	})
	return plans
}

func (r *actionPlanRepository) List(ctx context.Context, page interfaces.Page) ([]*model.ActionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sorted(func(*model.ActionPlan) bool { return true })
	return paginate(all, page), nil
}

func (r *actionPlanRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plans), nil
}

func (r *actionPlanRepository) Update(ctx context.Context, plan *model.ActionPlan) (*model.ActionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.plans[plan.ID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "action plan not found", goerr.V("id", plan.ID))
	}

	updated := plan.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.CreatedBy = existing.CreatedBy
	r.plans[updated.ID] = updated
	return updated.Clone(), nil
}

func (r *actionPlanRepository) Delete(ctx context.Context, id types.PlanID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plans[id]; !ok {
		return goerr.Wrap(ErrNotFound, "action plan not found", goerr.V("id", id))
	}
	delete(r.plans, id)
	return nil
}

func (r *actionPlanRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.ActionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(p *model.ActionPlan) bool { return p.Targets(userID) }), nil
}

func paginate[T any](items []T, page interfaces.Page) []T {
	if page.Offset < 0 || page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
