package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/utils/async"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
)

// PlanNotifier delivers a broadcast about a newly created plan
type PlanNotifier interface {
	NotifyPlan(ctx context.Context, plan *model.ActionPlan, author *model.User, targets []*model.User) error
}

// PlanUseCase manages admin-authored action plans
type PlanUseCase struct {
	repo     interfaces.Repository
	clock    clock.Clock
	settings Settings
	notifier PlanNotifier
}

type PlanInput struct {
	Title       string
	Description model.Payload
	UserIDs     []types.UserID
}

// PlanPatch updates a plan; nil or empty fields are left unchanged
type PlanPatch struct {
	Title       *string
	Description model.Payload
	UserIDs     *[]types.UserID
}

// PlanView is an action plan with its author and targets resolved
type PlanView struct {
	ID          types.PlanID        `json:"id"`
	Title       string              `json:"title"`
	Description model.Payload       `json:"description"`
	Users       []model.UserSummary `json:"userIds,omitempty"`
	CreatedBy   *model.UserSummary  `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

const invalidTargetsReason = "One or more user IDs are invalid or inactive"

// validDescription accepts a non-empty JSON string or a JSON object
func validDescription(p model.Payload) bool {
	trimmed := bytes.TrimSpace(p)
	if len(trimmed) == 0 || !p.IsValid() {
		return false
	}
	switch trimmed[0] {
	case '{':
		return true
	case '"':
		return string(trimmed) != `""`
	default:
		return false
	}
}

// resolveTargets requires every id to name an active user. The whole set
// is rejected when any id fails.
func (uc *PlanUseCase) resolveTargets(ctx context.Context, ids []types.UserID) ([]types.UserID, []*model.User, error) {
	ids = model.UniqueUserIDs(ids)
	if len(ids) == 0 {
		return ids, nil, nil
	}

	users, err := uc.repo.User().GetMany(ctx, ids)
	if err != nil {
		return nil, nil, unavailable(err, "failed to resolve plan targets")
	}

	targets := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok || !u.IsActive {
			return nil, nil, reject(ErrValidation, invalidTargetsReason, goerr.V(UserIDKey, id))
		}
		targets = append(targets, u)
	}
	return ids, targets, nil
}

func (uc *PlanUseCase) requireAdmin(ctx context.Context, actorID types.UserID) (*model.User, error) {
	actor, err := uc.repo.User().Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, reject(ErrForbidden, "Admin access required", goerr.V(UserIDKey, actorID))
		}
		return nil, unavailable(err, "failed to get plan author", goerr.V(UserIDKey, actorID))
	}
	if !actor.IsActive || !actor.IsAdmin() {
		return nil, reject(ErrForbidden, "Admin access required", goerr.V(UserIDKey, actorID))
	}
	return actor, nil
}

// Create stores a plan authored by actorID and dispatches a best-effort
// broadcast to the configured notifier.
func (uc *PlanUseCase) Create(ctx context.Context, actorID types.UserID, input PlanInput) (*PlanView, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || !validDescription(input.Description) {
		return nil, reject(ErrValidation, "Title and description are required")
	}

	actor, err := uc.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ids, targets, err := uc.resolveTargets(ctx, input.UserIDs)
	if err != nil {
		return nil, err
	}

	now := uc.clock()
	created, err := uc.repo.ActionPlan().Create(ctx, &model.ActionPlan{
		Title:       title,
		Description: input.Description,
		UserIDs:     ids,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, unavailable(err, "failed to create action plan")
	}

	logging.From(ctx).Info("action plan created", "plan_id", created.ID, "targets", len(ids), "author", actor.Username)

	if uc.notifier != nil {
		notifier := uc.notifier
		plan := created.Clone()
		async.Dispatch(ctx, "notify_action_plan", func(ctx context.Context) error {
			return notifier.NotifyPlan(ctx, plan, actor, targets)
		})
	}

	return uc.view(created, actor, targets), nil
}

func (uc *PlanUseCase) view(p *model.ActionPlan, author *model.User, targets []*model.User) *PlanView {
	v := &PlanView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Users:       make([]model.UserSummary, 0, len(targets)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, t := range targets {
		v.Users = append(v.Users, t.Summary())
	}
	if author != nil {
		v.CreatedBy = &model.UserSummary{ID: author.ID, Username: author.Username}
	}
	return v
}

// populate resolves authors and targets for a batch of plans. Users that no
// longer exist are left out of the summaries.
func (uc *PlanUseCase) populate(ctx context.Context, plans []*model.ActionPlan, withTargets bool) ([]*PlanView, error) {
	var ids []types.UserID
	for _, p := range plans {
		ids = append(ids, p.CreatedBy)
		if withTargets {
			ids = append(ids, p.UserIDs...)
		}
	}

	users, err := uc.repo.User().GetMany(ctx, model.UniqueUserIDs(ids))
	if err != nil {
		return nil, unavailable(err, "failed to resolve plan users")
	}

	views := make([]*PlanView, len(plans))
	for i, p := range plans {
		var targets []*model.User
		if withTargets {
			for _, id := range p.UserIDs {
				if u, ok := users[id]; ok {
					targets = append(targets, u)
				}
			}
		}
		views[i] = uc.view(p, users[p.CreatedBy], targets)
		if !withTargets {
			views[i].Users = nil
		}
	}
	return views, nil
}

type PlanList struct {
	Plans      []*PlanView
	Pagination Pagination
}

// List returns plans newest first
func (uc *PlanUseCase) List(ctx context.Context, page, limit int) (*PlanList, error) {
	req := newPageRequest(page, limit, uc.settings.DefaultPageSize, uc.settings.MaxPageSize)

	plans, err := uc.repo.ActionPlan().List(ctx, req.repoPage())
	if err != nil {
		return nil, unavailable(err, "failed to list action plans")
	}
	total, err := uc.repo.ActionPlan().Count(ctx)
	if err != nil {
		return nil, unavailable(err, "failed to count action plans")
	}

	views, err := uc.populate(ctx, plans, true)
	if err != nil {
		return nil, err
	}
	return &PlanList{Plans: views, Pagination: req.result(total)}, nil
}

func (uc *PlanUseCase) get(ctx context.Context, id types.PlanID) (*model.ActionPlan, error) {
	p, err := uc.repo.ActionPlan().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, reject(ErrNotFound, "Action plan not found", goerr.V(PlanIDKey, id))
		}
		return nil, unavailable(err, "failed to get action plan", goerr.V(PlanIDKey, id))
	}
	return p, nil
}

func (uc *PlanUseCase) Get(ctx context.Context, id types.PlanID) (*PlanView, error) {
	p, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := uc.populate(ctx, []*model.ActionPlan{p}, true)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Update applies a patch with the same validation as Create
func (uc *PlanUseCase) Update(ctx context.Context, id types.PlanID, patch PlanPatch) (*PlanView, error) {
	p, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.UserIDs != nil {
		ids, _, err := uc.resolveTargets(ctx, *patch.UserIDs)
		if err != nil {
			return nil, err
		}
		p.UserIDs = ids
	}
	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title != "" {
			p.Title = title
		}
	}
	if !patch.Description.IsNull() {
		if !validDescription(patch.Description) {
			return nil, reject(ErrValidation, "Title and description are required")
		}
		p.Description = patch.Description
	}
	p.UpdatedAt = uc.clock()

	updated, err := uc.repo.ActionPlan().Update(ctx, p)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, reject(ErrNotFound, "Action plan not found", goerr.V(PlanIDKey, id))
		}
		return nil, unavailable(err, "failed to update action plan", goerr.V(PlanIDKey, id))
	}

	views, err := uc.populate(ctx, []*model.ActionPlan{updated}, true)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (uc *PlanUseCase) Delete(ctx context.Context, id types.PlanID) error {
	if err := uc.repo.ActionPlan().Delete(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return reject(ErrNotFound, "Action plan not found", goerr.V(PlanIDKey, id))
		}
		return unavailable(err, "failed to delete action plan", goerr.V(PlanIDKey, id))
	}
	logging.From(ctx).Info("action plan deleted", "plan_id", id)
	return nil
}

// ListForUser returns the plans addressed to userID, newest first. Other
// targets are not disclosed.
func (uc *PlanUseCase) ListForUser(ctx context.Context, userID types.UserID) ([]*PlanView, error) {
	plans, err := uc.repo.ActionPlan().ListByUser(ctx, userID)
	if err != nil {
		return nil, unavailable(err, "failed to list action plans", goerr.V(UserIDKey, userID))
	}
	return uc.populate(ctx, plans, false)
}
