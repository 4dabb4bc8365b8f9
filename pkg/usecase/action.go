package usecase

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
)

// ActionUseCase manages a user's own action records under the year window
type ActionUseCase struct {
	repo     interfaces.Repository
	clock    clock.Clock
	window   model.YearWindow
	settings Settings
}

// ActionView is an action record annotated with its year-window state
type ActionView struct {
	ID           types.ActionID `json:"id"`
	Data         model.Payload  `json:"data"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	CreationYear int            `json:"creationYear"`
	CanModify    bool           `json:"canModify"`
}

func (uc *ActionUseCase) view(a *model.ActionRecord, now time.Time) *ActionView {
	return &ActionView{
		ID:           a.ID,
		Data:         a.Data,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
		CreationYear: uc.window.Year(a.CreatedAt),
		CanModify:    uc.window.CanModify(a.CreatedAt, now),
	}
}

func requirePayload(data model.Payload) error {
	if data.IsNull() {
		return reject(ErrValidation, "Action data is required")
	}
	if !data.IsValid() {
		return reject(ErrValidation, "Action data must be valid JSON")
	}
	return nil
}

// Create stores a new record owned by ownerID, stamped with the current time
func (uc *ActionUseCase) Create(ctx context.Context, ownerID types.UserID, data model.Payload) (*ActionView, error) {
	if err := requirePayload(data); err != nil {
		return nil, err
	}

	now := uc.clock()
	created, err := uc.repo.Action().Create(ctx, &model.ActionRecord{
		OwnerID:   ownerID,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, unavailable(err, "failed to create action", goerr.V(UserIDKey, ownerID))
	}

	logging.From(ctx).Info("action created", "action_id", created.ID, "user_id", ownerID)
	return uc.view(created, now), nil
}

// ListActionsInput selects a page of the caller's records. Year nil means
// all years; Page and Limit of zero take the defaults.
type ListActionsInput struct {
	Year  *int
	Page  int
	Limit int
}

type ActionYearFilter struct {
	Year        *int `json:"year"`
	CurrentYear int  `json:"currentYear"`
}

type ListActionsResult struct {
	Actions    []*ActionView
	Pagination Pagination
	Filter     ActionYearFilter
}

// List returns the caller's records newest first
func (uc *ActionUseCase) List(ctx context.Context, ownerID types.UserID, input ListActionsInput) (*ListActionsResult, error) {
	now := uc.clock()
	req := newPageRequest(input.Page, input.Limit, uc.settings.DefaultPageSize, uc.settings.MaxPageSize)

	filter := interfaces.ActionFilter{OwnerID: ownerID}
	if input.Year != nil {
		filter.CreatedFrom, filter.CreatedBefore = uc.window.Range(*input.Year)
	}

	actions, err := uc.repo.Action().List(ctx, filter, req.repoPage())
	if err != nil {
		return nil, unavailable(err, "failed to list actions", goerr.V(UserIDKey, ownerID))
	}
	total, err := uc.repo.Action().Count(ctx, filter)
	if err != nil {
		return nil, unavailable(err, "failed to count actions", goerr.V(UserIDKey, ownerID))
	}

	views := make([]*ActionView, len(actions))
	for i, a := range actions {
		views[i] = uc.view(a, now)
	}

	return &ListActionsResult{
		Actions:    views,
		Pagination: req.result(total),
		Filter: ActionYearFilter{
			Year:        input.Year,
			CurrentYear: uc.window.Year(now),
		},
	}, nil
}

// getOwned loads a record and hides records belonging to other users
func (uc *ActionUseCase) getOwned(ctx context.Context, ownerID types.UserID, id types.ActionID) (*model.ActionRecord, error) {
	a, err := uc.repo.Action().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, reject(ErrNotFound, "Action not found", goerr.V(ActionIDKey, id))
		}
		return nil, unavailable(err, "failed to get action", goerr.V(ActionIDKey, id))
	}
	if a.OwnerID != ownerID {
		return nil, reject(ErrNotFound, "Action not found",
			goerr.V(ActionIDKey, id), goerr.V(UserIDKey, ownerID))
	}
	return a, nil
}

func (uc *ActionUseCase) Get(ctx context.Context, ownerID types.UserID, id types.ActionID) (*ActionView, error) {
	a, err := uc.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return uc.view(a, uc.clock()), nil
}

// Update replaces the payload wholesale; createdAt never changes
func (uc *ActionUseCase) Update(ctx context.Context, ownerID types.UserID, id types.ActionID, data model.Payload) (*ActionView, error) {
	if err := requirePayload(data); err != nil {
		return nil, err
	}

	a, err := uc.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	now := uc.clock()
	if err := uc.window.Check(model.OperationUpdate, a.CreatedAt, now); err != nil {
		return nil, reject(ErrForbidden, err.Error(), goerr.V(ActionIDKey, id))
	}

	a.Data = data
	a.UpdatedAt = now
	updated, err := uc.repo.Action().Update(ctx, a)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, reject(ErrNotFound, "Action not found", goerr.V(ActionIDKey, id))
		}
		return nil, unavailable(err, "failed to update action", goerr.V(ActionIDKey, id))
	}

	return uc.view(updated, now), nil
}

// Delete hard-deletes a record of the current year
func (uc *ActionUseCase) Delete(ctx context.Context, ownerID types.UserID, id types.ActionID) error {
	a, err := uc.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := uc.window.Check(model.OperationDelete, a.CreatedAt, uc.clock()); err != nil {
		return reject(ErrForbidden, err.Error(), goerr.V(ActionIDKey, id))
	}

	if err := uc.repo.Action().Delete(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return reject(ErrNotFound, "Action not found", goerr.V(ActionIDKey, id))
		}
		return unavailable(err, "failed to delete action", goerr.V(ActionIDKey, id))
	}

	logging.From(ctx).Info("action deleted", "action_id", id, "user_id", ownerID)
	return nil
}

type YearCount struct {
	Year      int  `json:"year"`
	Count     int  `json:"count"`
	CanModify bool `json:"canModify"`
}

type CurrentYearInfo struct {
	Year      int  `json:"year"`
	CanCreate bool `json:"canCreate"`
	CanModify bool `json:"canModify"`
}

type ActionStats struct {
	Total           int             `json:"total"`
	CurrentYear     int             `json:"currentYear"`
	PreviousYears   int             `json:"previousYears"`
	ByYear          []YearCount     `json:"byYear"`
	CurrentYearInfo CurrentYearInfo `json:"currentYearInfo"`
}

// Stats summarizes the caller's records per creation year
func (uc *ActionUseCase) Stats(ctx context.Context, ownerID types.UserID) (*ActionStats, error) {
	now := uc.clock()
	currentYear := uc.window.Year(now)

	actions, err := uc.repo.Action().List(ctx, interfaces.ActionFilter{OwnerID: ownerID}, interfaces.Page{})
	if err != nil {
		return nil, unavailable(err, "failed to list actions", goerr.V(UserIDKey, ownerID))
	}

	perYear := make(map[int]int)
	for _, a := range actions {
		perYear[uc.window.Year(a.CreatedAt)]++
	}

	byYear := make([]YearCount, 0, len(perYear))
	for year, count := range perYear {
		byYear = append(byYear, YearCount{Year: year, Count: count, CanModify: year == currentYear})
	}
	slices.SortFunc(byYear, func(a, b YearCount) int { return b.Year - a.Year })

	return &ActionStats{
		Total:         len(actions),
		CurrentYear:   perYear[currentYear],
		PreviousYears: len(actions) - perYear[currentYear],
		ByYear:        byYear,
		CurrentYearInfo: CurrentYearInfo{
			Year:      currentYear,
			CanCreate: true,
			CanModify: true,
		},
	}, nil
}
