package usecase

import (
	"context"

	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"golang.org/x/sync/errgroup"
)

// PublicUseCase serves the unauthenticated, redacted feed
type PublicUseCase struct {
	repo     interfaces.Repository
	clock    clock.Clock
	window   model.YearWindow
	settings Settings
}

type PublicStats struct {
	TotalActions       int `json:"totalActions"`
	CurrentYearActions int `json:"currentYearActions"`
	ActiveUsers        int `json:"activeUsers"`
}

type PublicOverview struct {
	Actions []model.PublicAction `json:"actions"`
	Stats   PublicStats          `json:"stats"`
}

// Stats computes the public counters concurrently
func (uc *PublicUseCase) Stats(ctx context.Context) (*PublicStats, error) {
	var stats PublicStats
	from, before := uc.window.Range(uc.window.Year(uc.clock()))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		stats.TotalActions, err = uc.repo.Action().Count(egCtx, interfaces.ActionFilter{})
		return err
	})
	eg.Go(func() error {
		var err error
		stats.CurrentYearActions, err = uc.repo.Action().Count(egCtx, interfaces.ActionFilter{CreatedFrom: from, CreatedBefore: before})
		return err
	})
	eg.Go(func() error {
		var err error
		stats.ActiveUsers, err = uc.repo.User().CountActive(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, unavailable(err, "failed to compute public stats")
	}
	return &stats, nil
}

// Overview returns the newest records across all owners, redacted to
// title, category and priority. limit 0 takes the default; larger values
// are clamped.
func (uc *PublicUseCase) Overview(ctx context.Context, limit int) (*PublicOverview, error) {
	if limit <= 0 {
		limit = uc.settings.DefaultFeedLimit
	}
	limit = min(limit, uc.settings.MaxFeedLimit)

	var overview PublicOverview
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		actions, err := uc.repo.Action().List(egCtx, interfaces.ActionFilter{}, interfaces.Page{Limit: limit})
		if err != nil {
			return err
		}
		overview.Actions = make([]model.PublicAction, len(actions))
		for i, a := range actions {
			overview.Actions[i] = a.Redact()
		}
		return nil
	})
	eg.Go(func() error {
		stats, err := uc.Stats(egCtx)
		if err != nil {
			return err
		}
		overview.Stats = *stats
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, unavailable(err, "failed to build public overview")
	}

	return &overview, nil
}
