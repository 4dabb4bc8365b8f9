package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
)

// TokenSweepWorker periodically removes revocation entries of tokens that
// have already expired.
//
// Several server instances may sweep the same store; deleting an entry twice
// is harmless.
type TokenSweepWorker struct {
	repo     interfaces.Repository
	clock    clock.Clock
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewTokenSweepWorker creates a new worker sweeping every interval
func NewTokenSweepWorker(repo interfaces.Repository, c clock.Clock, interval time.Duration) *TokenSweepWorker {
	return &TokenSweepWorker{
		repo:     repo,
		clock:    c,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop without blocking
func (w *TokenSweepWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("sweep interval must be positive", goerr.V("interval", w.interval))
	}

	logging.From(ctx).Info("Token sweep worker starting", "interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *TokenSweepWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Token sweep worker stopped")
}

func (w *TokenSweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				logging.From(ctx).Error("Token sweep failed (will retry next interval)", "error", err)
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Sweep performs a single cleanup pass and returns the number of removed entries
func (w *TokenSweepWorker) Sweep(ctx context.Context) (int, error) {
	n, err := w.repo.PruneRevokedTokens(ctx, w.clock())
	if err != nil {
		return n, goerr.Wrap(err, "failed to prune revoked tokens")
	}
	if n > 0 {
		logging.From(ctx).Info("Pruned expired token revocations", "count", n)
	}
	return n, nil
}
