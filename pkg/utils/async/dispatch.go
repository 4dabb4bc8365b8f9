package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/utils/errutil"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
)

// Group tracks background handlers so that shutdown can wait for them.
type Group struct {
	wg sync.WaitGroup
}

var defaultGroup Group

// Dispatch runs handler on the default group.
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	defaultGroup.Dispatch(ctx, name, handler)
}

// Wait blocks until every handler on the default group finished or ctx is done.
func Wait(ctx context.Context) error {
	return defaultGroup.Wait(ctx)
}

// Dispatch executes handler in a new goroutine with a background context that
// keeps the caller's logger. Errors and panics are logged, never propagated.
func (g *Group) Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx).With("task", name))

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			errutil.Log(bgCtx, goerr.Wrap(err, "async handler failed", goerr.V("task", name)), "async handler failed")
		}
	}()
}

// Wait blocks until all dispatched handlers return or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "background tasks did not finish")
	}
}
