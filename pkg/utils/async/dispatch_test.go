package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/utils/async"
)

func TestGroupWaitsForHandlers(t *testing.T) {
	var g async.Group
	var n atomic.Int32

	for range 5 {
		g.Dispatch(context.Background(), "count", func(ctx context.Context) error {
			n.Add(1)
			return nil
		})
	}
	g.Dispatch(context.Background(), "fail", func(ctx context.Context) error {
		return errors.New("ignored")
	})
	g.Dispatch(context.Background(), "panic", func(ctx context.Context) error {
		panic("recovered")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gt.NoError(t, g.Wait(ctx))
	gt.Value(t, n.Load()).Equal(int32(5))
}

func TestGroupWaitHonoursContext(t *testing.T) {
	var g async.Group
	release := make(chan struct{})
	defer close(release)

	g.Dispatch(context.Background(), "block", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	gt.Error(t, g.Wait(ctx))
}
