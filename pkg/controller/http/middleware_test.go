package http

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"golang.org/x/time/rate"
)

func TestIPRateLimiterShortWindow(t *testing.T) {
	now := time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(3, 50*time.Nanosecond)
	l.now = func() time.Time { return now }

	gt.Bool(t, l.limit != rate.Inf).True()
	for range 3 {
		gt.Bool(t, l.allow("10.0.0.1")).True()
	}
	gt.Bool(t, l.allow("10.0.0.1")).False()
	gt.Bool(t, l.allow("10.0.0.2")).True()
}

func TestIPRateLimiterRefill(t *testing.T) {
	now := time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	gt.Bool(t, l.allow("10.0.0.1")).True()
	gt.Bool(t, l.allow("10.0.0.1")).True()
	gt.Bool(t, l.allow("10.0.0.1")).False()

	now = now.Add(30 * time.Second)
	gt.Bool(t, l.allow("10.0.0.1")).True()
	gt.Bool(t, l.allow("10.0.0.1")).False()
}
