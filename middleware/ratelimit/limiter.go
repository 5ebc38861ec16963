package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Decision is the outcome of one Allow call. It is never rendered to
// clients.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// CounterStore increments a counter that expires window after its first
// increment. It returns the new count and the counter's remaining lifetime.
type CounterStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

type BucketState struct {
	Allowed   bool
	Remaining int64
	// FullIn is how long until the bucket is back at its full budget.
	FullIn time.Duration
}

// BucketStore takes cost points from a bucket holding at most budget
// points that refills from empty to full over duration.
type BucketStore interface {
	TakePoints(ctx context.Context, key string, budget, cost int64, duration time.Duration, now time.Time) (BucketState, error)
}

// FixedWindow admits Max requests per key per Window. The window starts
// at the first request for a key.
type FixedWindow struct {
	Max    int64
	Window time.Duration
	Store  CounterStore
}

func (l *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.Store.IncrementWindow(ctx, key, l.Window)
	if err != nil {
		return Decision{}, storeError(err)
	}

	remaining := l.Max - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= l.Max,
		Limit:     l.Max,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// PointsBucket is a leaky bucket of Budget points refilled continuously at
// Budget per Duration. Each request costs Cost points.
type PointsBucket struct {
	Budget   int64
	Cost     int64
	Duration time.Duration
	Store    BucketStore
	Now      func() time.Time
}

func (l *PointsBucket) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	state, err := l.Store.TakePoints(ctx, key, l.Budget, l.Cost, l.Duration, now)
	if err != nil {
		return Decision{}, storeError(err)
	}

	return Decision{
		Allowed:   state.Allowed,
		Limit:     l.Budget,
		Remaining: state.Remaining,
		ResetAt:   now.Add(state.FullIn),
	}, nil
}

func storeError(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
