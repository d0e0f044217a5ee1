package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/suPer8Hu/roadmaster/internal/logger"
)

type Class string

const (
	Telemetry Class = "telemetry"
	Mutation  Class = "mutation"
	Auth      Class = "auth"
)

type Budget struct {
	Limit  int64
	Window time.Duration
}

// DefaultBudgets are the per user allowances for each request class.
func DefaultBudgets() map[Class]Budget {
	return map[Class]Budget{
		Telemetry: {Limit: 7200, Window: time.Hour},
		Mutation:  {Limit: 100, Window: time.Hour},
		Auth:      {Limit: 20, Window: 15 * time.Minute},
	}
}

// CounterStore holds per window request counters shared by all instances.
type CounterStore interface {
	// Incr bumps currKey, refreshes its ttl and returns the new value together
	// with the prevKey counter, as one atomic step.
	Incr(ctx context.Context, currKey, prevKey string, ttl time.Duration) (curr, prev int64, err error)
	Decr(ctx context.Context, key string) error
}

type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time
}

// RetryAfter is the wait in whole seconds until Reset, never less than one.
func (r Result) RetryAfter(now time.Time) int64 {
	secs := int64(math.Ceil(r.Reset.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

type Limiter struct {
	store   CounterStore
	budgets map[Class]Budget
	now     func() time.Time
}

func New(store CounterStore, budgets map[Class]Budget) *Limiter {
	if budgets == nil {
		budgets = DefaultBudgets()
	}
	return &Limiter{store: store, budgets: budgets, now: time.Now}
}

func (l *Limiter) Now() time.Time { return l.now() }

// Allow spends one request of user's budget for class. The previous window
// counts in proportion to how much of it still overlaps the sliding window.
// The request is counted before the decision, so concurrent callers never
// admit more than the limit. A rejected request gives its slot back.
func (l *Limiter) Allow(ctx context.Context, class Class, user string) (Result, error) {
	b, ok := l.budgets[class]
	if !ok {
		return Result{}, fmt.Errorf("ratelimit: unknown class %q", class)
	}
	w := b.Window.Milliseconds()
	if w <= 0 {
		return Result{}, fmt.Errorf("ratelimit: class %q window %s is shorter than 1ms", class, b.Window)
	}

	now := l.now()
	ms := now.UnixMilli()
	idx := ms / w
	elapsed := ms - idx*w
	reset := time.UnixMilli((idx + 1) * w)

	currKey := key(class, user, idx)

	// counters outlive two windows so the next window can still weigh this one
	curr, prev, err := l.store.Incr(ctx, currKey, key(class, user, idx-1), 2*b.Window)
	if err != nil {
		return Result{}, err
	}

	weight := 1 - float64(elapsed)/float64(w)
	used := int64(math.Floor(float64(prev)*weight)) + curr
	if used > b.Limit {
		if err := l.store.Decr(ctx, currKey); err != nil {
			logger.From(ctx).WithError(err).WithField("key", currKey).Warn("[RateLimit] release rejected slot failed")
		}
		return Result{Allowed: false, Limit: b.Limit, Remaining: 0, Reset: reset}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     b.Limit,
		Remaining: b.Limit - used,
		Reset:     reset,
	}, nil
}

func key(class Class, user string, idx int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", class, user, idx)
}
