package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for error budget tracking.
var (
	budgetErrorsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "woprog_error_budget_remaining",
		Help: "Number of backend failures remaining in the current budget window",
	})

	budgetBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "woprog_error_budget_blocks_total",
		Help: "Total number of requests blocked due to critical error budget",
	})

	budgetThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "woprog_error_budget_throttles_total",
		Help: "Total number of requests throttled due to low error budget",
	})
)

// Tracker monitors the shared backend error budget and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	budget int
	window time.Duration
}

// NewTracker creates a new error budget tracker.
// budget is the number of backend failures tolerated per window; zero
// values fall back to 100 failures per 60 seconds.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, budget int, window time.Duration) *Tracker {
	if budget <= 0 {
		budget = 100
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		budget: budget,
		window: window,
	}
}

// GetState retrieves the current error budget state from Redis.
// Returns a full budget if no window is open.
func (t *Tracker) GetState(ctx context.Context) (*BudgetState, error) {
	errorsRemaining, err := t.redis.Get(ctx, RedisKeyErrorsRemaining).Int()
	if err == redis.Nil {
		// No window open: budget is untouched.
		state := &BudgetState{
			ErrorsRemaining: t.budget,
			ResetAt:         time.Now().Add(t.window),
		}
		state.UpdateHealth()
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get errors remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	state := &BudgetState{
		ErrorsRemaining: errorsRemaining,
		ResetAt:         time.Unix(resetTimestamp, 0),
	}
	state.UpdateHealth()

	return state, nil
}

// RecordFailure charges one backend failure against the current window.
// Opens a new window with a fresh budget when none is active; the Redis
// expiry closes the window so the budget replenishes on its own.
func (t *Tracker) RecordFailure(ctx context.Context) error {
	resetAt := time.Now().Add(t.window)

	pipe := t.redis.Pipeline()
	pipe.SetNX(ctx, RedisKeyErrorsRemaining, t.budget, t.window)
	pipe.SetNX(ctx, RedisKeyResetTimestamp, resetAt.Unix(), t.window)
	decr := pipe.Decr(ctx, RedisKeyErrorsRemaining)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record failure in redis: %w", err)
	}

	remaining := int(decr.Val())
	budgetErrorsRemaining.Set(float64(remaining))

	logEvent := t.logger.Info().Int("errors_remaining", remaining)
	switch {
	case remaining < ErrorThresholdCritical:
		t.logger.Error().
			Int("errors_remaining", remaining).
			Msg("Backend error budget CRITICAL - requests will be blocked")
	case remaining < ErrorThresholdWarning:
		t.logger.Warn().
			Int("errors_remaining", remaining).
			Msg("Backend error budget WARNING - requests will be throttled")
	default:
		logEvent.Msg("Backend failure recorded")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed given the current
// budget. Returns false when the budget is critical. Callers in the warning
// band are delayed one second to take pressure off the backend.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get error budget state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Backend error budget critical - blocking request")
		budgetBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("errors_remaining", state.ErrorsRemaining).
			Msg("Backend error budget low - throttling request")
		budgetThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	return true, nil
}
