// Package ratelimit implements a shared backend error budget for the remote
// collection API. Several dashboard processes can hit the same backend; the
// budget lives in Redis so that all of them stop issuing page fetches when
// the backend is visibly struggling, instead of piling on.
package ratelimit

import (
	"time"
)

// Redis keys for error budget state storage.
const (
	RedisKeyErrorsRemaining = "woprog:error_budget:errors_remaining"
	RedisKeyResetTimestamp  = "woprog:error_budget:reset_timestamp"
)

// Thresholds for error budget decisions.
const (
	// ErrorThresholdCritical blocks all requests when errors remaining
	// falls below this value, so the last failures in the window are kept
	// in reserve for interactive callers.
	ErrorThresholdCritical = 5

	// ErrorThresholdWarning applies throttling when errors remaining
	// falls below this value.
	ErrorThresholdWarning = 20

	// ErrorThresholdHealthy indicates normal operation.
	ErrorThresholdHealthy = 50
)

// BudgetState represents the current backend error budget.
// This state is shared across all fetcher instances via Redis.
type BudgetState struct {
	// ErrorsRemaining is the number of backend failures tolerated before
	// new page fetches are blocked for the rest of the window.
	ErrorsRemaining int `json:"errors_remaining"`

	// ResetAt is when the current budget window expires and the budget
	// replenishes.
	ResetAt time.Time `json:"reset_at"`

	// IsHealthy indicates whether the budget is in a healthy state.
	IsHealthy bool `json:"is_healthy"`
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *BudgetState) NeedsCriticalBlock() bool {
	return s.ErrorsRemaining < ErrorThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled.
func (s *BudgetState) NeedsThrottling() bool {
	return s.ErrorsRemaining < ErrorThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the budget window resets.
// Returns 0 if the reset time has already passed.
func (s *BudgetState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current ErrorsRemaining.
func (s *BudgetState) UpdateHealth() {
	s.IsHealthy = s.ErrorsRemaining >= ErrorThresholdHealthy
}
