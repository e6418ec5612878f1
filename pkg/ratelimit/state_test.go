package ratelimit

import (
	"testing"
	"time"
)

func TestBudgetState_NeedsCriticalBlock(t *testing.T) {
	tests := []struct {
		name            string
		errorsRemaining int
		expected        bool
	}{
		{
			name:            "well above critical threshold",
			errorsRemaining: 50,
			expected:        false,
		},
		{
			name:            "at critical threshold",
			errorsRemaining: ErrorThresholdCritical,
			expected:        false,
		},
		{
			name:            "just below critical threshold",
			errorsRemaining: ErrorThresholdCritical - 1,
			expected:        true,
		},
		{
			name:            "zero errors remaining",
			errorsRemaining: 0,
			expected:        true,
		},
		{
			name:            "negative errors remaining",
			errorsRemaining: -3,
			expected:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &BudgetState{ErrorsRemaining: tt.errorsRemaining}
			if result := state.NeedsCriticalBlock(); result != tt.expected {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestBudgetState_NeedsThrottling(t *testing.T) {
	tests := []struct {
		name            string
		errorsRemaining int
		expected        bool
	}{
		{
			name:            "healthy budget",
			errorsRemaining: 100,
			expected:        false,
		},
		{
			name:            "just below warning threshold",
			errorsRemaining: ErrorThresholdWarning - 1,
			expected:        true,
		},
		{
			name:            "at warning threshold",
			errorsRemaining: ErrorThresholdWarning,
			expected:        false,
		},
		{
			name:            "critical takes precedence over throttling",
			errorsRemaining: ErrorThresholdCritical - 1,
			expected:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &BudgetState{ErrorsRemaining: tt.errorsRemaining}
			if result := state.NeedsThrottling(); result != tt.expected {
				t.Errorf("NeedsThrottling() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestBudgetState_TimeUntilReset(t *testing.T) {
	state := &BudgetState{ResetAt: time.Now().Add(30 * time.Second)}
	d := state.TimeUntilReset()
	if d <= 0 || d > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want (0, 30s]", d)
	}

	past := &BudgetState{ResetAt: time.Now().Add(-1 * time.Minute)}
	if d := past.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() for past reset = %v, want 0", d)
	}
}

func TestBudgetState_UpdateHealth(t *testing.T) {
	tests := []struct {
		name            string
		errorsRemaining int
		expectedHealthy bool
	}{
		{"healthy", ErrorThresholdHealthy, true},
		{"above healthy", 100, true},
		{"below healthy", ErrorThresholdHealthy - 1, false},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &BudgetState{ErrorsRemaining: tt.errorsRemaining}
			state.UpdateHealth()
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
		})
	}
}
