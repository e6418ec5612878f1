package pagination

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/fieldops/workorder-progress/pkg/fetch"
)

// Prometheus metrics for page retry operations.
var (
	pageRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "woprog_page_retries_total",
		Help: "Total number of page retry attempts by error class",
	}, []string{"error_class"})

	pageRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "woprog_page_retry_backoff_seconds",
		Help:    "Backoff duration for page retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	pageRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "woprog_page_retry_exhausted_total",
		Help: "Total number of times page retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Common errors returned by the paginator.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// RetryConfig holds the configuration for per-page retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the initial one.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retryWithBackoff executes a page fetch with exponential backoff.
// Only errors worth retrying (server, network) trigger another attempt;
// client and envelope errors are deterministic and returned immediately.
// Respects context cancellation and adds jitter to avoid thundering herd.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Page fetch succeeded after retry")
			}
			return nil
		}

		lastErr = err

		class := errorClass(err)
		if !fetch.Retriable(class) {
			return lastErr
		}

		if attempt >= config.MaxAttempts {
			break
		}

		pageRetriesTotal.WithLabelValues(string(class)).Inc()

		// Jitter: ±20% randomness.
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		pageRetryBackoffSeconds.WithLabelValues(string(class)).Observe(jitter.Seconds())

		log.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying page fetch after backoff")

		select {
		case <-ctx.Done():
			log.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	class := errorClass(lastErr)
	pageRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
	log.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Page retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, config.MaxAttempts, lastErr)
}

// errorClass extracts the fetch error class, defaulting to network for
// errors that carry no classification (transport-level failures).
func errorClass(err error) fetch.ErrorClass {
	var apiErr *fetch.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return fetch.ErrorClassNetwork
}
