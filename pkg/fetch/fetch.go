// Package fetch provides the HTTP page fetcher for the remote collection API,
// normalizing the varying response envelopes into uniform page results.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldops/workorder-progress/pkg/model"
	"github.com/fieldops/workorder-progress/pkg/ratelimit"
)

// Prometheus metrics for collection-API operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "woprog_fetch_requests_total",
		Help: "Total collection API requests by collection and status",
	}, []string{"collection", "status"})

	fetchRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "woprog_fetch_request_duration_seconds",
		Help:    "Collection API request duration in seconds by collection",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"collection"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "woprog_fetch_errors_total",
		Help: "Total collection API errors by class",
	}, []string{"class"})
)

// PageResult is one normalized page of a collection.
type PageResult struct {
	// Items are the records of this page in source order.
	Items []model.RawRecord

	// TotalPages is the page count reported by the backend, at least 1.
	TotalPages int
}

// Config holds the fetch client configuration.
type Config struct {
	// BaseURL is the root of the remote collection API.
	BaseURL string

	// UserAgent identifies this consumer to the backend.
	UserAgent string

	// Timeout bounds a single page fetch.
	Timeout time.Duration

	// Budget optionally gates requests on the shared backend error budget.
	Budget *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "workorder-progress/1.0",
		Timeout:   30 * time.Second,
	}
}

// Client fetches single pages of remote collections.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "workorder-progress/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "fetch-client").Logger(),
	}, nil
}

// FetchPage fetches a single page of a collection and normalizes the
// response envelope. One network call per invocation; retries are the
// paginator's responsibility.
func (c *Client) FetchPage(ctx context.Context, collection string, page, pageSize int) (PageResult, error) {
	if collection == "" {
		return PageResult{}, fmt.Errorf("%w: empty collection name", ErrInvalidInput)
	}
	if page < 1 {
		return PageResult{}, fmt.Errorf("%w: page %d (must be >= 1)", ErrInvalidInput, page)
	}
	if pageSize < 1 {
		return PageResult{}, fmt.Errorf("%w: page size %d (must be >= 1)", ErrInvalidInput, pageSize)
	}

	startTime := time.Now()
	defer func() {
		fetchRequestDuration.WithLabelValues(collection).Observe(time.Since(startTime).Seconds())
	}()

	// Gate on the shared error budget before touching the backend.
	if c.config.Budget != nil {
		allowed, err := c.config.Budget.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Error budget check failed, proceeding without gate")
		} else if !allowed {
			fetchRequestsTotal.WithLabelValues(collection, "blocked").Inc()
			return PageResult{}, ErrBlocked
		}
	}

	req, err := c.buildRequest(ctx, collection, page, pageSize)
	if err != nil {
		return PageResult{}, err
	}

	c.logger.Debug().
		Str("collection", collection).
		Int("page", page).
		Int("page_size", pageSize).
		Msg("Fetching collection page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fetchRequestsTotal.WithLabelValues(collection, "network_error").Inc()
		c.recordFailure(ctx)
		return PageResult{}, &APIError{
			Collection: collection,
			Page:       page,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	fetchRequestsTotal.WithLabelValues(collection, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		fetchErrorsTotal.WithLabelValues(string(class)).Inc()
		if class == ErrorClassServer {
			c.recordFailure(ctx)
		}
		return PageResult{}, &APIError{
			Collection: collection,
			Page:       page,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		c.recordFailure(ctx)
		return PageResult{}, &APIError{
			Collection: collection,
			Page:       page,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}

	items, envelope, err := normalizeEnvelope(body, collection)
	if err != nil {
		fetchErrorsTotal.WithLabelValues(string(ErrorClassEnvelope)).Inc()
		return PageResult{}, &APIError{
			Collection: collection,
			Page:       page,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassEnvelope,
			Message:    "normalize envelope",
			Err:        err,
		}
	}

	return PageResult{
		Items:      items,
		TotalPages: totalPagesFromEnvelope(envelope),
	}, nil
}

// buildRequest assembles the GET /collection?page=n&limit=m request.
func (c *Client) buildRequest(ctx context.Context, collection string, page, pageSize int) (*http.Request, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u = u.JoinPath(collection)

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// recordFailure charges the shared error budget for a backend failure.
func (c *Client) recordFailure(ctx context.Context) {
	if c.config.Budget == nil {
		return
	}
	if err := c.config.Budget.RecordFailure(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to record failure in error budget")
	}
}

// classifyStatus categorizes an HTTP status for observability and retry.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
