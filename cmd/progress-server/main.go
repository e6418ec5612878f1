package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fieldops/workorder-progress/pkg/aggregate"
	"github.com/fieldops/workorder-progress/pkg/cache"
	"github.com/fieldops/workorder-progress/pkg/engine"
	"github.com/fieldops/workorder-progress/pkg/fetch"
	"github.com/fieldops/workorder-progress/pkg/logging"
	"github.com/fieldops/workorder-progress/pkg/pagination"
	"github.com/fieldops/workorder-progress/pkg/ratelimit"
)

func main() {
	// Configuration from environment
	apiURL := getEnv("API_URL", "http://localhost:3000")
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	logLevel := getEnv("LOG_LEVEL", "info")
	pageSize := getEnvInt("PAGE_SIZE", 100)
	ttl := getEnvDuration("SNAPSHOT_TTL", 5*time.Minute)

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Output: os.Stderr,
	})
	logger := logging.NewLogger("progress-server")

	// Redis backs the cross-process snapshot store and the error budget.
	// The server degrades to in-memory caching when it is unreachable.
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	cacheOpts := []cache.Option{}
	var budget *ratelimit.Tracker
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", redisURL).Msg("Redis unavailable, running with in-memory cache only")
		redisClient = nil
	} else {
		logger.Info().Str("addr", redisURL).Msg("Connected to Redis")
		cacheOpts = append(cacheOpts, cache.WithSnapshotStore(cache.NewSnapshotStore(redisClient)))
		budget = ratelimit.NewTracker(redisClient, logging.NewLogger("error-budget"), 100, time.Minute)
	}

	fetchCfg := fetch.DefaultConfig(apiURL)
	fetchCfg.Budget = budget
	client, err := fetch.New(fetchCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fetch client")
	}

	paginator := pagination.NewPaginator(client, pagination.DefaultConfig())
	snapshots := cache.NewFetchCache(ttl, cacheOpts...)

	engCfg := engine.DefaultConfig()
	engCfg.PageSize = pageSize
	eng, err := engine.New(paginator, snapshots, engCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create engine")
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/report", reportHandler(eng))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("api_url", apiURL).
		Msg("Starting progress server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports readiness. Redis is optional, so readiness only
// fails when a configured Redis stops answering.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// reportResponse is the JSON shape of GET /report.
type reportResponse struct {
	Orders      []orderSummary               `json:"orders"`
	Rollups     map[string][]rollupRow       `json:"rollups"`
	Rows        []aggregate.Row              `json:"rows,omitempty"`
	Incomplete  bool                         `json:"incomplete"`
	FailedPages map[string][]int             `json:"failedPages,omitempty"`
	Diagnostics aggregateDiagnosticsResponse `json:"diagnostics"`
}

type orderSummary struct {
	ID              string  `json:"id"`
	Activity        string  `json:"activity"`
	Status          string  `json:"status"`
	PlannedQuantity float64 `json:"plannedQuantity"`
	WorkedQuantity  float64 `json:"workedQuantity"`
	CompletionRatio float64 `json:"completionRatio"`
	WorkDays        int     `json:"workDays"`
}

type rollupRow struct {
	Label    string  `json:"label"`
	Quantity float64 `json:"quantity"`
}

type aggregateDiagnosticsResponse struct {
	UnmatchedEntries int      `json:"unmatchedEntries"`
	Ambiguities      int      `json:"ambiguities"`
	FlaggedOrders    []string `json:"flaggedOrders,omitempty"`
}

// reportHandler runs the aggregation pipeline and renders the report.
// Query parameters: group_by (comma-separated dimensions), active_only,
// include_rows.
func reportHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		opts := aggregate.Options{
			ActiveOnly: r.URL.Query().Get("active_only") == "true",
		}
		for _, dim := range strings.Split(r.URL.Query().Get("group_by"), ",") {
			if dim = strings.TrimSpace(dim); dim != "" {
				opts.GroupBy = append(opts.GroupBy, aggregate.Dimension(dim))
			}
		}
		if err := opts.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := eng.Run(ctx, opts)
		if err != nil {
			log.Error().Err(err).Msg("Aggregation run failed")
			http.Error(w, fmt.Sprintf("aggregation failed: %v", err), http.StatusBadGateway)
			return
		}

		resp := reportResponse{
			Rollups:     make(map[string][]rollupRow, len(result.Report.Rollups)),
			Incomplete:  result.Incomplete(),
			FailedPages: result.FailedPages,
			Diagnostics: aggregateDiagnosticsResponse{
				UnmatchedEntries: len(result.Report.Diagnostics.Unmatched),
				Ambiguities:      len(result.Report.Diagnostics.Ambiguities),
				FlaggedOrders:    result.Report.Diagnostics.FlaggedOrders,
			},
		}
		for _, progress := range result.Report.Orders {
			resp.Orders = append(resp.Orders, orderSummary{
				ID:              progress.Order.ID,
				Activity:        progress.Order.Activity,
				Status:          string(progress.Status),
				PlannedQuantity: progress.Order.PlannedQuantity,
				WorkedQuantity:  progress.WorkedQuantity,
				CompletionRatio: progress.CompletionRatio,
				WorkDays:        progress.DistinctWorkDays,
			})
		}
		for dim, rollup := range result.Report.Rollups {
			rows := make([]rollupRow, 0, len(rollup.Ordered))
			for _, row := range rollup.Ordered {
				rows = append(rows, rollupRow{Label: row.Label, Quantity: row.Quantity})
			}
			resp.Rollups[string(dim)] = rows
		}
		if r.URL.Query().Get("include_rows") == "true" {
			resp.Rows = result.Report.Rows
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("Failed to write report response")
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
