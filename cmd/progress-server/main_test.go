package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldops/workorder-progress/internal/testutil"
	"github.com/fieldops/workorder-progress/pkg/cache"
	"github.com/fieldops/workorder-progress/pkg/engine"
	"github.com/fieldops/workorder-progress/pkg/fetch"
	"github.com/fieldops/workorder-progress/pkg/pagination"
)

func newTestEngine(t *testing.T, mock *testutil.MockAPI) *engine.Engine {
	t.Helper()

	client, err := fetch.New(fetch.DefaultConfig(mock.URL()))
	if err != nil {
		t.Fatalf("Failed to create fetch client: %v", err)
	}

	cfg := pagination.DefaultConfig()
	cfg.BatchDelay = time.Millisecond
	cfg.Retry = pagination.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	paginator := pagination.NewPaginator(client, cfg)

	eng, err := engine.New(paginator, cache.NewFetchCache(time.Minute), engine.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func seedBackend(mock *testutil.MockAPI) {
	mock.SetCollection("workorders", testutil.EnvelopeData, 100, []map[string]any{
		testutil.WorkOrderRecord("A1", 10, "pruning", "p-1", "Emitida"),
	})
	mock.SetCollection("progress", testutil.EnvelopeResults, 100, []map[string]any{
		testutil.ProgressRecord("e1", "A1", 4, "2026-03-01"),
	})
	mock.SetCollection("providers", testutil.EnvelopeBareArray, 100, []map[string]any{
		{"id": "p-1", "name": "Crew North"},
	})
	mock.SetCollection("supervisors", testutil.EnvelopeBareArray, 100, []map[string]any{})
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint_NoRedis(t *testing.T) {
	// Without a configured Redis the server is always ready.
	handler := readyHandler(nil)

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Result().StatusCode)
	}
}

func TestReportEndpoint(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	seedBackend(mock)

	handler := reportHandler(newTestEngine(t, mock))

	req := httptest.NewRequest("GET", "/report?group_by=provider&include_rows=true", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var report reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(report.Orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(report.Orders))
	}
	if report.Orders[0].WorkedQuantity != 4 {
		t.Errorf("worked = %v, want 4", report.Orders[0].WorkedQuantity)
	}
	if report.Orders[0].CompletionRatio != 0.4 {
		t.Errorf("ratio = %v, want 0.4", report.Orders[0].CompletionRatio)
	}
	if _, ok := report.Rollups["provider"]; !ok {
		t.Error("expected provider rollup")
	}
	if len(report.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(report.Rows))
	}
}

func TestReportEndpoint_InvalidDimension(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	seedBackend(mock)

	handler := reportHandler(newTestEngine(t, mock))

	req := httptest.NewRequest("GET", "/report?group_by=nonsense", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Result().StatusCode)
	}
}

func TestReportEndpoint_BackendDown(t *testing.T) {
	mock := testutil.NewMockAPI()
	mock.Close()

	handler := reportHandler(newTestEngine(t, mock))

	req := httptest.NewRequest("GET", "/report", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Result().StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Result().StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	seedBackend(mock)

	// Run the pipeline once so package metrics are registered and populated.
	handler := reportHandler(newTestEngine(t, mock))
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/report", nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "woprog_fetch_requests_total") {
		t.Error("Expected metrics output to contain woprog_fetch_requests_total")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_DUR", "30s")

	if got := getEnv("TEST_STR", "fallback"); got != "value" {
		t.Errorf("getEnv = %q, want value", got)
	}
	if got := getEnv("TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
	if got := getEnvInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}
	if got := getEnvInt("TEST_MISSING", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want 7", got)
	}
	if got := getEnvDuration("TEST_DUR", time.Minute); got != 30*time.Second {
		t.Errorf("getEnvDuration = %v, want 30s", got)
	}
}
