// Package testutil provides testing utilities for the work-order backend API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// EnvelopeStyle selects the response envelope a mock collection uses.
type EnvelopeStyle string

const (
	// EnvelopeBareArray serves pages as a bare JSON array.
	EnvelopeBareArray EnvelopeStyle = "bare"

	// EnvelopeData wraps pages as {"data": [...], "pagination": {...}}.
	EnvelopeData EnvelopeStyle = "data"

	// EnvelopeCollection wraps pages under the collection name.
	EnvelopeCollection EnvelopeStyle = "collection"

	// EnvelopeResults wraps pages as {"results": [...], "total_pages": n}.
	EnvelopeResults EnvelopeStyle = "results"
)

// collection holds the records and envelope style of one mock collection.
type collection struct {
	records  []map[string]any
	style    EnvelopeStyle
	pageSize int
}

// MockAPI is a configurable mock work-order backend for testing. It serves
// paginated collections at GET /{collection}?page=n&limit=m in any of the
// envelope shapes the real backends produce, and tracks request counts so
// tests can assert on coalescing and caching behavior.
type MockAPI struct {
	server *httptest.Server

	mu          sync.RWMutex
	collections map[string]*collection
	handlers    map[string]http.HandlerFunc
	failures    map[string]failure
	delay       time.Duration

	requestCount map[string]int
}

// failure injects an error response for specific pages of a collection.
type failure struct {
	pages      map[int]bool
	statusCode int
}

// NewMockAPI creates a mock backend with no collections configured.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		collections:  make(map[string]*collection),
		handlers:     make(map[string]http.HandlerFunc),
		failures:     make(map[string]failure),
		requestCount: make(map[string]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetCollection installs the full record set of a collection. The mock slices
// it into pages of pageSize and reports the page count in the envelope.
func (m *MockAPI) SetCollection(name string, style EnvelopeStyle, pageSize int, records []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = &collection{
		records:  records,
		style:    style,
		pageSize: pageSize,
	}
}

// SetHandler overrides the handler for one path entirely.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// FailPages makes specific pages of a collection return the given status.
func (m *MockAPI) FailPages(name string, statusCode int, pages ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := failure{pages: make(map[int]bool), statusCode: statusCode}
	for _, p := range pages {
		f.pages[p] = true
	}
	m.failures[name] = f
}

// SetDelay adds a fixed latency to every response.
func (m *MockAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// RequestCount returns how many requests hit a collection.
func (m *MockAPI) RequestCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount[name]
}

// TotalRequests returns the number of requests across all collections.
func (m *MockAPI) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requestCount {
		total += n
	}
	return total
}

// Reset clears request counters without touching collection data.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = make(map[string]int)
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}

	m.mu.Lock()
	m.requestCount[name]++
	delay := m.delay
	handler := m.handlers[r.URL.Path]
	col := m.collections[name]
	fail, hasFail := m.failures[name]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if handler != nil {
		handler(w, r)
		return
	}
	if col == nil {
		http.NotFound(w, r)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", col.pageSize)

	if hasFail && fail.pages[page] {
		w.WriteHeader(fail.statusCode)
		fmt.Fprintf(w, `{"error":"injected failure for page %d"}`, page)
		return
	}

	records, totalPages := slicePage(col.records, page, limit)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeEnvelope(w, name, col.style, records, totalPages)
}

// slicePage cuts the record set into the requested page.
func slicePage(records []map[string]any, page, limit int) ([]map[string]any, int) {
	if limit < 1 {
		limit = 100
	}
	totalPages := (len(records) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start >= len(records) {
		return []map[string]any{}, totalPages
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], totalPages
}

// writeEnvelope renders one page in the configured envelope shape.
func writeEnvelope(w http.ResponseWriter, name string, style EnvelopeStyle, records []map[string]any, totalPages int) {
	enc := json.NewEncoder(w)
	switch style {
	case EnvelopeData:
		enc.Encode(map[string]any{
			"data": records,
			"pagination": map[string]any{
				"pages": totalPages,
			},
		})
	case EnvelopeCollection:
		enc.Encode(map[string]any{
			name:          records,
			"total_pages": totalPages,
		})
	case EnvelopeResults:
		enc.Encode(map[string]any{
			"results":     records,
			"total_pages": totalPages,
		})
	default:
		// Bare array cannot carry page metadata; callers get one page.
		enc.Encode(records)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// WorkOrderRecord builds a raw work-order record in the backend's wire shape.
func WorkOrderRecord(id string, planned float64, activity, provider, status string) map[string]any {
	return map[string]any{
		"id":              id,
		"plannedQuantity": planned,
		"activity":        activity,
		"provider":        map[string]any{"_id": provider, "name": "Provider " + provider},
		"status":          status,
		"unit":            "ha",
	}
}

// ProgressRecord builds a raw progress-entry record in the backend's wire shape.
func ProgressRecord(id string, orderRef any, quantity float64, date string) map[string]any {
	return map[string]any{
		"id":        id,
		"workOrder": orderRef,
		"quantity":  quantity,
		"date":      date,
	}
}
