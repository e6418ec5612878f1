package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fieldops/workorder-progress/pkg/fetch"
	"github.com/fieldops/workorder-progress/pkg/model"
)

// fakeFetcher serves synthetic pages and injects failures per page number.
type fakeFetcher struct {
	mu         sync.Mutex
	totalPages int
	failPages  map[int]error
	calls      map[int]int
}

func newFakeFetcher(totalPages int) *fakeFetcher {
	return &fakeFetcher{
		totalPages: totalPages,
		failPages:  make(map[int]error),
		calls:      make(map[int]int),
	}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, collection string, page, pageSize int) (fetch.PageResult, error) {
	f.mu.Lock()
	f.calls[page]++
	f.mu.Unlock()

	if err, ok := f.failPages[page]; ok {
		return fetch.PageResult{}, err
	}
	return fetch.PageResult{
		Items: []model.RawRecord{
			{"id": fmt.Sprintf("rec-%d", page), "page": float64(page)},
		},
		TotalPages: f.totalPages,
	}, nil
}

func (f *fakeFetcher) callCount(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[page]
}

// fastRetry keeps test runtime down.
func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchDelay = time.Millisecond
	cfg.Retry = fastRetry()
	return cfg
}

func clientError(page int) error {
	return &fetch.APIError{
		Collection: "workorders",
		Page:       page,
		StatusCode: 404,
		ErrorClass: fetch.ErrorClassClient,
		Message:    "not found",
	}
}

func serverError(page int) error {
	return &fetch.APIError{
		Collection: "workorders",
		Page:       page,
		StatusCode: 502,
		ErrorClass: fetch.ErrorClassServer,
		Message:    "bad gateway",
	}
}

func TestFetchAll_AllPages(t *testing.T) {
	fetcher := newFakeFetcher(7)
	p := NewPaginator(fetcher, testConfig())

	result, err := p.FetchAll(context.Background(), "workorders", 100)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if result.TotalPages != 7 {
		t.Errorf("TotalPages = %d, want 7", result.TotalPages)
	}
	if len(result.Items) != 7 {
		t.Errorf("items = %d, want 7", len(result.Items))
	}
	if result.Incomplete() {
		t.Errorf("unexpected failed pages: %v", result.FailedPages)
	}

	// Page order must survive concurrent fetching.
	for i, item := range result.Items {
		if got := item["page"].(float64); got != float64(i+1) {
			t.Errorf("item %d from page %v, want page %d", i, got, i+1)
		}
	}
}

func TestFetchAll_SinglePage(t *testing.T) {
	fetcher := newFakeFetcher(1)
	p := NewPaginator(fetcher, testConfig())

	result, err := p.FetchAll(context.Background(), "workorders", 100)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(result.Items) != 1 || result.TotalPages != 1 {
		t.Errorf("got %d items, %d pages, want 1 and 1", len(result.Items), result.TotalPages)
	}
	if fetcher.callCount(1) != 1 {
		t.Errorf("page 1 fetched %d times, want 1", fetcher.callCount(1))
	}
}

func TestFetchAll_PartialFailure(t *testing.T) {
	// Page 3 of 5 fails persistently with a client error. The remaining
	// pages must still be returned, in order, with page 3 reported.
	fetcher := newFakeFetcher(5)
	fetcher.failPages[3] = clientError(3)
	p := NewPaginator(fetcher, testConfig())

	result, err := p.FetchAll(context.Background(), "workorders", 100)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if !result.Incomplete() {
		t.Fatal("expected incomplete result")
	}
	if len(result.FailedPages) != 1 || result.FailedPages[0] != 3 {
		t.Errorf("FailedPages = %v, want [3]", result.FailedPages)
	}
	if len(result.Items) != 4 {
		t.Errorf("items = %d, want 4", len(result.Items))
	}

	wantPages := []float64{1, 2, 4, 5}
	for i, item := range result.Items {
		if got := item["page"].(float64); got != wantPages[i] {
			t.Errorf("item %d from page %v, want %v", i, got, wantPages[i])
		}
	}
}

func TestFetchAll_ClientErrorNotRetried(t *testing.T) {
	fetcher := newFakeFetcher(3)
	fetcher.failPages[2] = clientError(2)
	p := NewPaginator(fetcher, testConfig())

	if _, err := p.FetchAll(context.Background(), "workorders", 100); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if got := fetcher.callCount(2); got != 1 {
		t.Errorf("client-error page fetched %d times, want 1", got)
	}
}

func TestFetchAll_ServerErrorRetried(t *testing.T) {
	fetcher := newFakeFetcher(3)
	fetcher.failPages[2] = serverError(2)
	p := NewPaginator(fetcher, testConfig())

	result, err := p.FetchAll(context.Background(), "workorders", 100)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if got := fetcher.callCount(2); got != 3 {
		t.Errorf("server-error page fetched %d times, want 3", got)
	}
	if len(result.FailedPages) != 1 || result.FailedPages[0] != 2 {
		t.Errorf("FailedPages = %v, want [2]", result.FailedPages)
	}
}

func TestFetchAll_FirstPageFailure(t *testing.T) {
	fetcher := newFakeFetcher(5)
	fetcher.failPages[1] = clientError(1)
	p := NewPaginator(fetcher, testConfig())

	if _, err := p.FetchAll(context.Background(), "workorders", 100); err == nil {
		t.Fatal("expected hard error when first page fails")
	}
}

func TestFetchAll_InvalidInput(t *testing.T) {
	p := NewPaginator(newFakeFetcher(1), testConfig())

	if _, err := p.FetchAll(context.Background(), "", 100); !errors.Is(err, fetch.ErrInvalidInput) {
		t.Errorf("empty collection: err = %v, want ErrInvalidInput", err)
	}
	if _, err := p.FetchAll(context.Background(), "workorders", 0); !errors.Is(err, fetch.ErrInvalidInput) {
		t.Errorf("zero page size: err = %v, want ErrInvalidInput", err)
	}
}

func TestFetchAll_ContextCancellation(t *testing.T) {
	fetcher := newFakeFetcher(50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPaginator(fetcher, testConfig())
	if _, err := p.FetchAll(ctx, "workorders", 100); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewPaginator_Defaults(t *testing.T) {
	p := NewPaginator(newFakeFetcher(1), Config{})

	if p.config.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", p.config.BatchSize)
	}
	if p.config.PageTimeout != 30*time.Second {
		t.Errorf("PageTimeout = %v, want 30s", p.config.PageTimeout)
	}
	if p.config.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", p.config.Retry.MaxAttempts)
	}
}
