package fetch

import (
	"errors"
	"testing"
)

func TestNormalizeEnvelope_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantItems int
	}{
		{
			name:      "bare array",
			body:      `[{"id":"A1"},{"id":"A2"}]`,
			wantItems: 2,
		},
		{
			name:      "data wrapper",
			body:      `{"data":[{"id":"A1"}]}`,
			wantItems: 1,
		},
		{
			name:      "collection-named wrapper",
			body:      `{"workorders":[{"id":"A1"},{"id":"A2"},{"id":"A3"}]}`,
			wantItems: 3,
		},
		{
			name:      "results wrapper",
			body:      `{"results":[{"id":"A1"}]}`,
			wantItems: 1,
		},
		{
			name:      "empty bare array",
			body:      `[]`,
			wantItems: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, _, err := normalizeEnvelope([]byte(tt.body), "workorders")
			if err != nil {
				t.Fatalf("normalizeEnvelope failed: %v", err)
			}
			if len(items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(items), tt.wantItems)
			}
		})
	}
}

func TestNormalizeEnvelope_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown wrapper key", `{"payload":[{"id":"A1"}]}`},
		{"scalar body", `42`},
		{"invalid json", `{"data":`},
		{"non-object elements", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := normalizeEnvelope([]byte(tt.body), "workorders")
			if !errors.Is(err, ErrUnknownEnvelope) {
				t.Errorf("err = %v, want ErrUnknownEnvelope", err)
			}
		})
	}
}

func TestTotalPagesFromEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		envelope map[string]any
		want     int
	}{
		{
			name:     "pagination.pages",
			envelope: map[string]any{"pagination": map[string]any{"pages": float64(7)}},
			want:     7,
		},
		{
			name:     "pagination.total_pages",
			envelope: map[string]any{"pagination": map[string]any{"total_pages": float64(3)}},
			want:     3,
		},
		{
			name:     "top-level total_pages",
			envelope: map[string]any{"total_pages": float64(4)},
			want:     4,
		},
		{
			name:     "string page count",
			envelope: map[string]any{"pages": "5"},
			want:     5,
		},
		{
			name:     "absent metadata defaults to one page",
			envelope: map[string]any{"data": []any{}},
			want:     1,
		},
		{
			name:     "nil envelope (bare array)",
			envelope: nil,
			want:     1,
		},
		{
			name:     "malformed count defaults to one page",
			envelope: map[string]any{"pages": "many"},
			want:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := totalPagesFromEnvelope(tt.envelope); got != tt.want {
				t.Errorf("totalPagesFromEnvelope() = %d, want %d", got, tt.want)
			}
		})
	}
}
