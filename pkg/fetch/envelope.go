package fetch

import (
	"encoding/json"
	"fmt"

	"github.com/fieldops/workorder-progress/pkg/model"
)

// normalizeEnvelope extracts the record list from one of the envelope shapes
// the remote API is known to produce:
//
//	[...]                      bare array
//	{"data": [...]}            generic wrapper
//	{"<collection>": [...]}    collection-named wrapper
//	{"results": [...]}         paginator wrapper
//
// An unrecognized shape yields ErrUnknownEnvelope, never a panic.
func normalizeEnvelope(body []byte, collection string) ([]model.RawRecord, map[string]any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: decode body: %v", ErrUnknownEnvelope, err)
	}

	switch v := payload.(type) {
	case []any:
		items, err := toRawRecords(v)
		if err != nil {
			return nil, nil, err
		}
		return items, nil, nil

	case map[string]any:
		for _, key := range []string{"data", collection, "results"} {
			list, ok := v[key].([]any)
			if !ok {
				continue
			}
			items, err := toRawRecords(list)
			if err != nil {
				return nil, nil, err
			}
			return items, v, nil
		}
		return nil, nil, fmt.Errorf("%w: object has none of data/%s/results", ErrUnknownEnvelope, collection)

	default:
		return nil, nil, fmt.Errorf("%w: body is %T", ErrUnknownEnvelope, payload)
	}
}

// toRawRecords converts a decoded JSON array into RawRecords.
// Non-object elements are rejected rather than skipped so malformed pages
// surface as failed pages instead of silently shrinking the snapshot.
func toRawRecords(list []any) ([]model.RawRecord, error) {
	items := make([]model.RawRecord, 0, len(list))
	for i, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, not an object", ErrUnknownEnvelope, i, el)
		}
		items = append(items, model.RawRecord(obj))
	}
	return items, nil
}

// totalPagesFromEnvelope reads the page count from pagination metadata.
// Checks pagination.pages first, then the top-level total_pages and pages
// fields some backends use. Defaults to 1 when absent or malformed.
func totalPagesFromEnvelope(envelope map[string]any) int {
	if envelope == nil {
		return 1
	}

	if pag, ok := envelope["pagination"].(map[string]any); ok {
		if n, ok := asPositiveInt(pag["pages"]); ok {
			return n
		}
		if n, ok := asPositiveInt(pag["total_pages"]); ok {
			return n
		}
	}
	if n, ok := asPositiveInt(envelope["total_pages"]); ok {
		return n
	}
	if n, ok := asPositiveInt(envelope["pages"]); ok {
		return n
	}
	return 1
}

// asPositiveInt coerces a decoded JSON value to a page count.
// JSON numbers decode as float64; some backends send counts as strings.
func asPositiveInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n >= 1 && n == float64(int(n)) {
			return int(n), true
		}
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil && parsed >= 1 {
			return parsed, true
		}
	}
	return 0, false
}
