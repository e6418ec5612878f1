package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The remote API evolved field names over time and across backends: the
// same collection may spell its identifier "id", "_id" or "orderId", and
// numbers arrive as JSON numbers or as strings. Decoding is therefore
// tolerant: the first recognized spelling wins, absent fields stay zero.

// DecodeWorkOrder converts a raw record into a WorkOrder.
func DecodeWorkOrder(raw RawRecord) WorkOrder {
	order := WorkOrder{
		ID:              pickString(raw, "id", "_id", "orderId"),
		ProviderID:      refString(raw, "providerId", "provider_id", "provider"),
		SupervisorID:    refString(raw, "supervisorId", "supervisor_id", "supervisor"),
		ProviderName:    nestedName(raw, "provider"),
		SupervisorName:  nestedName(raw, "supervisor"),
		PlannedQuantity: pickFloat(raw, "plannedQuantity", "planned_quantity", "hectares", "quantity"),
		Unit:            pickString(raw, "unit"),
		Activity:        pickString(raw, "activity", "activityName"),
		Field:           pickString(raw, "field", "farm"),
		Plot:            pickString(raw, "plot", "stand"),
		Date:            pickDate(raw, "date", "issuedAt"),
		StatusRaw:       pickString(raw, "status", "state"),
	}

	// Display and numeric order numbers are matching aliases, never
	// identity.
	for _, key := range []string{"number", "orderNumber", "displayNumber"} {
		if alt := coerceString(raw[key]); alt != "" && alt != order.ID {
			order.AlternateIDs = append(order.AlternateIDs, alt)
		}
	}

	return order
}

// DecodeProgressEntry converts a raw record into a ProgressEntry.
// Reference fields keep their raw value: resolving them is the
// reconciler's job.
func DecodeProgressEntry(raw RawRecord) ProgressEntry {
	return ProgressEntry{
		ID:            pickString(raw, "id", "_id"),
		OrderRef:      pickRef(raw, "orderId", "order_id", "order", "workOrder", "orderNumber"),
		Quantity:      pickFloat(raw, "quantity", "workedQuantity", "hectares"),
		Date:          pickDate(raw, "date", "workDate"),
		CrewRef:       pickRef(raw, "crewId", "crew_id", "crew"),
		ProviderRef:   pickRef(raw, "providerId", "provider_id", "provider"),
		SupervisorRef: pickRef(raw, "supervisorId", "supervisor_id", "supervisor"),
	}
}

// DecodeWorkOrders decodes a raw snapshot, skipping records without any
// usable identifier (they could never be matched or reported).
func DecodeWorkOrders(records []RawRecord) []WorkOrder {
	orders := make([]WorkOrder, 0, len(records))
	for _, raw := range records {
		order := DecodeWorkOrder(raw)
		if order.ID == "" && len(order.AlternateIDs) == 0 {
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

// DecodeProgressEntries decodes a raw snapshot. Entries without an order
// reference are kept; the reconciler reports them as unmatched.
func DecodeProgressEntries(records []RawRecord) []ProgressEntry {
	entries := make([]ProgressEntry, 0, len(records))
	for _, raw := range records {
		entries = append(entries, DecodeProgressEntry(raw))
	}
	return entries
}

// pickString returns the first non-empty string form among the keys.
func pickString(raw RawRecord, keys ...string) string {
	for _, key := range keys {
		if s := coerceString(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

// pickRef returns the first present reference value among the keys, raw.
// Nested objects contribute their own identifier.
func pickRef(raw RawRecord, keys ...string) any {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case nil:
			continue
		case map[string]any:
			if id := pickString(RawRecord(v), "id", "_id"); id != "" {
				return id
			}
		default:
			return v
		}
	}
	return nil
}

// refString is pickRef normalized to a string foreign key.
func refString(raw RawRecord, keys ...string) string {
	return coerceString(pickRef(raw, keys...))
}

// nestedName extracts a display name from an embedded reference object.
func nestedName(raw RawRecord, key string) string {
	if obj, ok := raw[key].(map[string]any); ok {
		return pickString(RawRecord(obj), "name", "displayName")
	}
	return ""
}

// pickFloat returns the first parseable numeric value among the keys.
func pickFloat(raw RawRecord, keys ...string) float64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// pickDate parses the first recognizable date among the keys.
// Accepts RFC 3339 timestamps and bare dates.
func pickDate(raw RawRecord, keys ...string) time.Time {
	for _, key := range keys {
		s, ok := raw[key].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// coerceString normalizes a raw identifier-ish value to a string.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return fmt.Sprintf("%g", s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}
