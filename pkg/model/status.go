package model

import "strings"

// OrderStatus is the classified state of a work order.
type OrderStatus string

const (
	// StatusIssued means the order exists but work has not been reported.
	StatusIssued OrderStatus = "issued"

	// StatusPending is the derived state of an order with zero matched
	// progress entries.
	StatusPending OrderStatus = "pending"

	// StatusInProgress means at least one entry matched and the
	// completion ratio is below 1.
	StatusInProgress OrderStatus = "in_progress"

	// StatusCompleted means the completion ratio reached 1, or the source
	// marked the order as finished.
	StatusCompleted OrderStatus = "completed"

	// StatusCancelled means the source marked the order as cancelled.
	StatusCancelled OrderStatus = "cancelled"

	// StatusUnknown is returned when a classifier cannot map the token.
	StatusUnknown OrderStatus = "unknown"
)

// Terminal reports whether the status excludes further work on the order.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// StatusClassifier maps an arbitrary source status token to an OrderStatus.
// Backends use inconsistent vocabularies, so classification is pluggable
// rather than hardcoded in the aggregator.
type StatusClassifier func(raw string) OrderStatus

// DefaultClassifier classifies the tokens observed in the field-operations
// backend. Matching is case-insensitive and substring-based because the
// source mixes languages and abbreviations.
func DefaultClassifier(raw string) OrderStatus {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return StatusUnknown
	}

	switch {
	case strings.Contains(token, "cancel"), strings.Contains(token, "anula"):
		return StatusCancelled
	case strings.Contains(token, "final"), strings.Contains(token, "complet"),
		strings.Contains(token, "termin"), strings.Contains(token, "closed"):
		return StatusCompleted
	case strings.Contains(token, "progress"), strings.Contains(token, "ejecu"),
		strings.Contains(token, "curso"):
		return StatusInProgress
	case strings.Contains(token, "emit"), strings.Contains(token, "issued"),
		strings.Contains(token, "open"):
		return StatusIssued
	default:
		return StatusUnknown
	}
}
