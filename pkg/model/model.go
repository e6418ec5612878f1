// Package model defines the core types of the work-order progress engine:
// work orders, progress entries and the derived per-order progress records.
package model

import "time"

// RawRecord is a loosely-structured record as returned by the remote
// collection API. Field names and value types vary between backends; the
// fetch and reconcile packages are the only consumers of the raw shape.
type RawRecord map[string]any

// WorkOrder is a read-only snapshot of a planned unit of field work.
type WorkOrder struct {
	// ID is the canonical identifier, normalized to a string.
	ID string

	// AlternateIDs are secondary identifiers seen for this order (numeric
	// form, display number). Used only for matching, never for identity.
	AlternateIDs []string

	// ProviderID and SupervisorID are string-normalized foreign keys.
	// Empty string means the reference is absent.
	ProviderID   string
	SupervisorID string

	// ProviderName and SupervisorName carry display names for the
	// name-equality fallback during association.
	ProviderName   string
	SupervisorName string

	// PlannedQuantity is the target quantity in Unit (e.g. hectares).
	PlannedQuantity float64
	Unit            string

	// Descriptive attributes, opaque to the engine.
	Activity string
	Field    string
	Plot     string
	Date     time.Time

	// StatusRaw is the original status token from the source.
	StatusRaw string
}

// ProgressEntry is a dated record of quantity completed against an order.
type ProgressEntry struct {
	ID string

	// OrderRef is the raw order reference as supplied by the source
	// (string or number). Resolution to WorkOrder.ID is the reconciler's
	// job, never assumed pre-resolved.
	OrderRef any

	Quantity float64

	// Date is the occurrence date, distinct from any registration date.
	Date time.Time

	// Optional raw references, same reconciliation treatment as OrderRef.
	CrewRef       any
	ProviderRef   any
	SupervisorRef any
}

// OrderProgress is the derived per-order completion record. It is rebuilt
// wholesale on every aggregation pass and never mutated incrementally.
type OrderProgress struct {
	Order WorkOrder

	// Entries are the matched progress entries, oldest first.
	Entries []ProgressEntry

	WorkedQuantity   float64
	CompletionRatio  float64
	DistinctWorkDays int

	Status OrderStatus

	// Flags carries data-quality markers such as
	// "negative_planned_quantity".
	Flags []string
}

// RollupRow is one group of a rollup, ordered for presentation.
type RollupRow struct {
	Label    string
	Quantity float64
}
