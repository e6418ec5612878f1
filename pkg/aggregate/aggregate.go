// Package aggregate computes per-order completion metrics and grouped
// rollups from reconciled work orders and progress entries.
//
// Aggregation is a pure function of the two input snapshots: derived
// records are rebuilt wholesale on every pass, inputs are never mutated,
// and identical snapshots produce identical output. This is what makes the
// numbers safe to share between the dashboard and export paths.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fieldops/workorder-progress/pkg/model"
	"github.com/fieldops/workorder-progress/pkg/reconcile"
)

// ErrNoOrders is returned when aggregation is invoked with zero orders.
// Export paths refuse to proceed in that case.
var ErrNoOrders = errors.New("no work orders to aggregate")

// FlagNegativePlanned marks an order whose planned quantity was negative.
// The order is kept with ratio 0 instead of producing a nonsense ratio.
const FlagNegativePlanned = "negative_planned_quantity"

// Options configures an aggregation pass.
type Options struct {
	// GroupBy selects the rollup dimensions. Empty means all.
	GroupBy []Dimension

	// ActiveOnly excludes orders whose source status classifies as
	// completed or cancelled before computing metrics.
	ActiveOnly bool

	// Classifier maps source status tokens to the status enum.
	// Defaults to model.DefaultClassifier.
	Classifier model.StatusClassifier

	// Providers and Supervisors resolve display names for export rows.
	// Optional; raw foreign keys are used when absent.
	Providers   []reconcile.Party
	Supervisors []reconcile.Party
}

// Diagnostics carries the data-quality findings of one aggregation pass.
// All of it is non-fatal; dashboards use it to show a "data may be
// incomplete" indicator.
type Diagnostics struct {
	Unmatched     []model.ProgressEntry
	Ambiguities   []reconcile.Ambiguity
	FlaggedOrders []string
}

// Report is the output of one aggregation pass.
type Report struct {
	// Orders holds per-order progress in input order.
	Orders []model.OrderProgress

	// Rollups holds worked-quantity totals per requested dimension.
	Rollups map[Dimension]Rollup

	// Rows is the flat tabular output consumed by export adapters.
	Rows []Row

	Diagnostics Diagnostics
}

// Aggregate computes per-order completion state and grouped rollups.
// Orders and entries are read-only snapshots; the report is rebuilt from
// scratch so calling twice with unchanged inputs yields identical output.
func Aggregate(orders []model.WorkOrder, entries []model.ProgressEntry, opts Options) (Report, error) {
	if len(orders) == 0 {
		return Report{}, ErrNoOrders
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = model.DefaultClassifier
	}

	if opts.ActiveOnly {
		orders = filterActive(orders, classifier)
	}

	matched := reconcile.Match(orders, entries)

	report := Report{
		Orders: make([]model.OrderProgress, 0, len(orders)),
		Diagnostics: Diagnostics{
			Unmatched:   matched.Unmatched,
			Ambiguities: matched.Ambiguities,
		},
	}

	for _, order := range orders {
		progress := computeProgress(order, matched.Matched[order.ID], classifier)
		if len(progress.Flags) > 0 {
			report.Diagnostics.FlaggedOrders = append(report.Diagnostics.FlaggedOrders, order.ID)
		}
		report.Orders = append(report.Orders, progress)
	}

	report.Rollups = buildRollups(report.Orders, opts.GroupBy)
	report.Rows = buildRows(report.Orders, opts)

	return report, nil
}

// computeProgress derives the completion record for one order from its
// matched entries.
func computeProgress(order model.WorkOrder, entries []model.ProgressEntry, classifier model.StatusClassifier) model.OrderProgress {
	// Chronological, oldest first. Stable so equal dates keep the
	// reconciler's input order and re-aggregation stays bit-identical.
	sorted := make([]model.ProgressEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	progress := model.OrderProgress{
		Order:   order,
		Entries: sorted,
	}

	days := make(map[string]struct{}, len(sorted))
	for _, entry := range sorted {
		progress.WorkedQuantity += entry.Quantity
		days[entry.Date.Format("2006-01-02")] = struct{}{}
	}
	progress.DistinctWorkDays = len(days)

	switch {
	case order.PlannedQuantity < 0:
		progress.Flags = append(progress.Flags, FlagNegativePlanned)
		progress.CompletionRatio = 0
	case order.PlannedQuantity == 0:
		progress.CompletionRatio = 0
	default:
		ratio := progress.WorkedQuantity / order.PlannedQuantity
		if ratio > 1 {
			ratio = 1
		}
		progress.CompletionRatio = ratio
	}

	progress.Status = deriveStatus(order, progress, classifier)
	return progress
}

// deriveStatus computes the order status. A terminal source status wins
// over the computed ratio; otherwise the ratio decides.
func deriveStatus(order model.WorkOrder, progress model.OrderProgress, classifier model.StatusClassifier) model.OrderStatus {
	if raw := classifier(order.StatusRaw); raw.Terminal() {
		return raw
	}

	switch {
	case len(progress.Entries) == 0:
		return model.StatusPending
	case progress.CompletionRatio >= 1:
		return model.StatusCompleted
	default:
		return model.StatusInProgress
	}
}

// filterActive drops orders whose source status is terminal.
func filterActive(orders []model.WorkOrder, classifier model.StatusClassifier) []model.WorkOrder {
	active := make([]model.WorkOrder, 0, len(orders))
	for _, order := range orders {
		if classifier(order.StatusRaw).Terminal() {
			continue
		}
		active = append(active, order)
	}
	return active
}

// Validate checks an options struct for mistakes that would otherwise
// surface as confusing output.
func (o Options) Validate() error {
	for _, dim := range o.GroupBy {
		switch dim {
		case GroupByProvider, GroupBySupervisor, GroupByActivity:
		default:
			return fmt.Errorf("unknown rollup dimension %q", dim)
		}
	}
	return nil
}
