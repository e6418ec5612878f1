package aggregate

import (
	"sort"

	"github.com/fieldops/workorder-progress/pkg/model"
)

// Dimension selects the grouping key of a rollup.
type Dimension string

const (
	// GroupByProvider groups worked quantity by provider foreign key.
	GroupByProvider Dimension = "provider"

	// GroupBySupervisor groups worked quantity by supervisor foreign key.
	GroupBySupervisor Dimension = "supervisor"

	// GroupByActivity groups worked quantity by activity label.
	GroupByActivity Dimension = "activity"
)

// UnassignedLabel groups orders whose dimension value is absent.
// Absent keys are aggregated visibly rather than dropped.
const UnassignedLabel = "(unassigned)"

// Rollup is a pure projection of OrderProgress: recomputed every pass,
// never merged incrementally.
type Rollup struct {
	// Totals maps group label to summed worked quantity.
	Totals map[string]float64

	// Ordered lists the groups for presentation: descending summed
	// quantity, ties broken by label ascending.
	Ordered []model.RollupRow
}

// allDimensions is the default grouping set.
var allDimensions = []Dimension{GroupByProvider, GroupBySupervisor, GroupByActivity}

// buildRollups computes the requested rollups from derived order progress.
func buildRollups(orders []model.OrderProgress, groupBy []Dimension) map[Dimension]Rollup {
	if len(groupBy) == 0 {
		groupBy = allDimensions
	}

	rollups := make(map[Dimension]Rollup, len(groupBy))
	for _, dim := range groupBy {
		rollups[dim] = buildRollup(orders, dim)
	}
	return rollups
}

func buildRollup(orders []model.OrderProgress, dim Dimension) Rollup {
	totals := make(map[string]float64)
	for _, progress := range orders {
		totals[groupLabel(progress.Order, dim)] += progress.WorkedQuantity
	}

	ordered := make([]model.RollupRow, 0, len(totals))
	for label, quantity := range totals {
		ordered = append(ordered, model.RollupRow{Label: label, Quantity: quantity})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Quantity != ordered[j].Quantity {
			return ordered[i].Quantity > ordered[j].Quantity
		}
		return ordered[i].Label < ordered[j].Label
	})

	return Rollup{Totals: totals, Ordered: ordered}
}

func groupLabel(order model.WorkOrder, dim Dimension) string {
	var label string
	switch dim {
	case GroupByProvider:
		label = order.ProviderID
	case GroupBySupervisor:
		label = order.SupervisorID
	case GroupByActivity:
		label = order.Activity
	}
	if label == "" {
		return UnassignedLabel
	}
	return label
}
