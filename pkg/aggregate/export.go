package aggregate

import (
	"context"
	"time"

	"github.com/fieldops/workorder-progress/pkg/model"
	"github.com/fieldops/workorder-progress/pkg/reconcile"
)

// Row is one flat line of the tabular output handed to export adapters
// and dashboard tables. One row per matched progress entry.
type Row struct {
	Date       time.Time `json:"date"`
	Field      string    `json:"field"`
	Plot       string    `json:"plot"`
	Activity   string    `json:"activity"`
	Provider   string    `json:"provider"`
	Supervisor string    `json:"supervisor"`
	Quantity   float64   `json:"quantity"`
}

// ExportAdapter renders already-computed rows into a spreadsheet, PDF or
// any other external format. Implementations live outside this module.
type ExportAdapter interface {
	Export(ctx context.Context, rows []Row) error
}

// buildRows flattens derived order progress into export rows, resolving
// provider/supervisor display names when the reference collections were
// supplied. Row order follows order input order, entries chronological.
func buildRows(orders []model.OrderProgress, opts Options) []Row {
	bare := make([]model.WorkOrder, 0, len(orders))
	for _, progress := range orders {
		bare = append(bare, progress.Order)
	}
	providerByOrder := reconcile.AssociateProviders(bare, opts.Providers)
	supervisorByOrder := reconcile.AssociateSupervisors(bare, opts.Supervisors)

	var rows []Row
	for _, progress := range orders {
		order := progress.Order

		provider := order.ProviderID
		if p, ok := providerByOrder[order.ID]; ok {
			provider = p.Name
		}
		supervisor := order.SupervisorID
		if s, ok := supervisorByOrder[order.ID]; ok {
			supervisor = s.Name
		}

		for _, entry := range progress.Entries {
			rows = append(rows, Row{
				Date:       entry.Date,
				Field:      order.Field,
				Plot:       order.Plot,
				Activity:   order.Activity,
				Provider:   provider,
				Supervisor: supervisor,
				Quantity:   entry.Quantity,
			})
		}
	}
	return rows
}
