package reconcile

import (
	"strings"

	"github.com/fieldops/workorder-progress/pkg/model"
)

// Party is a provider or supervisor reference record as fetched from its
// own collection.
type Party struct {
	ID   string
	Name string
}

// AssociateProviders resolves each order to its provider.
// Returns a map from WorkOrder.ID to the matched party; orders with no
// resolvable provider are absent from the map.
func AssociateProviders(orders []model.WorkOrder, providers []Party) map[string]Party {
	return associate(orders, providers, func(o model.WorkOrder) (string, string) {
		return o.ProviderID, o.ProviderName
	})
}

// AssociateSupervisors resolves each order to its supervisor.
func AssociateSupervisors(orders []model.WorkOrder, supervisors []Party) map[string]Party {
	return associate(orders, supervisors, func(o model.WorkOrder) (string, string) {
		return o.SupervisorID, o.SupervisorName
	})
}

// associate applies the same exact-or-coerced identifier intersection used
// for entry matching, falling back to display-name equality only when no
// identifier is present on either side. The name fallback mirrors backends
// that store only the person's name on older orders.
func associate(orders []model.WorkOrder, parties []Party, ref func(model.WorkOrder) (id, name string)) map[string]Party {
	// Index party candidate keys and normalized names.
	byKey := make(map[string]int)
	byName := make(map[string]int)
	for pos, party := range parties {
		for _, key := range stringKeys(party.ID) {
			if _, ok := byKey[key]; !ok {
				byKey[key] = pos
			}
		}
		name := normalizeName(party.Name)
		if name != "" {
			if _, ok := byName[name]; !ok {
				byName[name] = pos
			}
		}
	}

	matched := make(map[string]Party)
	for _, order := range orders {
		id, name := ref(order)

		found := -1
		for _, key := range stringKeys(id) {
			if pos, ok := byKey[key]; ok {
				found = pos
				break
			}
		}
		if found < 0 && id == "" {
			if pos, ok := byName[normalizeName(name)]; ok {
				found = pos
			}
		}
		if found >= 0 {
			matched[order.ID] = parties[found]
		}
	}
	return matched
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
