// Package reconcile matches progress entries to their owning work orders
// across inconsistent identifier representations.
//
// The two collections are paginated and evolved independently: one caller
// stores the order reference as a string, another as a number, a third as a
// display number that only appears among the order's alternate identifiers.
// Instead of guessing a single correct schema, every entity gets a tagged
// candidate-key set and a match is any non-empty intersection. This keeps
// the reconciler total: every entry is either matched to exactly one order
// or reported as unmatched, never silently dropped.
package reconcile

import (
	"github.com/rs/zerolog/log"

	"github.com/fieldops/workorder-progress/pkg/model"
)

// Ambiguity records an entry whose candidate keys intersected more than one
// order. Diagnostic only; the first order in input order wins.
type Ambiguity struct {
	EntryID           string
	ChosenOrderID     string
	CandidateOrderIDs []string
}

// MatchResult is the outcome of matching entries against orders.
type MatchResult struct {
	// Matched maps WorkOrder.ID to its progress entries in input order.
	Matched map[string][]model.ProgressEntry

	// Unmatched lists entries whose candidate keys intersected no order.
	Unmatched []model.ProgressEntry

	// Ambiguities lists entries that intersected more than one order.
	Ambiguities []Ambiguity
}

// Match resolves every progress entry to at most one work order.
// Pure function of its inputs: identical snapshots produce identical
// results, and neither slice is mutated.
func Match(orders []model.WorkOrder, entries []model.ProgressEntry) MatchResult {
	result := MatchResult{
		Matched: make(map[string][]model.ProgressEntry, len(orders)),
	}

	// Index every candidate key to the orders carrying it, preserving
	// input order for the ambiguity tie-break.
	type indexedOrder struct {
		pos int
		id  string
	}
	byKey := make(map[string][]indexedOrder)
	for pos, order := range orders {
		for _, key := range orderKeys(order.ID, order.AlternateIDs) {
			byKey[key] = append(byKey[key], indexedOrder{pos: pos, id: order.ID})
		}
	}

	for _, entry := range entries {
		keys := candidateKeys(entry.OrderRef)
		if len(keys) == 0 {
			result.Unmatched = append(result.Unmatched, entry)
			continue
		}

		// Collect every order the candidate set intersects.
		hitPos := make(map[string]int)
		var hitIDs []string
		for _, key := range keys {
			for _, ord := range byKey[key] {
				if _, seen := hitPos[ord.id]; !seen {
					hitPos[ord.id] = ord.pos
					hitIDs = append(hitIDs, ord.id)
				}
			}
		}

		if len(hitIDs) == 0 {
			result.Unmatched = append(result.Unmatched, entry)
			continue
		}

		// First order in input order wins.
		chosen := hitIDs[0]
		for _, id := range hitIDs[1:] {
			if hitPos[id] < hitPos[chosen] {
				chosen = id
			}
		}

		if len(hitIDs) > 1 {
			log.Warn().
				Str("entry_id", entry.ID).
				Str("chosen_order_id", chosen).
				Strs("candidate_order_ids", hitIDs).
				Msg("Ambiguous entry match")
			result.Ambiguities = append(result.Ambiguities, Ambiguity{
				EntryID:           entry.ID,
				ChosenOrderID:     chosen,
				CandidateOrderIDs: hitIDs,
			})
		}

		result.Matched[chosen] = append(result.Matched[chosen], entry)
	}

	return result
}
