package inventory

import (
	"sort"
	"time"
)

// suggestionTiers is the order in which pick priorities are searched
var suggestionTiers = []PickPriority{
	PickPriorityDefault,
	PickPrioritySecondary,
	PickPriorityNone,
}

// SuggestBatch chooses the batch an operator should pick from.
//
// Tiers are searched DEFAULT, then SECONDARY, then NONE. Within a tier only
// unexpired batches holding at least quantityNeeded are eligible, and the
// earliest expiry wins (missing expiry last), then the earliest receipt.
// Returns nil when no batch qualifies. The input slice is not modified.
func SuggestBatch(batches []InventoryBatchItem, quantityNeeded int, today time.Time) *InventoryBatchItem {
	if quantityNeeded <= 0 {
		return nil
	}
	for _, tier := range suggestionTiers {
		var eligible []InventoryBatchItem
		for _, b := range batches {
			if normalisePriority(b.PickPriority) != tier {
				continue
			}
			if b.Quantity < quantityNeeded || b.IsExpiredOn(today) {
				continue
			}
			eligible = append(eligible, b)
		}
		if len(eligible) == 0 {
			continue
		}
		SortFEFO(eligible)
		chosen := eligible[0]
		return &chosen
	}
	return nil
}

// SortFEFO orders batches by expiry ascending (missing expiry last), then
// date received, then creation time. ID breaks remaining ties so the order
// is stable across queries.
func SortFEFO(batches []InventoryBatchItem) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if c := compareExpiry(a.ExpiryDate, b.ExpiryDate); c != 0 {
			return c < 0
		}
		if c := DateOnly(a.DateReceived).Compare(DateOnly(b.DateReceived)); c != 0 {
			return c < 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func normalisePriority(p PickPriority) PickPriority {
	if p == "" {
		return PickPriorityNone
	}
	return p
}
