package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// ReconciliationKey is the most specific identity a counted row can match on.
// Labels are compared case-insensitively with surrounding spaces removed.
type ReconciliationKey struct {
	WarehouseProductID uuid.UUID
	BatchNumber        string
	LocationLabel      string
}

// NewReconciliationKey normalises labels into a key
func NewReconciliationKey(wpID uuid.UUID, batchNumber, locationLabel string) ReconciliationKey {
	return ReconciliationKey{
		WarehouseProductID: wpID,
		BatchNumber:        normaliseLabel(batchNumber),
		LocationLabel:      normaliseLabel(locationLabel),
	}
}

func normaliseLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (k ReconciliationKey) less(o ReconciliationKey) bool {
	if k.WarehouseProductID != o.WarehouseProductID {
		return k.WarehouseProductID.String() < o.WarehouseProductID.String()
	}
	if k.BatchNumber != o.BatchNumber {
		return k.BatchNumber < o.BatchNumber
	}
	return k.LocationLabel < o.LocationLabel
}

type systemEntry struct {
	key      ReconciliationKey
	batch    InventoryBatchItem
	quantity int
}

type countEntry struct {
	key           ReconciliationKey
	batchNumber   string
	locationLabel string
	expiry        *time.Time
	quantity      int
}

// Reconcile compares live batches against counted items and returns the
// findings for one session.
//
// Matching is by (warehouse product, batch number, location label) first.
// Leftover system-only and count-only entries of the same warehouse product
// and equal quantity are then paired: a shared batch number with a different
// location becomes LOCATION_MISMATCH, a shared location with a different
// batch number becomes BATCH_MISMATCH. Whatever is still unpaired is reported
// as MISSING_IN_COUNT or MISSING_IN_SYSTEM.
//
// Batches with zero quantity are not part of the system side, and several
// count rows with the same key are summed. The result order is deterministic.
func Reconcile(sessionID uuid.UUID, batches []InventoryBatchItem, items []StockTakeItem) []StockDiscrepancy {
	system := make(map[ReconciliationKey]*systemEntry)
	for _, b := range batches {
		if b.Quantity <= 0 {
			continue
		}
		k := NewReconciliationKey(b.WarehouseProductID, b.BatchNumber, b.LocationLabel)
		if e, ok := system[k]; ok {
			e.quantity += b.Quantity
			continue
		}
		system[k] = &systemEntry{key: k, batch: b, quantity: b.Quantity}
	}

	counted := make(map[ReconciliationKey]*countEntry)
	for _, it := range items {
		k := NewReconciliationKey(it.WarehouseProductID, it.BatchNumberCounted, it.LocationLabelCounted)
		if e, ok := counted[k]; ok {
			e.quantity += it.CountedQuantity
			if e.expiry == nil {
				e.expiry = it.ExpiryDateCounted
			}
			continue
		}
		counted[k] = &countEntry{
			key:           k,
			batchNumber:   it.BatchNumberCounted,
			locationLabel: it.LocationLabelCounted,
			expiry:        it.ExpiryDateCounted,
			quantity:      it.CountedQuantity,
		}
	}

	var (
		result     []StockDiscrepancy
		onlySystem []*systemEntry
		onlyCount  []*countEntry
	)

	for _, k := range sortedKeys(system) {
		s := system[k]
		c, ok := counted[k]
		if !ok {
			onlySystem = append(onlySystem, s)
			continue
		}
		if c.quantity != s.quantity {
			result = append(result, newDiscrepancy(sessionID, DiscrepancyQuantityMismatch, s, c))
		}
	}
	for _, k := range sortedKeys(counted) {
		c := counted[k]
		if _, ok := system[k]; ok {
			continue
		}
		if c.quantity == 0 {
			continue
		}
		onlyCount = append(onlyCount, c)
	}

	pairedSystem := make(map[ReconciliationKey]bool)
	var unpairedCount []*countEntry
	for _, c := range onlyCount {
		s, kind := findRelaxedMatch(c, onlySystem, pairedSystem)
		if s == nil {
			unpairedCount = append(unpairedCount, c)
			continue
		}
		pairedSystem[s.key] = true
		result = append(result, newDiscrepancy(sessionID, kind, s, c))
	}

	for _, c := range unpairedCount {
		result = append(result, newDiscrepancy(sessionID, DiscrepancyMissingInSystem, nil, c))
	}
	for _, s := range onlySystem {
		if pairedSystem[s.key] {
			continue
		}
		result = append(result, newDiscrepancy(sessionID, DiscrepancyMissingInCount, s, nil))
	}
	return result
}

// findRelaxedMatch looks for an unpaired system entry that explains a
// count-only entry as misplaced or mislabelled stock. Location mismatches
// are preferred over batch mismatches.
func findRelaxedMatch(c *countEntry, candidates []*systemEntry, paired map[ReconciliationKey]bool) (*systemEntry, DiscrepancyType) {
	var batchCandidate *systemEntry
	for _, s := range candidates {
		if paired[s.key] || s.key.WarehouseProductID != c.key.WarehouseProductID || s.quantity != c.quantity {
			continue
		}
		if s.key.BatchNumber == c.key.BatchNumber && s.key.LocationLabel != c.key.LocationLabel {
			return s, DiscrepancyLocationMismatch
		}
		if batchCandidate == nil && s.key.LocationLabel == c.key.LocationLabel && s.key.BatchNumber != c.key.BatchNumber {
			batchCandidate = s
		}
	}
	if batchCandidate != nil {
		return batchCandidate, DiscrepancyBatchMismatch
	}
	return nil, ""
}

func newDiscrepancy(sessionID uuid.UUID, kind DiscrepancyType, s *systemEntry, c *countEntry) StockDiscrepancy {
	d := StockDiscrepancy{
		BaseEntity: shared.NewBaseEntity(),
		SessionID:  sessionID,
		Type:       kind,
	}
	if s != nil {
		batchID := s.batch.ID
		d.WarehouseProductID = s.key.WarehouseProductID
		d.SystemBatchItemID = &batchID
		d.SystemBatchNumber = s.batch.BatchNumber
		d.SystemLocationLabel = s.batch.LocationLabel
		d.SystemExpiryDate = s.batch.ExpiryDate
		d.SystemQuantity = s.quantity
	}
	if c != nil {
		d.WarehouseProductID = c.key.WarehouseProductID
		d.CountedBatchNumber = c.batchNumber
		d.CountedLocationLabel = c.locationLabel
		d.CountedExpiryDate = c.expiry
		d.CountedQuantity = c.quantity
	}
	d.DiscrepancyQuantity = d.CountedQuantity - d.SystemQuantity
	return d
}

func sortedKeys[V any](m map[ReconciliationKey]V) []ReconciliationKey {
	keys := make([]ReconciliationKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}
