// Package cleaner repairs the raw order snapshot: deduplication first, then
// per-record normalization of the messy field encodings.
//
// Every transform is deterministic and derives new values; the raw snapshot
// is never modified. A malformed field flags the record, it never aborts the
// batch.
package cleaner

import (
	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/logger"
)

// Deduplicate collapses exact-key duplicate orders, keeping the first
// occurrence of each identifier in ingestion order. The result is stable for
// identical input ordering. Duplicate Issues are the validator's job and are
// raised against the pre-deduplication snapshot, so none are re-emitted here.
func Deduplicate(orders []*models.Order) (unique []*models.Order, removed int) {
	seen := make(map[string]struct{}, len(orders))
	unique = make([]*models.Order, 0, len(orders))

	for _, order := range orders {
		if _, ok := seen[order.OrderID]; ok {
			removed++
			continue
		}
		seen[order.OrderID] = struct{}{}
		unique = append(unique, order)
	}

	if removed > 0 {
		logger.GetGlobalLogger().WithComponent("cleaner").WithFields(logger.Fields{
			"removed":   removed,
			"remaining": len(unique),
		}).Info("Removed duplicate order rows")
	}

	return unique, removed
}
