// Package reconciler matches cleaned orders against processor settlement
// records and classifies every pairing.
//
// Matching joins on the order identifier through id-keyed hash indexes; the
// datasets share no other key guarantee. The classifications are: reconciled
// within tolerance, orphan transaction, unsettled order, processor amount
// mismatch, and the independent grand-total recomputation mismatch.
package reconciler

import (
	"fmt"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// DefaultAmountTolerance is the fixed absolute tolerance for amount
// comparisons: discrepancies of two cents or less are accepted as
// reconciled.
var DefaultAmountTolerance = decimal.NewFromFloat(0.02)

// ParitySummary is the high-level count/revenue comparison between the two
// sources. It is a sanity check on aggregate totals, not a per-row match.
type ParitySummary struct {
	EligibleOrderCount int             `json:"eligible_order_count"`
	EligibleRevenue    decimal.Decimal `json:"eligible_revenue"`
	SettledTxCount     int             `json:"settled_tx_count"`
	SettledGross       decimal.Decimal `json:"settled_gross"`
}

// AmountMismatch records an order whose recorded total disagrees with what
// the processor settled, beyond tolerance.
type AmountMismatch struct {
	OrderID        string          `json:"order_id"`
	TransactionID  string          `json:"transaction_id"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	ProcessorTotal decimal.Decimal `json:"processor_total"`
	Discrepancy    decimal.Decimal `json:"discrepancy"`
}

// TotalMismatch records an order whose recorded grand total disagrees with
// the total recomputed from its own components. This indicates an upstream
// data-entry or arithmetic defect and is reported separately from processor
// mismatches.
type TotalMismatch struct {
	OrderID     string          `json:"order_id"`
	Recorded    decimal.Decimal `json:"recorded"`
	Recomputed  decimal.Decimal `json:"recomputed"`
	Discrepancy decimal.Decimal `json:"discrepancy"`
}

// Result is the complete classification of a reconciliation pass.
type Result struct {
	Parity ParitySummary `json:"parity"`

	Orphans          []*models.Transaction `json:"orphans"`
	Unsettled        []*models.CleanOrder  `json:"unsettled"`
	AmountMismatches []AmountMismatch      `json:"amount_mismatches"`
	TotalMismatches  []TotalMismatch       `json:"total_mismatches"`

	// Issues carries the classifications above as finance-ready Issue
	// records, in classification order.
	Issues []models.Issue `json:"issues"`
}

// Reconciler matches cleaned orders to processor transactions.
type Reconciler struct {
	tolerance decimal.Decimal
	log       logger.Logger
}

// New creates a Reconciler with the given absolute amount tolerance. A zero
// tolerance falls back to the default two cents.
func New(tolerance decimal.Decimal) *Reconciler {
	if tolerance.IsZero() {
		tolerance = DefaultAmountTolerance
	}
	return &Reconciler{
		tolerance: tolerance,
		log:       logger.GetGlobalLogger().WithComponent("reconciler"),
	}
}

// SettledIndex builds the order-id keyed index of settled transactions.
// When the processor file carries more than one settled row for an order,
// the first occurrence wins, mirroring the dedup survivor policy.
func SettledIndex(transactions []*models.Transaction) map[string]*models.Transaction {
	index := make(map[string]*models.Transaction)
	for _, tx := range transactions {
		if !tx.IsSettled() {
			continue
		}
		if _, ok := index[tx.OrderID]; !ok {
			index[tx.OrderID] = tx
		}
	}
	return index
}

// Reconcile runs the full pass over the cleaned orders and the raw
// transaction snapshot. This post-cleaning view is the authoritative one;
// the validator's raw-stage orphan check is only a diagnostic.
func (r *Reconciler) Reconcile(orders []*models.CleanOrder, transactions []*models.Transaction) *Result {
	result := &Result{
		Parity: ParitySummary{
			EligibleRevenue: decimal.Zero,
			SettledGross:    decimal.Zero,
		},
	}

	orderIndex := make(map[string]*models.CleanOrder, len(orders))
	for _, order := range orders {
		orderIndex[order.OrderID] = order
	}
	settled := SettledIndex(transactions)

	// Aggregate parity: eligible order revenue vs settled gross.
	for _, order := range orders {
		if order.PaymentEligible {
			result.Parity.EligibleOrderCount++
			result.Parity.EligibleRevenue = result.Parity.EligibleRevenue.Add(order.GrandTotal)
		}
	}
	for _, tx := range settled {
		result.Parity.SettledTxCount++
		result.Parity.SettledGross = result.Parity.SettledGross.Add(tx.GrossAmount)
	}

	// Orphan transactions: settled money with no order behind it. Walked
	// in file order so the output is deterministic.
	for _, tx := range transactions {
		if !tx.IsSettled() {
			continue
		}
		if settled[tx.OrderID] != tx {
			continue // later duplicate of an already-indexed settlement
		}
		if _, ok := orderIndex[tx.OrderID]; ok {
			continue
		}
		result.Orphans = append(result.Orphans, tx)
		result.Issues = append(result.Issues, models.Issue{
			Type:           models.IssueOrphanTransaction,
			OrderID:        tx.OrderID,
			TransactionID:  tx.TransactionID,
			Detail:         fmt.Sprintf("$%s settled - no matching order", tx.GrossAmount.StringFixed(2)),
			ActionRequired: "Escalate to finance team for investigation",
		})
	}

	// Unsettled orders and processor amount mismatches.
	for _, order := range orders {
		tx, hasSettled := settled[order.OrderID]

		if order.PaymentEligible && !hasSettled {
			result.Unsettled = append(result.Unsettled, order)
			result.Issues = append(result.Issues, models.Issue{
				Type:           models.IssueUnsettledOrder,
				OrderID:        order.OrderID,
				Detail:         fmt.Sprintf("payment-eligible order (%s) has no settled transaction", order.StatusLabel),
				ActionRequired: "Confirm payment status with the processor",
			})
		}

		if hasSettled {
			diff := order.GrandTotal.Sub(tx.GrossAmount).Abs()
			if diff.GreaterThan(r.tolerance) {
				mismatch := AmountMismatch{
					OrderID:        order.OrderID,
					TransactionID:  tx.TransactionID,
					OrderTotal:     order.GrandTotal,
					ProcessorTotal: tx.GrossAmount,
					Discrepancy:    diff.Round(2),
				}
				result.AmountMismatches = append(result.AmountMismatches, mismatch)
				result.Issues = append(result.Issues, models.Issue{
					Type:          models.IssueAmountMismatch,
					OrderID:       order.OrderID,
					TransactionID: tx.TransactionID,
					Detail: fmt.Sprintf("order total $%s vs processor total $%s (discrepancy $%s)",
						mismatch.OrderTotal.StringFixed(2), mismatch.ProcessorTotal.StringFixed(2), mismatch.Discrepancy.StringFixed(2)),
					ActionRequired: "Compare the order against the processor settlement detail",
				})
			}
		}
	}

	// Independent grand-total recomputation from the order's own parts.
	for _, order := range orders {
		recomputed, ok := RecomputeGrandTotal(order)
		if !ok {
			continue
		}
		diff := recomputed.Sub(order.GrandTotal).Abs()
		if diff.GreaterThan(r.tolerance) {
			mismatch := TotalMismatch{
				OrderID:     order.OrderID,
				Recorded:    order.GrandTotal,
				Recomputed:  recomputed,
				Discrepancy: diff.Round(2),
			}
			result.TotalMismatches = append(result.TotalMismatches, mismatch)
			result.Issues = append(result.Issues, models.Issue{
				Type:    models.IssueTotalMismatch,
				OrderID: order.OrderID,
				Detail: fmt.Sprintf("recorded grand total $%s but components sum to $%s (discrepancy $%s)",
					mismatch.Recorded.StringFixed(2), mismatch.Recomputed.StringFixed(2), mismatch.Discrepancy.StringFixed(2)),
				ActionRequired: "Audit the order's amount fields in the source system",
			})
		}
	}

	r.log.WithFields(logger.Fields{
		"eligible_orders":   result.Parity.EligibleOrderCount,
		"settled_txns":      result.Parity.SettledTxCount,
		"orphans":           len(result.Orphans),
		"unsettled":         len(result.Unsettled),
		"amount_mismatches": len(result.AmountMismatches),
		"total_mismatches":  len(result.TotalMismatches),
	}).Info("Reconciliation completed")

	return result
}

// RecomputeGrandTotal derives the grand total from the order's components:
// subtotal + unified tax + shipping - discount, with absent values treated
// as zero, rounded to cents. ok is false when the subtotal never parsed, in
// which case no comparison is meaningful.
func RecomputeGrandTotal(order *models.CleanOrder) (total decimal.Decimal, ok bool) {
	if !order.SubtotalParsed {
		return decimal.Zero, false
	}
	total = order.Subtotal.
		Add(order.Tax.AmountOrZero()).
		Add(order.Shipping).
		Sub(order.Discount).
		Round(2)
	return total, true
}
