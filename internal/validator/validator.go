// Package validator runs the pre-cleaning data-quality battery against the
// raw snapshot.
//
// Every check is read-only, order-insensitive and idempotent: running the
// battery twice against the same snapshot yields the same findings. Defects
// are reported as Issue records in their original raw form, before any
// cleaning obscures them.
package validator

import (
	"fmt"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/logger"
)

// Report aggregates the findings of a validation run: the Issue records for
// the finance team plus the diagnostic counts that are summaries rather than
// per-row defects.
type Report struct {
	Issues []models.Issue `json:"issues"`

	TaxFormats TaxFormatAudit `json:"tax_formats"`
	NullCounts NullFieldAudit `json:"null_counts"`

	DuplicateOrderIDs  int `json:"duplicate_order_ids"`
	MissingInvoices    int `json:"missing_invoices"`
	OrphanTransactions int `json:"orphan_transactions"`
}

// TaxFormatAudit is the diagnostic distribution of tax formats across the
// raw orders. Only rows that violate the mutual-exclusivity rule become
// Issues; the counts themselves are informational.
type TaxFormatAudit struct {
	CombinedOnly int `json:"combined_only"`
	ItemizedOnly int `json:"itemized_only"`
	Violations   int `json:"violations"`
	TotalOrders  int `json:"total_orders"`
}

// NullFieldAudit counts absent values per column of the raw order export.
type NullFieldAudit struct {
	CustomerID    int `json:"null_customer_id"`
	SKU           int `json:"null_sku"`
	GrandTotal    int `json:"null_grand_total"`
	InvoiceNumber int `json:"null_invoice_number"`
	PaymentMethod int `json:"null_payment_method"`
	TotalRows     int `json:"total_rows"`
}

// Validator runs data-quality checks against raw records without modifying
// them.
type Validator struct {
	log logger.Logger
}

// New creates a Validator.
func New() *Validator {
	return &Validator{
		log: logger.GetGlobalLogger().WithComponent("validator"),
	}
}

// Validate runs the full battery against the raw snapshot. The checks are
// independent; their findings are concatenated in a fixed order so the
// report is deterministic for identical input ordering.
func (v *Validator) Validate(orders []*models.Order, transactions []*models.Transaction) *Report {
	report := &Report{}

	dupes := v.CheckDuplicateOrders(orders)
	report.Issues = append(report.Issues, dupes...)
	report.DuplicateOrderIDs = len(dupes)

	missing := v.CheckMissingInvoices(orders)
	report.Issues = append(report.Issues, missing...)
	report.MissingInvoices = len(missing)

	taxIssues, taxAudit := v.AuditTaxFormats(orders)
	report.Issues = append(report.Issues, taxIssues...)
	report.TaxFormats = taxAudit

	orphans := v.CheckOrphanTransactions(orders, transactions)
	report.OrphanTransactions = len(orphans)
	// Orphan Issues found here are a pre-cleaning diagnostic. The
	// authoritative orphan set is re-derived by the reconciler against the
	// cleaned orders, and that is the one that reaches the consolidated
	// issue log; counting them here keeps the raw-stage audit trail.

	report.NullCounts = v.AuditNullFields(orders)

	v.log.WithFields(logger.Fields{
		"duplicate_order_ids": report.DuplicateOrderIDs,
		"missing_invoices":    report.MissingInvoices,
		"tax_violations":      report.TaxFormats.Violations,
		"orphan_transactions": report.OrphanTransactions,
	}).Info("Validation completed")

	return report
}

// CheckDuplicateOrders groups orders by identifier and reports every
// identifier that appears more than once, with its occurrence count. One
// Issue per duplicated identifier, in first-seen order.
func (v *Validator) CheckDuplicateOrders(orders []*models.Order) []models.Issue {
	counts := make(map[string]int, len(orders))
	var firstSeen []string
	for _, order := range orders {
		if counts[order.OrderID] == 0 {
			firstSeen = append(firstSeen, order.OrderID)
		}
		counts[order.OrderID]++
	}

	var issues []models.Issue
	for _, orderID := range firstSeen {
		if counts[orderID] > 1 {
			issues = append(issues, models.Issue{
				Type:           models.IssueDuplicateOrder,
				OrderID:        orderID,
				Detail:         fmt.Sprintf("order_id appears %dx in export", counts[orderID]),
				ActionRequired: "Keep first occurrence - delete remaining rows",
			})
		}
	}
	return issues
}

// CheckMissingInvoices reports every order whose invoice number is absent.
// There is no threshold: a single missing invoice blocks payment submission
// for that order and is reportable.
func (v *Validator) CheckMissingInvoices(orders []*models.Order) []models.Issue {
	var issues []models.Issue
	for _, order := range orders {
		if !order.HasInvoice() {
			issues = append(issues, models.Issue{
				Type:           models.IssueMissingInvoice,
				OrderID:        order.OrderID,
				Detail:         "invoice_number is NULL - cannot submit for payment",
				ActionRequired: "Request invoice number from finance/billing team",
			})
		}
	}
	return issues
}

// AuditTaxFormats computes the combined-only vs itemized-only distribution
// and reports rows where both or neither format is populated. The
// distribution is a diagnostic summary; only the violations become Issues.
func (v *Validator) AuditTaxFormats(orders []*models.Order) ([]models.Issue, TaxFormatAudit) {
	audit := TaxFormatAudit{TotalOrders: len(orders)}
	var issues []models.Issue

	for _, order := range orders {
		if order.Tax.FormatViolation() {
			audit.Violations++
			issues = append(issues, models.Issue{
				Type:           models.IssueTaxFormat,
				OrderID:        order.OrderID,
				Detail:         "tax fields do not match either the combined or the itemized format",
				ActionRequired: "Correct the tax columns for this order in the source system",
			})
			continue
		}
		switch order.Tax.Source() {
		case models.TaxSourceCombined:
			audit.CombinedOnly++
		case models.TaxSourceItemized:
			audit.ItemizedOnly++
		}
	}

	return issues, audit
}

// CheckOrphanTransactions left-joins settled transactions to orders on the
// order identifier and reports the ones with no match: money the processor
// has on record with no corresponding order. Orphans are never silently
// dropped.
func (v *Validator) CheckOrphanTransactions(orders []*models.Order, transactions []*models.Transaction) []models.Issue {
	known := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		known[order.OrderID] = struct{}{}
	}

	var issues []models.Issue
	for _, tx := range transactions {
		if !tx.IsSettled() {
			continue
		}
		if _, ok := known[tx.OrderID]; ok {
			continue
		}
		issues = append(issues, models.Issue{
			Type:           models.IssueOrphanTransaction,
			OrderID:        tx.OrderID,
			TransactionID:  tx.TransactionID,
			Detail:         fmt.Sprintf("$%s settled - no matching order", tx.GrossAmount.StringFixed(2)),
			ActionRequired: "Escalate to finance team for investigation",
		})
	}
	return issues
}

// AuditNullFields counts absent values per column of the raw order export.
func (v *Validator) AuditNullFields(orders []*models.Order) NullFieldAudit {
	audit := NullFieldAudit{TotalRows: len(orders)}
	for _, order := range orders {
		if order.CustomerID == "" {
			audit.CustomerID++
		}
		if order.SKU == "" {
			audit.SKU++
		}
		if order.GrandTotal.IsZero() {
			audit.GrandTotal++
		}
		if !order.HasInvoice() {
			audit.InvoiceNumber++
		}
		if order.PaymentMethod == "" {
			audit.PaymentMethod++
		}
	}
	return audit
}
