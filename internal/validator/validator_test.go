package validator

import (
	"strings"
	"testing"

	"order-settlement-service/internal/models"

	"github.com/shopspring/decimal"
)

func order(id string, opts ...func(*models.Order)) *models.Order {
	o := &models.Order{
		OrderID:       id,
		CustomerID:    "CUST-1",
		SKU:           "SKU-LED-001",
		Status:        models.OrderStatusComplete,
		InvoiceNumber: "INV-" + id,
		PaymentMethod: "credit_card",
		GrandTotal:    decimal.NewFromInt(100),
	}
	combined := decimal.NewFromFloat(7.25)
	o.Tax = models.ResolveTax(&combined, nil, nil)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func settledTx(txID, orderID string, gross float64) *models.Transaction {
	return &models.Transaction{
		TransactionID: txID,
		OrderID:       orderID,
		GrossAmount:   decimal.NewFromFloat(gross),
		Status:        models.TransactionStatusSettled,
	}
}

func TestCheckDuplicateOrders(t *testing.T) {
	orders := []*models.Order{
		order("A"), order("B"), order("A"), order("A"), order("C"), order("B"),
	}

	issues := New().CheckDuplicateOrders(orders)

	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2 (one per duplicated id)", len(issues))
	}
	// First-seen order: A before B.
	if issues[0].OrderID != "A" || issues[1].OrderID != "B" {
		t.Errorf("issue order = %s, %s; want A, B", issues[0].OrderID, issues[1].OrderID)
	}
	if !strings.Contains(issues[0].Detail, "3x") {
		t.Errorf("A detail = %q, want occurrence count 3x", issues[0].Detail)
	}
	if !strings.Contains(issues[1].Detail, "2x") {
		t.Errorf("B detail = %q, want occurrence count 2x", issues[1].Detail)
	}
	for _, issue := range issues {
		if issue.Type != models.IssueDuplicateOrder {
			t.Errorf("issue type = %s, want %s", issue.Type, models.IssueDuplicateOrder)
		}
	}
}

func TestCheckMissingInvoices(t *testing.T) {
	orders := []*models.Order{
		order("A"),
		order("B", func(o *models.Order) { o.InvoiceNumber = "" }),
		order("C", func(o *models.Order) { o.InvoiceNumber = "  " }),
	}

	issues := New().CheckMissingInvoices(orders)

	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(issues))
	}
	if issues[0].OrderID != "B" || issues[1].OrderID != "C" {
		t.Errorf("flagged orders = %s, %s; want B, C", issues[0].OrderID, issues[1].OrderID)
	}
	for _, issue := range issues {
		if issue.Type != models.IssueMissingInvoice {
			t.Errorf("issue type = %s, want %s", issue.Type, models.IssueMissingInvoice)
		}
	}
}

func TestAuditTaxFormats(t *testing.T) {
	state := decimal.NewFromFloat(6.00)
	county := decimal.NewFromFloat(1.25)
	combined := decimal.NewFromFloat(7.25)

	orders := []*models.Order{
		order("A"), // combined
		order("B", func(o *models.Order) { o.Tax = models.ResolveTax(nil, &state, &county) }),
		order("C", func(o *models.Order) { o.Tax = models.ResolveTax(&combined, &state, &county) }), // both
		order("D", func(o *models.Order) { o.Tax = models.ResolveTax(nil, &state, nil) }),           // partial
		order("E", func(o *models.Order) { o.Tax = models.ResolveTax(nil, nil, nil) }),              // neither
	}

	issues, audit := New().AuditTaxFormats(orders)

	if audit.CombinedOnly != 1 {
		t.Errorf("CombinedOnly = %d, want 1", audit.CombinedOnly)
	}
	if audit.ItemizedOnly != 1 {
		t.Errorf("ItemizedOnly = %d, want 1", audit.ItemizedOnly)
	}
	if audit.Violations != 3 {
		t.Errorf("Violations = %d, want 3", audit.Violations)
	}
	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3", len(issues))
	}
	wantIDs := []string{"C", "D", "E"}
	for i, issue := range issues {
		if issue.OrderID != wantIDs[i] {
			t.Errorf("issues[%d].OrderID = %s, want %s", i, issue.OrderID, wantIDs[i])
		}
		if issue.Type != models.IssueTaxFormat {
			t.Errorf("issue type = %s, want %s", issue.Type, models.IssueTaxFormat)
		}
	}
}

func TestCheckOrphanTransactions(t *testing.T) {
	orders := []*models.Order{order("A"), order("B")}
	transactions := []*models.Transaction{
		settledTx("TXN-1", "A", 100),
		settledTx("TXN-2", "ORD-GHOST-001", 523.50),
		{TransactionID: "TXN-3", OrderID: "ORD-GHOST-002", Status: models.TransactionStatusVoided,
			GrossAmount: decimal.NewFromInt(10)},
	}

	issues := New().CheckOrphanTransactions(orders, transactions)

	// Voided transactions never count as orphans.
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	issue := issues[0]
	if issue.TransactionID != "TXN-2" {
		t.Errorf("TransactionID = %s, want TXN-2", issue.TransactionID)
	}
	if !strings.Contains(issue.Detail, "$523.50") {
		t.Errorf("Detail = %q, want settled amount", issue.Detail)
	}
}

func TestValidateConsolidatesChecks(t *testing.T) {
	orders := []*models.Order{
		order("A"),
		order("A"), // duplicate
		order("B", func(o *models.Order) { o.InvoiceNumber = "" }),
	}
	transactions := []*models.Transaction{
		settledTx("TXN-1", "ORD-GHOST-001", 50),
	}

	report := New().Validate(orders, transactions)

	if report.DuplicateOrderIDs != 1 {
		t.Errorf("DuplicateOrderIDs = %d, want 1", report.DuplicateOrderIDs)
	}
	if report.MissingInvoices != 1 {
		t.Errorf("MissingInvoices = %d, want 1", report.MissingInvoices)
	}
	if report.OrphanTransactions != 1 {
		t.Errorf("OrphanTransactions = %d, want 1", report.OrphanTransactions)
	}

	// Orphans are counted in the report but their issues come from the
	// reconciliation pass, not from here.
	counts := models.CountIssuesByType(report.Issues)
	if counts[models.IssueOrphanTransaction] != 0 {
		t.Errorf("orphan issues in validation report = %d, want 0", counts[models.IssueOrphanTransaction])
	}
	if counts[models.IssueDuplicateOrder] != 1 || counts[models.IssueMissingInvoice] != 1 {
		t.Errorf("issue counts = %v", counts)
	}
}

func TestAuditNullFields(t *testing.T) {
	orders := []*models.Order{
		order("A"),
		order("B", func(o *models.Order) {
			o.CustomerID = ""
			o.SKU = ""
			o.PaymentMethod = ""
			o.InvoiceNumber = ""
			o.GrandTotal = decimal.Zero
		}),
	}

	audit := New().AuditNullFields(orders)

	if audit.TotalRows != 2 {
		t.Errorf("TotalRows = %d, want 2", audit.TotalRows)
	}
	if audit.CustomerID != 1 || audit.SKU != 1 || audit.PaymentMethod != 1 ||
		audit.InvoiceNumber != 1 || audit.GrandTotal != 1 {
		t.Errorf("audit = %+v, want one null per column", audit)
	}
}

func TestValidateIdempotent(t *testing.T) {
	orders := []*models.Order{order("A"), order("A"), order("B")}
	transactions := []*models.Transaction{settledTx("TXN-1", "ORD-GHOST-001", 50)}

	v := New()
	first := v.Validate(orders, transactions)
	second := v.Validate(orders, transactions)

	if len(first.Issues) != len(second.Issues) {
		t.Fatalf("issue counts differ across runs: %d vs %d", len(first.Issues), len(second.Issues))
	}
	for i := range first.Issues {
		if first.Issues[i] != second.Issues[i] {
			t.Errorf("issue %d differs across runs", i)
		}
	}
}
