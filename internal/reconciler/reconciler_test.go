package reconciler

import (
	"testing"

	"order-settlement-service/internal/models"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func cleanOrder(id string, grandTotal string, eligible bool) *models.CleanOrder {
	return &models.CleanOrder{
		OrderID:         id,
		GrandTotal:      dec(grandTotal),
		PaymentEligible: eligible,
		StatusLabel:     "INVOICED",
		Subtotal:        dec(grandTotal),
		SubtotalParsed:  false, // recompute opt-out unless a test sets components
	}
}

func settledTx(txID, orderID, gross string) *models.Transaction {
	return &models.Transaction{
		TransactionID: txID,
		OrderID:       orderID,
		GrossAmount:   dec(gross),
		Status:        models.TransactionStatusSettled,
	}
}

func TestSettledIndex(t *testing.T) {
	transactions := []*models.Transaction{
		settledTx("TXN-1", "A", "100.00"),
		settledTx("TXN-2", "A", "100.00"), // later duplicate
		{TransactionID: "TXN-3", OrderID: "B", Status: models.TransactionStatusVoided},
		settledTx("TXN-4", "C", "50.00"),
	}

	index := SettledIndex(transactions)

	if len(index) != 2 {
		t.Fatalf("index size = %d, want 2", len(index))
	}
	if index["A"].TransactionID != "TXN-1" {
		t.Errorf("A resolves to %s, want the first settled transaction TXN-1", index["A"].TransactionID)
	}
	if _, ok := index["B"]; ok {
		t.Error("voided transaction indexed as settled")
	}
}

func TestReconcileOrphans(t *testing.T) {
	orders := []*models.CleanOrder{cleanOrder("A", "100.00", true)}
	transactions := []*models.Transaction{
		settledTx("TXN-1", "A", "100.00"),
		settledTx("TXN-ORPHAN-1", "ORD-GHOST-001", "523.50"),
	}

	result := New(decimal.Zero).Reconcile(orders, transactions)

	if len(result.Orphans) != 1 {
		t.Fatalf("orphans = %d, want 1", len(result.Orphans))
	}
	if result.Orphans[0].TransactionID != "TXN-ORPHAN-1" {
		t.Errorf("orphan = %s, want TXN-ORPHAN-1", result.Orphans[0].TransactionID)
	}

	counts := models.CountIssuesByType(result.Issues)
	if counts[models.IssueOrphanTransaction] != 1 {
		t.Errorf("orphan issues = %d, want exactly 1", counts[models.IssueOrphanTransaction])
	}
}

func TestReconcileUnsettled(t *testing.T) {
	orders := []*models.CleanOrder{
		cleanOrder("A", "100.00", true),  // settled
		cleanOrder("B", "200.00", true),  // no transaction at all
		cleanOrder("C", "300.00", true),  // only a voided transaction
		cleanOrder("D", "400.00", false), // not eligible, no transaction
	}
	transactions := []*models.Transaction{
		settledTx("TXN-1", "A", "100.00"),
		{TransactionID: "TXN-2", OrderID: "C", Status: models.TransactionStatusVoided,
			GrossAmount: dec("300.00")},
	}

	result := New(decimal.Zero).Reconcile(orders, transactions)

	if len(result.Unsettled) != 2 {
		t.Fatalf("unsettled = %d, want 2", len(result.Unsettled))
	}
	gotIDs := []string{result.Unsettled[0].OrderID, result.Unsettled[1].OrderID}
	if gotIDs[0] != "B" || gotIDs[1] != "C" {
		t.Errorf("unsettled ids = %v, want [B C]", gotIDs)
	}

	counts := models.CountIssuesByType(result.Issues)
	if counts[models.IssueUnsettledOrder] != 2 {
		t.Errorf("unsettled issues = %d, want 2", counts[models.IssueUnsettledOrder])
	}
}

func TestReconcileAmountMismatch(t *testing.T) {
	tests := []struct {
		name         string
		orderTotal   string
		gross        string
		wantMismatch bool
	}{
		{"exact", "100.00", "100.00", false},
		{"one cent", "100.00", "100.01", false},
		{"two cents at tolerance", "100.00", "100.02", false},
		{"three cents", "100.00", "100.03", true},
		{"large gap", "100.00", "150.00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := []*models.CleanOrder{cleanOrder("A", tt.orderTotal, true)}
			transactions := []*models.Transaction{settledTx("TXN-1", "A", tt.gross)}

			result := New(decimal.Zero).Reconcile(orders, transactions)

			if got := len(result.AmountMismatches) > 0; got != tt.wantMismatch {
				t.Errorf("mismatch = %v, want %v", got, tt.wantMismatch)
			}
			if tt.wantMismatch {
				m := result.AmountMismatches[0]
				want := dec(tt.gross).Sub(dec(tt.orderTotal)).Abs().Round(2)
				if !m.Discrepancy.Equal(want) {
					t.Errorf("discrepancy = %s, want %s", m.Discrepancy, want)
				}
			}
		})
	}
}

func TestRecomputeGrandTotal(t *testing.T) {
	combined := dec("7.50")

	tests := []struct {
		name      string
		order     *models.CleanOrder
		wantTotal string
		wantOK    bool
	}{
		{
			name: "components sum cleanly",
			order: &models.CleanOrder{
				Subtotal:       dec("100.00"),
				SubtotalParsed: true,
				Tax:            models.ResolveTax(&combined, nil, nil),
				Shipping:       dec("5.00"),
				Discount:       dec("2.00"),
			},
			wantTotal: "110.50",
			wantOK:    true,
		},
		{
			name: "missing tax treated as zero",
			order: &models.CleanOrder{
				Subtotal:       dec("100.00"),
				SubtotalParsed: true,
				Tax:            models.MissingTax(),
				Shipping:       dec("5.00"),
			},
			wantTotal: "105.00",
			wantOK:    true,
		},
		{
			name: "unparsed subtotal opts out",
			order: &models.CleanOrder{
				SubtotalParsed: false,
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, ok := RecomputeGrandTotal(tt.order)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && total.StringFixed(2) != tt.wantTotal {
				t.Errorf("total = %s, want %s", total.StringFixed(2), tt.wantTotal)
			}
		})
	}
}

func TestReconcileTotalMismatch(t *testing.T) {
	combined := dec("7.50")
	order := &models.CleanOrder{
		OrderID:         "A",
		Subtotal:        dec("100.00"),
		SubtotalParsed:  true,
		Tax:             models.ResolveTax(&combined, nil, nil),
		Shipping:        dec("5.00"),
		Discount:        dec("2.00"),
		GrandTotal:      dec("120.00"), // recorded total disagrees with 110.50
		PaymentEligible: true,
	}
	transactions := []*models.Transaction{settledTx("TXN-1", "A", "120.00")}

	result := New(decimal.Zero).Reconcile([]*models.CleanOrder{order}, transactions)

	if len(result.TotalMismatches) != 1 {
		t.Fatalf("total mismatches = %d, want 1", len(result.TotalMismatches))
	}
	m := result.TotalMismatches[0]
	if m.Recomputed.StringFixed(2) != "110.50" {
		t.Errorf("recomputed = %s, want 110.50", m.Recomputed.StringFixed(2))
	}
	if m.Discrepancy.StringFixed(2) != "9.50" {
		t.Errorf("discrepancy = %s, want 9.50", m.Discrepancy.StringFixed(2))
	}

	// Recorded total matches the processor, so this is a total mismatch
	// only, not an amount mismatch.
	if len(result.AmountMismatches) != 0 {
		t.Errorf("amount mismatches = %d, want 0", len(result.AmountMismatches))
	}
}

func TestReconcileParity(t *testing.T) {
	orders := []*models.CleanOrder{
		cleanOrder("A", "100.00", true),
		cleanOrder("B", "200.00", true),
		cleanOrder("C", "300.00", false), // ineligible revenue excluded
	}
	transactions := []*models.Transaction{
		settledTx("TXN-1", "A", "100.00"),
		settledTx("TXN-2", "ORD-GHOST-001", "50.00"),
	}

	result := New(decimal.Zero).Reconcile(orders, transactions)

	p := result.Parity
	if p.EligibleOrderCount != 2 {
		t.Errorf("EligibleOrderCount = %d, want 2", p.EligibleOrderCount)
	}
	if p.EligibleRevenue.StringFixed(2) != "300.00" {
		t.Errorf("EligibleRevenue = %s, want 300.00", p.EligibleRevenue.StringFixed(2))
	}
	if p.SettledTxCount != 2 {
		t.Errorf("SettledTxCount = %d, want 2 (orphans included)", p.SettledTxCount)
	}
	if p.SettledGross.StringFixed(2) != "150.00" {
		t.Errorf("SettledGross = %s, want 150.00", p.SettledGross.StringFixed(2))
	}
}

func TestCustomTolerance(t *testing.T) {
	orders := []*models.CleanOrder{cleanOrder("A", "100.00", true)}
	transactions := []*models.Transaction{settledTx("TXN-1", "A", "100.04")}

	strict := New(decimal.Zero).Reconcile(orders, transactions)
	if len(strict.AmountMismatches) != 1 {
		t.Errorf("default tolerance: mismatches = %d, want 1", len(strict.AmountMismatches))
	}

	loose := New(dec("0.05")).Reconcile(orders, transactions)
	if len(loose.AmountMismatches) != 0 {
		t.Errorf("0.05 tolerance: mismatches = %d, want 0", len(loose.AmountMismatches))
	}
}
