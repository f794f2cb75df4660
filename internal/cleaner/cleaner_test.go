package cleaner

import (
	"testing"

	"order-settlement-service/internal/models"

	"github.com/shopspring/decimal"
)

func TestDeduplicate(t *testing.T) {
	makeOrder := func(id, sku string) *models.Order {
		return &models.Order{OrderID: id, SKU: sku, Status: models.OrderStatusComplete}
	}

	tests := []struct {
		name        string
		orders      []*models.Order
		wantIDs     []string
		wantRemoved int
	}{
		{
			name:    "no duplicates",
			orders:  []*models.Order{makeOrder("A", "x"), makeOrder("B", "y")},
			wantIDs: []string{"A", "B"},
		},
		{
			name: "first occurrence wins",
			orders: []*models.Order{
				makeOrder("A", "first"),
				makeOrder("B", "y"),
				makeOrder("A", "second"),
			},
			wantIDs:     []string{"A", "B"},
			wantRemoved: 1,
		},
		{
			name: "triple occurrence",
			orders: []*models.Order{
				makeOrder("A", "1"), makeOrder("A", "2"), makeOrder("A", "3"),
			},
			wantIDs:     []string{"A"},
			wantRemoved: 2,
		},
		{
			name: "empty input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unique, removed := Deduplicate(tt.orders)
			if removed != tt.wantRemoved {
				t.Errorf("removed = %d, want %d", removed, tt.wantRemoved)
			}
			if len(unique) != len(tt.wantIDs) {
				t.Fatalf("got %d orders, want %d", len(unique), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if unique[i].OrderID != id {
					t.Errorf("unique[%d] = %s, want %s", i, unique[i].OrderID, id)
				}
			}
		})
	}
}

func TestDeduplicateKeepsFirstRecord(t *testing.T) {
	orders := []*models.Order{
		{OrderID: "A", SKU: "survivor"},
		{OrderID: "A", SKU: "casualty"},
	}
	unique, _ := Deduplicate(orders)
	if unique[0].SKU != "survivor" {
		t.Errorf("survivor SKU = %s, want the first occurrence", unique[0].SKU)
	}
}

func TestNormalizeSKU(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SKU-LED-001", "SKU-LED-001"},
		{"sku-led-001", "SKU-LED-001"},
		{"SKU_LED_001", "SKU-LED-001"},
		{" SKU-LED-001 ", "SKU-LED-001"},
		{"sku smart 003", "SKU-SMART-003"},
		{"THERM002", "THERM002"},
	}

	for _, tt := range tests {
		if got := NormalizeSKU(tt.input); got != tt.want {
			t.Errorf("NormalizeSKU(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeSKUIdempotent(t *testing.T) {
	inputs := []string{"sku_led_001", "SKU SMART 003", " mixed_Case sku "}
	for _, input := range inputs {
		once := NormalizeSKU(input)
		twice := NormalizeSKU(once)
		if once != twice {
			t.Errorf("NormalizeSKU not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		status       models.OrderStatus
		wantCode     string
		wantLabel    string
		wantEligible bool
	}{
		{models.OrderStatusComplete, "110", "INVOICED", true},
		{models.OrderStatusProcessing, "100", "IN_PROGRESS", true},
		{models.OrderStatusClosed, "120", "CLOSED", false},
		{models.OrderStatusPending, "50", "PENDING", false},
		{models.OrderStatusCanceled, "999", "VOID", false},
		{models.OrderStatus("archived"), "000", "UNKNOWN", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			mapping := MapStatus(tt.status)
			if mapping.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", mapping.Code, tt.wantCode)
			}
			if mapping.Label != tt.wantLabel {
				t.Errorf("Label = %s, want %s", mapping.Label, tt.wantLabel)
			}
			if mapping.PaymentEligible != tt.wantEligible {
				t.Errorf("PaymentEligible = %v, want %v", mapping.PaymentEligible, tt.wantEligible)
			}
		})
	}
}

func TestNormalizeOrder(t *testing.T) {
	combined := decimal.NewFromFloat(7.50)
	order := &models.Order{
		OrderID:    "ORD-1",
		CustomerID: "CUST-1",
		OrderDate:  "06/22/2024 12:00",
		SKU:        "sku_led_001",
		Qty:        2,
		Subtotal:   "$1,247.50",
		Tax:        models.ResolveTax(&combined, nil, nil),
		Shipping:   decimal.NewFromFloat(5),
		Discount:   decimal.Zero,
		GrandTotal: decimal.NewFromFloat(1260),
		Status:     models.OrderStatusComplete,
	}

	co := NewNormalizer().NormalizeOrder(order)

	if co.SKU != "SKU-LED-001" {
		t.Errorf("SKU = %s, want SKU-LED-001", co.SKU)
	}
	if co.RawSKU != "sku_led_001" {
		t.Errorf("RawSKU = %s, want original spelling preserved", co.RawSKU)
	}
	if !co.SubtotalParsed {
		t.Fatal("SubtotalParsed = false, want true")
	}
	if co.Subtotal.StringFixed(2) != "1247.50" {
		t.Errorf("Subtotal = %s, want 1247.50", co.Subtotal.StringFixed(2))
	}
	if co.OrderTimestamp == nil {
		t.Fatal("OrderTimestamp = nil, want parsed value")
	}
	if got := models.ISOTimestamp(*co.OrderTimestamp); got != "2024-06-22T12:00:00Z" {
		t.Errorf("OrderTimestamp = %s, want 2024-06-22T12:00:00Z", got)
	}
	if co.StatusCode != "110" || co.StatusLabel != "INVOICED" || !co.PaymentEligible {
		t.Errorf("status mapping = %s/%s/%v, want 110/INVOICED/true",
			co.StatusCode, co.StatusLabel, co.PaymentEligible)
	}
	if amount, source := co.TaxAmount(); source != models.TaxSourceCombined || amount.StringFixed(2) != "7.50" {
		t.Errorf("TaxAmount() = %s/%s, want 7.50/combined", amount.StringFixed(2), source)
	}
}

func TestNormalizeOrderParseFailures(t *testing.T) {
	order := &models.Order{
		OrderID:   "ORD-2",
		OrderDate: "not a date",
		SKU:       "SKU-LED-001",
		Subtotal:  "$12.50 USD",
		Status:    models.OrderStatusPending,
	}

	co := NewNormalizer().NormalizeOrder(order)

	if co.SubtotalParsed {
		t.Error("SubtotalParsed = true for malformed currency text")
	}
	if co.OrderTimestamp != nil {
		t.Error("OrderTimestamp != nil for malformed date")
	}
	if co.RawOrderDate != "not a date" {
		t.Errorf("RawOrderDate = %q, want raw value preserved", co.RawOrderDate)
	}
}

func TestNormalizeStats(t *testing.T) {
	combined := decimal.NewFromFloat(5)
	orders := []*models.Order{
		{OrderID: "A", SKU: "sku_led_001", Subtotal: "100.00", OrderDate: "06/22/2024 12:00",
			Tax: models.ResolveTax(&combined, nil, nil), Status: models.OrderStatusComplete},
		{OrderID: "B", SKU: "SKU-LED-001", Subtotal: "bad", OrderDate: "bad",
			Tax: models.MissingTax(), Status: models.OrderStatus("archived")},
	}

	clean, stats := NewNormalizer().Normalize(orders)

	if len(clean) != 2 {
		t.Fatalf("got %d clean orders, want 2", len(clean))
	}
	if stats.SKUsChanged != 1 {
		t.Errorf("SKUsChanged = %d, want 1", stats.SKUsChanged)
	}
	if stats.CurrencyParseFailures != 1 {
		t.Errorf("CurrencyParseFailures = %d, want 1", stats.CurrencyParseFailures)
	}
	if stats.DateParseFailures != 1 {
		t.Errorf("DateParseFailures = %d, want 1", stats.DateParseFailures)
	}
	if stats.UnknownStatuses != 1 {
		t.Errorf("UnknownStatuses = %d, want 1", stats.UnknownStatuses)
	}
	if stats.TaxSources[models.TaxSourceCombined] != 1 || stats.TaxSources[models.TaxSourceMissing] != 1 {
		t.Errorf("TaxSources = %v, want one combined and one missing", stats.TaxSources)
	}
}
