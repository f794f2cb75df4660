package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/errors"
)

// The fixture covers one defect of each class:
//   - ORD-A is exported twice (duplicate row)
//   - ORD-B has no invoice number
//   - ORD-C is payment eligible but never settled
//   - TXN-ORPHAN-1 and TXN-ORPHAN-2 settle orders that do not exist
const ordersFixture = `order_id,customer_id,order_date,sku,qty,subtotal,state_tax,county_tax,combined_tax,shipping,discount,grand_total,status,payment_method,invoice_number
ORD-A,CUST-1,06/22/2024 12:00,sku_led_001,1,100.00,,,7.25,5.00,0.00,112.25,complete,credit_card,INV-A
ORD-A,CUST-1,06/22/2024 12:00,sku_led_001,1,100.00,,,7.25,5.00,0.00,112.25,complete,credit_card,INV-A
ORD-B,CUST-2,06/23/2024 10:00,SKU-THERM-002,1,200.00,,,14.50,5.00,0.00,219.50,complete,paypal,
ORD-C,CUST-1,06/24/2024 15:30,SKU-AUDIT-004,1,150.00,,,10.88,5.00,0.00,165.88,processing,credit_card,INV-C
`

const transactionsFixture = `transaction_id,order_id,settle_date,gross_amount,processor_fee,net_amount,status,auth_code
TXN-1,ORD-A,2024-06-23,112.25,3.56,108.69,settled,AUTH000001
TXN-2,ORD-B,2024-06-24,219.50,6.67,212.83,settled,AUTH000002
TXN-ORPHAN-1,ORD-GHOST-001,2024-06-25,523.50,15.48,508.02,settled,AUTH000003
TXN-ORPHAN-2,ORD-GHOST-002,2024-06-26,89.99,2.91,87.08,settled,AUTH000004
`

const customersFixture = `customer_id,first_name,last_name,email,state,created_at,loyalty_tier
CUST-1,James,Smith,james@example.com,CA,2023-04-12,gold
CUST-2,Mary,Johnson,mary@example.com,TX,2023-07-01,None
`

func writeFixtures(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		return path
	}

	return Options{
		OrdersFile:       write("orders.csv", ordersFixture),
		TransactionsFile: write("transactions.csv", transactionsFixture),
		CustomersFile:    write("customers.csv", customersFixture),
	}
}

func TestRunEndToEnd(t *testing.T) {
	result, err := New(writeFixtures(t)).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID is empty")
	}

	counts := result.IssueCounts()
	wantCounts := map[models.IssueType]int{
		models.IssueDuplicateOrder:    1,
		models.IssueMissingInvoice:    1,
		models.IssueUnsettledOrder:    1,
		models.IssueOrphanTransaction: 2,
	}
	for issueType, want := range wantCounts {
		if counts[issueType] != want {
			t.Errorf("%s issues = %d, want %d", issueType, counts[issueType], want)
		}
	}

	// Every defect appears exactly once; nothing else was flagged.
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 5 {
		t.Errorf("total issues = %d, want 5 (%v)", total, counts)
	}

	if result.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", result.DuplicatesRemoved)
	}

	// Settlement: A once despite the duplicate row, B despite the missing
	// invoice; C is unsettled and the orphans have no order.
	records := result.Settlement.Records
	if len(records) != 2 {
		t.Fatalf("settlement records = %d, want 2", len(records))
	}
	if records[0].OrderID != "ORD-A" || records[1].OrderID != "ORD-B" {
		t.Errorf("settled orders = %s, %s; want ORD-A, ORD-B", records[0].OrderID, records[1].OrderID)
	}

	// Customer enrichment from the outer join.
	if records[0].CustomerName != "James Smith" {
		t.Errorf("customer name = %q, want James Smith", records[0].CustomerName)
	}
	// Incentive resolution: sku_led_001 canonicalizes into the lighting
	// program at 15% of a 100.00 subtotal.
	if records[0].IncentiveProgram != "ENERGY_EFF_LIGHTING" {
		t.Errorf("program = %s, want ENERGY_EFF_LIGHTING", records[0].IncentiveProgram)
	}
	if records[0].IncentiveAmount.StringFixed(2) != "15.00" {
		t.Errorf("incentive = %s, want 15.00", records[0].IncentiveAmount.StringFixed(2))
	}
}

func TestRunDeterministic(t *testing.T) {
	opts := writeFixtures(t)

	first, err := New(opts).Run()
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := New(opts).Run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(first.Issues) != len(second.Issues) {
		t.Fatalf("issue counts differ: %d vs %d", len(first.Issues), len(second.Issues))
	}
	for i := range first.Issues {
		if first.Issues[i] != second.Issues[i] {
			t.Errorf("issue %d differs across runs: %v vs %v", i, first.Issues[i], second.Issues[i])
		}
	}
	if len(first.Settlement.Records) != len(second.Settlement.Records) {
		t.Fatalf("record counts differ")
	}
	for i := range first.Settlement.Records {
		if first.Settlement.Records[i].OrderID != second.Settlement.Records[i].OrderID {
			t.Errorf("record %d order differs across runs", i)
		}
	}
}

func TestRunMissingOrdersFile(t *testing.T) {
	opts := writeFixtures(t)
	opts.OrdersFile = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(opts).Run()
	if err == nil {
		t.Fatal("expected error for missing orders file")
	}
	perr, ok := errors.AsPipelineError(err)
	if !ok {
		t.Fatalf("error is not a PipelineError: %v", err)
	}
	if perr.GetExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", perr.GetExitCode())
	}
}

func TestRunEmptyOrderSnapshot(t *testing.T) {
	opts := writeFixtures(t)
	emptyOrders := filepath.Join(t.TempDir(), "orders.csv")
	header := "order_id,customer_id,order_date,sku,qty,subtotal,state_tax,county_tax,combined_tax,shipping,discount,grand_total,status,payment_method,invoice_number\n"
	if err := os.WriteFile(emptyOrders, []byte(header), 0644); err != nil {
		t.Fatal(err)
	}
	opts.OrdersFile = emptyOrders

	_, err := New(opts).Run()
	if err == nil {
		t.Fatal("expected error for empty order snapshot")
	}
	perr, ok := errors.AsPipelineError(err)
	if !ok {
		t.Fatalf("error is not a PipelineError: %v", err)
	}
	if perr.Code != errors.CodeEmptySnapshot {
		t.Errorf("code = %s, want %s", perr.Code, errors.CodeEmptySnapshot)
	}
	if perr.GetExitCode() != 5 {
		t.Errorf("exit code = %d, want 5", perr.GetExitCode())
	}
}

func TestRunWithoutCustomers(t *testing.T) {
	opts := writeFixtures(t)
	opts.CustomersFile = ""

	result, err := New(opts).Run()
	if err != nil {
		t.Fatalf("Run without customers: %v", err)
	}
	if len(result.Settlement.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Settlement.Records))
	}
	if result.Settlement.Records[0].CustomerName != "" {
		t.Errorf("customer name = %q, want blank without a customer table", result.Settlement.Records[0].CustomerName)
	}
}
