// Package generator produces deterministic synthetic exports for testing the
// pipeline end to end: a customer table, a messy order export carrying the
// defect classes the cleaner and validator must handle, and a processor
// settlement file with orphans.
package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/errors"
	"order-settlement-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Config controls generation volume and defect rates. Identical Config and
// Seed always produce byte-identical files.
type Config struct {
	Seed          int64
	CustomerCount int
	OrderCount    int

	// DuplicateRows is the number of order rows re-emitted verbatim.
	DuplicateRows int
	// OrphanCount is the number of settled transactions referencing orders
	// that do not exist.
	OrphanCount int
	// MissingInvoiceRate is the fraction of orders exported without an
	// invoice number.
	MissingInvoiceRate float64
}

// DefaultConfig returns the standard test volume.
func DefaultConfig() *Config {
	return &Config{
		Seed:               42,
		CustomerCount:      50,
		OrderCount:         100,
		DuplicateRows:      5,
		OrphanCount:        3,
		MissingInvoiceRate: 0.10,
	}
}

// skuVariants lists the spellings of each canonical product identifier as
// they appear across export jobs. Each generated order picks one variant.
var skuVariants = map[string][]string{
	"SKU-LED-001":    {"SKU-LED-001", "sku-led-001", "SKU_LED_001", " SKU-LED-001 "},
	"SKU-THERM-002":  {"SKU-THERM-002", "THERM002", "sku-therm-002"},
	"SKU-SMART-003":  {"SKU-SMART-003", "SKU_SMART_003", "sku smart 003"},
	"SKU-AUDIT-004":  {"SKU-AUDIT-004", "sku-audit-004"},
	"SKU-HVAC-005":   {"SKU-HVAC-005", "HVAC-005", "SKU_HVAC_005"},
	"SKU-REBATE-006": {"SKU-REBATE-006", "sku_rebate_006"},
}

var canonicalSKUs = []string{
	"SKU-LED-001", "SKU-THERM-002", "SKU-SMART-003",
	"SKU-AUDIT-004", "SKU-HVAC-005", "SKU-REBATE-006",
}

var orderStatuses = []models.OrderStatus{
	models.OrderStatusComplete, models.OrderStatusComplete, models.OrderStatusComplete,
	models.OrderStatusProcessing, models.OrderStatusProcessing,
	models.OrderStatusPending,
	models.OrderStatusClosed,
	models.OrderStatusCanceled,
}

var states = []string{"CA", "TX", "NY", "FL", "WA", "OR", "CO", "AZ", "MA", "IL"}

var tiers = []models.LoyaltyTier{
	models.TierBronze, models.TierSilver, models.TierGold, models.TierNone,
}

var paymentMethods = []string{"credit_card", "credit_card", "credit_card", "paypal", "bank_transfer"}

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
	"Linda", "David", "Elizabeth", "William", "Barbara", "Richard", "Susan",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
}

// processorFeeRate and processorFeeFixed model the standard card-present
// pricing: 2.9% plus 30 cents per transaction.
var (
	processorFeeRate  = decimal.NewFromFloat(0.029)
	processorFeeFixed = decimal.NewFromFloat(0.30)
)

// Generator writes the three synthetic export files.
type Generator struct {
	config *Config
	rng    *rand.Rand
	log    logger.Logger

	// lastOrders carries order metadata between the order and transaction
	// passes of a single Generate call.
	lastOrders []orderRow
}

// New creates a Generator. A nil config selects the default volume.
func New(config *Config) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		log:    logger.GetGlobalLogger().WithComponent("generator"),
	}
}

// Files names the three exports written into an output directory.
type Files struct {
	Customers    string
	Orders       string
	Transactions string
}

// Generate writes customers.csv, orders.csv and transactions.csv into dir
// and returns their paths.
func (g *Generator) Generate(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.FileError(errors.CodeDirectoryError, dir, err)
	}

	files := &Files{
		Customers:    filepath.Join(dir, "customers.csv"),
		Orders:       filepath.Join(dir, "orders.csv"),
		Transactions: filepath.Join(dir, "transactions.csv"),
	}

	customers := g.generateCustomers()
	orders := g.generateOrderRows(customers)
	transactions := g.generateTransactionRows()

	if err := writeCSV(files.Customers, customerHeader, customers); err != nil {
		return nil, err
	}
	if err := writeCSV(files.Orders, orderHeader, orders); err != nil {
		return nil, err
	}
	if err := writeCSV(files.Transactions, transactionHeader, transactions); err != nil {
		return nil, err
	}

	g.log.WithFields(logger.Fields{
		"dir":          dir,
		"customers":    len(customers),
		"orders":       len(orders),
		"transactions": len(transactions),
	}).Info("Generated synthetic exports")

	return files, nil
}

var customerHeader = []string{
	"customer_id", "first_name", "last_name", "email", "state", "created_at", "loyalty_tier",
}

var orderHeader = []string{
	"order_id", "customer_id", "order_date", "sku", "qty", "subtotal",
	"state_tax", "county_tax", "combined_tax", "shipping", "discount",
	"grand_total", "status", "payment_method", "invoice_number",
}

var transactionHeader = []string{
	"transaction_id", "order_id", "settle_date", "gross_amount",
	"processor_fee", "net_amount", "status", "auth_code",
}

func (g *Generator) generateCustomers() [][]string {
	rows := make([][]string, 0, g.config.CustomerCount)
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= g.config.CustomerCount; i++ {
		first := firstNames[g.rng.Intn(len(firstNames))]
		last := lastNames[g.rng.Intn(len(lastNames))]
		created := base.AddDate(0, 0, g.rng.Intn(500))
		rows = append(rows, []string{
			fmt.Sprintf("CUST-%04d", i),
			first,
			last,
			fmt.Sprintf("%s.%s%d@example.com", first, last, i),
			states[g.rng.Intn(len(states))],
			created.Format("2006-01-02"),
			string(tiers[g.rng.Intn(len(tiers))]),
		})
	}
	return rows
}

// orderRow keeps the generated values needed to derive the matching
// transaction without re-parsing the CSV text.
type orderRow struct {
	id         string
	grandTotal decimal.Decimal
	status     models.OrderStatus
	orderDate  time.Time
	record     []string
}

func (g *Generator) generateOrderRows(customers [][]string) [][]string {
	base := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	orders := make([]orderRow, 0, g.config.OrderCount)

	for i := 1; i <= g.config.OrderCount; i++ {
		canonical := canonicalSKUs[g.rng.Intn(len(canonicalSKUs))]
		variants := skuVariants[canonical]
		sku := variants[g.rng.Intn(len(variants))]

		qty := 1 + g.rng.Intn(4)
		unitPrice := decimal.NewFromInt(int64(50 + g.rng.Intn(400))).
			Add(decimal.NewFromFloat(0.99))
		subtotal := unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)

		// Roughly half the year used itemized tax columns, the other half
		// the combined column.
		var stateTax, countyTax, combinedTax string
		taxTotal := subtotal.Mul(decimal.NewFromFloat(0.0725)).Round(2)
		switch g.rng.Intn(10) {
		case 0: // occasional row with no tax at all
		case 1, 2, 3, 4:
			st := subtotal.Mul(decimal.NewFromFloat(0.06)).Round(2)
			stateTax = st.StringFixed(2)
			countyTax = taxTotal.Sub(st).StringFixed(2)
		default:
			combinedTax = taxTotal.StringFixed(2)
		}

		shipping := decimal.NewFromFloat(5.00)
		if subtotal.GreaterThan(decimal.NewFromInt(500)) {
			shipping = decimal.Zero
		}
		discount := decimal.Zero
		if g.rng.Intn(5) == 0 {
			discount = subtotal.Mul(decimal.NewFromFloat(0.05)).Round(2)
		}
		grandTotal := subtotal.Add(taxTotal).Add(shipping).Sub(discount).Round(2)

		// Currency as text: a minority of rows carry the symbol and
		// thousands separators the way hand-exported sheets do.
		subtotalText := subtotal.StringFixed(2)
		if g.rng.Intn(4) == 0 {
			subtotalText = "$" + withThousands(subtotal)
		}

		status := orderStatuses[g.rng.Intn(len(orderStatuses))]
		invoice := fmt.Sprintf("INV-2024-%05d", i)
		if g.rng.Float64() < g.config.MissingInvoiceRate {
			invoice = ""
		}

		orderDate := base.AddDate(0, 0, g.rng.Intn(300)).
			Add(time.Duration(g.rng.Intn(600)) * time.Minute)
		customer := customers[g.rng.Intn(len(customers))]

		row := orderRow{
			id:         fmt.Sprintf("ORD-2024-%05d", i),
			grandTotal: grandTotal,
			status:     status,
			orderDate:  orderDate,
		}
		row.record = []string{
			row.id,
			customer[0],
			orderDate.Format(models.OrderDateLayout),
			sku,
			fmt.Sprintf("%d", qty),
			subtotalText,
			stateTax,
			countyTax,
			combinedTax,
			shipping.StringFixed(2),
			discount.StringFixed(2),
			grandTotal.StringFixed(2),
			string(status),
			paymentMethods[g.rng.Intn(len(paymentMethods))],
			invoice,
		}
		orders = append(orders, row)
	}

	rows := make([][]string, 0, len(orders)+g.config.DuplicateRows)
	for _, o := range orders {
		rows = append(rows, o.record)
	}
	// Re-emit a handful of rows verbatim, the way a retried export job
	// duplicates them.
	for i := 0; i < g.config.DuplicateRows && len(orders) > 0; i++ {
		rows = append(rows, orders[g.rng.Intn(len(orders))].record)
	}

	g.lastOrders = orders
	return rows
}

func (g *Generator) generateTransactionRows() [][]string {
	rows := make([][]string, 0, len(g.lastOrders))
	txSeq := 1

	for _, o := range g.lastOrders {
		// The processor only has records for orders that reached payment.
		if o.status != models.OrderStatusComplete && o.status != models.OrderStatusProcessing {
			continue
		}
		// A small fraction of eligible orders never settled; those become
		// the unsettled findings downstream.
		if g.rng.Intn(20) == 0 {
			continue
		}

		fee := o.grandTotal.Mul(processorFeeRate).Add(processorFeeFixed).Round(2)
		settle := o.orderDate.AddDate(0, 0, 1+g.rng.Intn(3))
		rows = append(rows, []string{
			fmt.Sprintf("TXN-%06d", txSeq),
			o.id,
			settle.Format("2006-01-02"),
			o.grandTotal.StringFixed(2),
			fee.StringFixed(2),
			o.grandTotal.Sub(fee).StringFixed(2),
			string(models.TransactionStatusSettled),
			fmt.Sprintf("AUTH%06d", g.rng.Intn(1000000)),
		})
		txSeq++
	}

	// Orphans: settled money referencing order ids that never existed.
	for i := 1; i <= g.config.OrphanCount; i++ {
		gross := decimal.NewFromInt(int64(100 + g.rng.Intn(900))).
			Add(decimal.NewFromFloat(0.50))
		fee := gross.Mul(processorFeeRate).Add(processorFeeFixed).Round(2)
		rows = append(rows, []string{
			fmt.Sprintf("TXN-ORPHAN-%d", i),
			fmt.Sprintf("ORD-GHOST-%03d", i),
			time.Date(2024, 6, 10+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			gross.StringFixed(2),
			fee.StringFixed(2),
			gross.Sub(fee).StringFixed(2),
			string(models.TransactionStatusSettled),
			fmt.Sprintf("AUTH%06d", g.rng.Intn(1000000)),
		})
	}

	return rows
}

// withThousands formats an amount with comma thousands separators, the way
// spreadsheet exports render currency.
func withThousands(d decimal.Decimal) string {
	s := d.StringFixed(2)
	intPart := s[:len(s)-3]
	fracPart := s[len(s)-3:]

	neg := false
	if len(intPart) > 0 && intPart[0] == '-' {
		neg = true
		intPart = intPart[1:]
	}

	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}

	result := string(out) + fracPart
	if neg {
		result = "-" + result
	}
	return result
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return errors.FileError(errors.CodeWriteFailed, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return nil
}
