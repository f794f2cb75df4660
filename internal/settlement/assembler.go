// Package settlement assembles the final settlement dataset: the inner join
// of payment-eligible cleaned orders with their settled processor
// transactions, enriched with customer attributes where they exist.
//
// Assembly is a pure derivation. It consumes the pipeline's cleaned and
// reconciled views and produces new records; nothing upstream is modified.
package settlement

import (
	"sort"

	"order-settlement-service/internal/models"
	"order-settlement-service/internal/reconciler"
	"order-settlement-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Record is one settled order ready for submission: order identity and
// timing, the customer behind it (blank when the customer export lacks the
// id), the product and its incentive program, the full amount breakdown and
// the processor's side of the settlement.
type Record struct {
	OrderID        string `json:"order_id" csv:"order_id"`
	OrderTimestamp string `json:"order_timestamp" csv:"order_timestamp"`
	InvoiceNumber  string `json:"invoice_number" csv:"invoice_number"`

	CustomerID    string `json:"customer_id" csv:"customer_id"`
	CustomerName  string `json:"customer_name" csv:"customer_name"`
	CustomerEmail string `json:"customer_email" csv:"customer_email"`
	CustomerState string `json:"customer_state" csv:"customer_state"`
	LoyaltyTier   string `json:"loyalty_tier" csv:"loyalty_tier"`

	SKU              string `json:"sku" csv:"sku"`
	IncentiveProgram string `json:"incentive_program" csv:"incentive_program"`
	Qty              int    `json:"qty" csv:"qty"`

	Subtotal   decimal.Decimal  `json:"subtotal" csv:"subtotal"`
	TaxAmount  decimal.Decimal  `json:"tax_amount" csv:"tax_amount"`
	TaxSource  models.TaxSource `json:"tax_source" csv:"tax_source"`
	Shipping   decimal.Decimal  `json:"shipping" csv:"shipping"`
	Discount   decimal.Decimal  `json:"discount" csv:"discount"`
	GrandTotal decimal.Decimal  `json:"grand_total" csv:"grand_total"`

	IncentiveRate   decimal.Decimal `json:"incentive_rate" csv:"incentive_rate"`
	IncentiveAmount decimal.Decimal `json:"incentive_amount" csv:"incentive_amount"`

	TransactionID  string          `json:"transaction_id" csv:"transaction_id"`
	SettlementDate string          `json:"settlement_date" csv:"settlement_date"`
	GrossAmount    decimal.Decimal `json:"gross_amount" csv:"gross_amount"`
	ProcessorFee   decimal.Decimal `json:"processor_fee" csv:"processor_fee"`
	NetAmount      decimal.Decimal `json:"net_amount" csv:"net_amount"`

	StatusCode    string `json:"status_code" csv:"status_code"`
	StatusLabel   string `json:"status_label" csv:"status_label"`
	PaymentMethod string `json:"payment_method" csv:"payment_method"`
}

// ProgramSummary aggregates settled orders per incentive program.
type ProgramSummary struct {
	Program         string          `json:"program"`
	OrderCount      int             `json:"order_count"`
	TotalQty        int             `json:"total_qty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	IncentiveAmount decimal.Decimal `json:"incentive_amount"`
}

// MonthSummary aggregates settled orders per settlement month (YYYY-MM).
type MonthSummary struct {
	Month           string          `json:"month"`
	OrderCount      int             `json:"order_count"`
	GrossAmount     decimal.Decimal `json:"gross_amount"`
	ProcessorFees   decimal.Decimal `json:"processor_fees"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	IncentiveAmount decimal.Decimal `json:"incentive_amount"`
}

// Dataset is the assembled output: the detail records plus the derived
// program and month rollups. The rollups are views over Records and carry no
// information of their own.
type Dataset struct {
	Records   []*Record        `json:"records"`
	ByProgram []ProgramSummary `json:"by_program"`
	ByMonth   []MonthSummary   `json:"by_month"`

	TotalGross     decimal.Decimal `json:"total_gross"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	TotalNet       decimal.Decimal `json:"total_net"`
	TotalIncentive decimal.Decimal `json:"total_incentive"`
}

// Assembler builds the settlement dataset.
type Assembler struct {
	log logger.Logger
}

// New creates an Assembler.
func New() *Assembler {
	return &Assembler{
		log: logger.GetGlobalLogger().WithComponent("settlement"),
	}
}

// Assemble inner-joins payment-eligible cleaned orders with their settled
// transactions and outer-joins customer attributes. Orders that are not
// payment eligible, or eligible but unsettled, produce no record; those
// exclusions are already reported by the reconciler. Output order follows
// the cleaned order slice, so identical input yields identical output.
func (a *Assembler) Assemble(orders []*models.CleanOrder, transactions []*models.Transaction, customers []*models.Customer) *Dataset {
	settled := reconciler.SettledIndex(transactions)

	customerIndex := make(map[string]*models.Customer, len(customers))
	for _, c := range customers {
		customerIndex[c.CustomerID] = c
	}

	ds := &Dataset{
		TotalGross:     decimal.Zero,
		TotalFees:      decimal.Zero,
		TotalNet:       decimal.Zero,
		TotalIncentive: decimal.Zero,
	}

	for _, order := range orders {
		if !order.PaymentEligible {
			continue
		}
		tx, ok := settled[order.OrderID]
		if !ok {
			continue
		}
		record := buildRecord(order, tx, customerIndex[order.CustomerID])
		ds.Records = append(ds.Records, record)

		ds.TotalGross = ds.TotalGross.Add(record.GrossAmount)
		ds.TotalFees = ds.TotalFees.Add(record.ProcessorFee)
		ds.TotalNet = ds.TotalNet.Add(record.NetAmount)
		ds.TotalIncentive = ds.TotalIncentive.Add(record.IncentiveAmount)
	}

	ds.ByProgram = summarizeByProgram(ds.Records)
	ds.ByMonth = summarizeByMonth(ds.Records)

	a.log.WithFields(logger.Fields{
		"records":         len(ds.Records),
		"programs":        len(ds.ByProgram),
		"months":          len(ds.ByMonth),
		"total_net":       ds.TotalNet.StringFixed(2),
		"total_incentive": ds.TotalIncentive.StringFixed(2),
	}).Info("Settlement dataset assembled")

	return ds
}

func buildRecord(order *models.CleanOrder, tx *models.Transaction, customer *models.Customer) *Record {
	record := &Record{
		OrderID:       order.OrderID,
		InvoiceNumber: order.InvoiceNumber,
		CustomerID:    order.CustomerID,

		SKU:              order.SKU,
		IncentiveProgram: order.IncentiveProgram,
		Qty:              order.Qty,

		Subtotal:   order.Subtotal,
		Shipping:   order.Shipping,
		Discount:   order.Discount,
		GrandTotal: order.GrandTotal,

		IncentiveRate:   order.IncentiveRate,
		IncentiveAmount: order.IncentiveAmount,

		TransactionID:  tx.TransactionID,
		SettlementDate: tx.SettleDate.Format("2006-01-02"),
		GrossAmount:    tx.GrossAmount,
		ProcessorFee:   tx.ProcessorFee,
		NetAmount:      tx.NetAmount,

		StatusCode:    order.StatusCode,
		StatusLabel:   order.StatusLabel,
		PaymentMethod: order.PaymentMethod,
	}

	record.TaxAmount, record.TaxSource = order.TaxAmount()

	if order.OrderTimestamp != nil {
		record.OrderTimestamp = models.ISOTimestamp(*order.OrderTimestamp)
	} else {
		record.OrderTimestamp = order.RawOrderDate
	}

	// Customer is an outer join; a missing customer leaves the attribute
	// columns blank rather than dropping the settlement.
	if customer != nil {
		record.CustomerName = customer.FirstName + " " + customer.LastName
		record.CustomerEmail = customer.Email
		record.CustomerState = customer.State
		record.LoyaltyTier = string(customer.LoyaltyTier)
	}

	return record
}

func summarizeByProgram(records []*Record) []ProgramSummary {
	byProgram := make(map[string]*ProgramSummary)
	for _, r := range records {
		summary, ok := byProgram[r.IncentiveProgram]
		if !ok {
			summary = &ProgramSummary{
				Program:         r.IncentiveProgram,
				Subtotal:        decimal.Zero,
				GrandTotal:      decimal.Zero,
				IncentiveAmount: decimal.Zero,
			}
			byProgram[r.IncentiveProgram] = summary
		}
		summary.OrderCount++
		summary.TotalQty += r.Qty
		summary.Subtotal = summary.Subtotal.Add(r.Subtotal)
		summary.GrandTotal = summary.GrandTotal.Add(r.GrandTotal)
		summary.IncentiveAmount = summary.IncentiveAmount.Add(r.IncentiveAmount)
	}

	summaries := make([]ProgramSummary, 0, len(byProgram))
	for _, summary := range byProgram {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Program < summaries[j].Program
	})
	return summaries
}

func summarizeByMonth(records []*Record) []MonthSummary {
	byMonth := make(map[string]*MonthSummary)
	for _, r := range records {
		month := r.SettlementDate
		if len(month) >= 7 {
			month = month[:7]
		}
		summary, ok := byMonth[month]
		if !ok {
			summary = &MonthSummary{
				Month:           month,
				GrossAmount:     decimal.Zero,
				ProcessorFees:   decimal.Zero,
				NetAmount:       decimal.Zero,
				IncentiveAmount: decimal.Zero,
			}
			byMonth[month] = summary
		}
		summary.OrderCount++
		summary.GrossAmount = summary.GrossAmount.Add(r.GrossAmount)
		summary.ProcessorFees = summary.ProcessorFees.Add(r.ProcessorFee)
		summary.NetAmount = summary.NetAmount.Add(r.NetAmount)
		summary.IncentiveAmount = summary.IncentiveAmount.Add(r.IncentiveAmount)
	}

	summaries := make([]MonthSummary, 0, len(byMonth))
	for _, summary := range byMonth {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Month < summaries[j].Month
	})
	return summaries
}
