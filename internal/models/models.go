// Package models defines the record types flowing through the settlement
// pipeline: raw commerce exports, processor settlements, cleaned orders and
// the Issue log.
//
// Raw records are immutable snapshots of what the upstream systems exported,
// defects included. Cleaned records are derived values produced by the
// cleaner; they never overwrite the raw snapshot.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the commerce lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusComplete   OrderStatus = "complete"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusClosed     OrderStatus = "closed"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// String returns the string representation of OrderStatus.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid checks if the order status is one of the known lifecycle values.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusComplete, OrderStatusProcessing, OrderStatusPending,
		OrderStatusClosed, OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// TransactionStatus represents the settlement state of a processor record.
type TransactionStatus string

const (
	TransactionStatusSettled  TransactionStatus = "settled"
	TransactionStatusVoided   TransactionStatus = "voided"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

// String returns the string representation of TransactionStatus.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid checks if the transaction status is a known processor value.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusSettled, TransactionStatusVoided, TransactionStatusRefunded:
		return true
	default:
		return false
	}
}

// LoyaltyTier is the customer loyalty tier. The upstream export uses the
// literal string "None" for customers explicitly outside the program, which
// is distinct from the field being absent.
type LoyaltyTier string

const (
	TierBronze LoyaltyTier = "bronze"
	TierSilver LoyaltyTier = "silver"
	TierGold   LoyaltyTier = "gold"
	TierNone   LoyaltyTier = "None"
)

// Customer represents a commerce customer record. The customer table arrives
// clean; it is referenced by orders but never owned by them.
type Customer struct {
	CustomerID  string      `json:"customer_id" csv:"customer_id"`
	FirstName   string      `json:"first_name" csv:"first_name"`
	LastName    string      `json:"last_name" csv:"last_name"`
	Email       string      `json:"email" csv:"email"`
	State       string      `json:"state" csv:"state"`
	CreatedAt   time.Time   `json:"created_at" csv:"created_at"`
	LoyaltyTier LoyaltyTier `json:"loyalty_tier" csv:"loyalty_tier"`
}

// Validate performs basic validation on the Customer.
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.CustomerID) == "" {
		return fmt.Errorf("customer ID cannot be empty")
	}
	return nil
}

// TaxSource records which raw representation produced a unified tax value.
type TaxSource string

const (
	TaxSourceCombined TaxSource = "combined"
	TaxSourceItemized TaxSource = "itemized"
	TaxSourceMissing  TaxSource = "missing"
)

// TaxDetail is the dual-format tax field as a sealed variant: exactly one of
// Combined(amount), Itemized(state, county) or Missing. Construct it through
// CombinedTax, ItemizedTax, MissingTax or ResolveTax; the zero value is the
// Missing variant.
//
// The export switched tax formats mid-year, so a well-formed row populates
// exactly one shape. ResolveTax keeps the raw presence flags so the validator
// can report rows that break that rule.
type TaxDetail struct {
	source   TaxSource
	amount   decimal.Decimal
	state    decimal.Decimal
	county   decimal.Decimal
	hasState bool
	hasCounty bool
	hasCombined bool
}

// CombinedTax builds the combined-format variant.
func CombinedTax(amount decimal.Decimal) TaxDetail {
	return TaxDetail{
		source:      TaxSourceCombined,
		amount:      amount.Round(2),
		hasCombined: true,
	}
}

// ItemizedTax builds the itemized-format variant from state and county parts.
func ItemizedTax(state, county decimal.Decimal) TaxDetail {
	return TaxDetail{
		source:    TaxSourceItemized,
		amount:    state.Add(county).Round(2),
		state:     state,
		county:    county,
		hasState:  true,
		hasCounty: true,
	}
}

// MissingTax builds the absent variant.
func MissingTax() TaxDetail {
	return TaxDetail{source: TaxSourceMissing}
}

// ResolveTax classifies the raw nullable tax columns into a TaxDetail.
// Priority rule: a populated combined field wins outright; itemized is used
// only when both of its parts are present; anything else is missing. Combined
// values are never cross-checked against itemized ones; the formats are
// mutually exclusive by construction upstream.
func ResolveTax(combined, state, county *decimal.Decimal) TaxDetail {
	var t TaxDetail
	switch {
	case combined != nil:
		t = CombinedTax(*combined)
	case state != nil && county != nil:
		t = ItemizedTax(*state, *county)
	default:
		t = MissingTax()
	}
	t.hasCombined = combined != nil
	t.hasState = state != nil
	t.hasCounty = county != nil
	return t
}

// Source returns which raw representation produced the value.
func (t TaxDetail) Source() TaxSource {
	if t.source == "" {
		return TaxSourceMissing
	}
	return t.source
}

// Amount returns the unified tax total. ok is false for the Missing variant,
// in which case the amount is zero.
func (t TaxDetail) Amount() (amount decimal.Decimal, ok bool) {
	if t.Source() == TaxSourceMissing {
		return decimal.Zero, false
	}
	return t.amount, true
}

// AmountOrZero returns the unified tax total, treating missing tax as zero.
// Used by the grand-total recomputation.
func (t TaxDetail) AmountOrZero() decimal.Decimal {
	amount, _ := t.Amount()
	return amount
}

// Itemized returns the raw state and county parts for the itemized variant.
func (t TaxDetail) Itemized() (state, county decimal.Decimal, ok bool) {
	return t.state, t.county, t.Source() == TaxSourceItemized
}

// FormatViolation reports whether the raw row broke the mutual-exclusivity
// rule: both formats populated, a partial itemized pair, or no tax fields at
// all.
func (t TaxDetail) FormatViolation() bool {
	combinedOnly := t.hasCombined && !t.hasState && !t.hasCounty
	itemizedOnly := !t.hasCombined && t.hasState && t.hasCounty
	return !combinedOnly && !itemizedOnly
}

// Order represents a raw commerce order row exactly as exported: currency as
// text, a locale-formatted timestamp, one of several SKU spellings, and a
// possibly duplicated identifier.
type Order struct {
	OrderID       string          `json:"order_id" csv:"order_id"`
	CustomerID    string          `json:"customer_id" csv:"customer_id"`
	OrderDate     string          `json:"order_date" csv:"order_date"`
	SKU           string          `json:"sku" csv:"sku"`
	Qty           int             `json:"qty" csv:"qty"`
	Subtotal      string          `json:"subtotal" csv:"subtotal"`
	Tax           TaxDetail       `json:"-"`
	Shipping      decimal.Decimal `json:"shipping" csv:"shipping"`
	Discount      decimal.Decimal `json:"discount" csv:"discount"`
	GrandTotal    decimal.Decimal `json:"grand_total" csv:"grand_total"`
	Status        OrderStatus     `json:"status" csv:"status"`
	PaymentMethod string          `json:"payment_method" csv:"payment_method"`
	InvoiceNumber string          `json:"invoice_number" csv:"invoice_number"`
}

// HasInvoice reports whether the billing step produced an invoice number.
func (o *Order) HasInvoice() bool {
	return strings.TrimSpace(o.InvoiceNumber) != ""
}

// Validate performs structural validation on the raw Order. Only the fields
// required for joins are enforced; data-quality defects are the validator's
// job, not a parse failure.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return fmt.Errorf("order ID cannot be empty")
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("invalid order status: %s", o.Status)
	}
	return nil
}

// Transaction represents a payment-processor settlement row. It is sourced
// independently from orders; the order identifier it claims to settle may not
// exist in the order set.
type Transaction struct {
	TransactionID string            `json:"transaction_id" csv:"transaction_id"`
	OrderID       string            `json:"order_id" csv:"order_id"`
	SettleDate    time.Time         `json:"settle_date" csv:"settle_date"`
	GrossAmount   decimal.Decimal   `json:"gross_amount" csv:"gross_amount"`
	ProcessorFee  decimal.Decimal   `json:"processor_fee" csv:"processor_fee"`
	NetAmount     decimal.Decimal   `json:"net_amount" csv:"net_amount"`
	Status        TransactionStatus `json:"status" csv:"status"`
	AuthCode      string            `json:"auth_code" csv:"auth_code"`
}

// IsSettled reports whether the processor considers the money settled.
// Voided and refunded transactions never settle an order.
func (t *Transaction) IsSettled() bool {
	return t.Status == TransactionStatusSettled
}

// Validate performs basic validation on the Transaction.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.TransactionID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid transaction status: %s", t.Status)
	}
	return nil
}

// CleanOrder is the normalized form of an Order: canonical SKU, numeric
// amounts, unified tax with provenance, ISO timestamp, downstream status
// codes and resolved incentive program. It is derived from the raw snapshot
// and never written back onto it.
type CleanOrder struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`

	// OrderTimestamp is nil when the raw date could not be parsed; the
	// count of such failures is surfaced by the cleaner.
	OrderTimestamp *time.Time `json:"order_timestamp"`
	RawOrderDate   string     `json:"raw_order_date"`

	SKU    string `json:"sku_normalized"`
	RawSKU string `json:"raw_sku"`
	Qty    int    `json:"qty"`

	// Subtotal is zero and SubtotalParsed false when the raw currency text
	// had non-numeric residue.
	Subtotal       decimal.Decimal `json:"subtotal"`
	SubtotalParsed bool            `json:"subtotal_parsed"`

	Tax        TaxDetail       `json:"-"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	GrandTotal decimal.Decimal `json:"grand_total"`

	Status          OrderStatus `json:"status"`
	StatusCode      string      `json:"dynamics_status_code"`
	StatusLabel     string      `json:"status_label"`
	PaymentEligible bool        `json:"payment_eligible"`

	PaymentMethod string `json:"payment_method"`
	InvoiceNumber string `json:"invoice_number"`

	IncentiveProgram string          `json:"incentive_program"`
	IncentiveRate    decimal.Decimal `json:"incentive_rate"`
	IncentiveAmount  decimal.Decimal `json:"incentive_amount"`
}

// TaxAmount returns the unified tax total and its provenance tag.
func (o *CleanOrder) TaxAmount() (decimal.Decimal, TaxSource) {
	amount, _ := o.Tax.Amount()
	return amount, o.Tax.Source()
}

// IssueType classifies a data-quality finding.
type IssueType string

const (
	IssueDuplicateOrder    IssueType = "DUPLICATE_ORDER"
	IssueMissingInvoice    IssueType = "MISSING_INVOICE"
	IssueTaxFormat         IssueType = "TAX_FORMAT_VIOLATION"
	IssueOrphanTransaction IssueType = "ORPHAN_TRANSACTION"
	IssueUnsettledOrder    IssueType = "UNSETTLED_ORDER"
	IssueAmountMismatch    IssueType = "AMOUNT_MISMATCH"
	IssueTotalMismatch     IssueType = "TOTAL_MISMATCH"
	IssueUnmappedProduct   IssueType = "UNMAPPED_PRODUCT"
)

// Issue is a single data-quality finding destined for the finance team.
// Issues are append-only: created during validation or reconciliation and
// never mutated afterwards.
type Issue struct {
	Type           IssueType `json:"issue_type"`
	OrderID        string    `json:"order_id,omitempty"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	Detail         string    `json:"detail"`
	ActionRequired string    `json:"action_required"`
}

// String returns a one-line representation suitable for logs.
func (i Issue) String() string {
	ref := i.OrderID
	if ref == "" {
		ref = i.TransactionID
	}
	return fmt.Sprintf("[%s] %s: %s", i.Type, ref, i.Detail)
}

// CountIssuesByType tallies an issue log by kind.
func CountIssuesByType(issues []Issue) map[IssueType]int {
	counts := make(map[IssueType]int)
	for _, issue := range issues {
		counts[issue.Type]++
	}
	return counts
}

// Utility functions shared across parsing and normalization.

// ParseCurrency converts localized currency text such as "$1,247.50" into a
// decimal rounded to cents. Any non-numeric residue after stripping the
// symbol and separators is a hard parse failure for the field.
func ParseCurrency(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid currency format '%s': %w", s, err)
	}

	return d.Round(2), nil
}

// OrderDateLayout is the locale-specific format the commerce system exports
// order timestamps in.
const OrderDateLayout = "01/02/2006 15:04"

// ParseOrderDate parses the raw month/day/year-hour:minute order timestamp
// into UTC. A handful of fallback layouts cover rows touched by hand.
func ParseOrderDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("order date cannot be empty")
	}

	layouts := []string{
		OrderDateLayout,       // "06/22/2024 12:00"
		"01/02/2006",          // date only
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse order date '%s': %w", s, lastErr)
}

// ParseSettleDate parses the processor settlement date (YYYY-MM-DD).
func ParseSettleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("settle date cannot be empty")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid settle date '%s': %w", s, err)
	}
	return t.UTC(), nil
}

// ISOTimestamp formats a timestamp in the ISO-8601 UTC form the downstream
// system expects.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// WithinTolerance compares two amounts against an absolute tolerance.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
