package cleaner

import (
	"strings"
	"time"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/logger"
)

// StatusMapping is the downstream representation of a commerce lifecycle
// status: the numeric code and label the target system expects, plus whether
// the status makes the order eligible for payment submission.
type StatusMapping struct {
	Code            string
	Label           string
	PaymentEligible bool
}

// statusMap is the fixed lifecycle-status lookup table. Statuses absent from
// the table map to the UNKNOWN sentinel rather than failing.
var statusMap = map[models.OrderStatus]StatusMapping{
	models.OrderStatusComplete:   {Code: "110", Label: "INVOICED", PaymentEligible: true},
	models.OrderStatusProcessing: {Code: "100", Label: "IN_PROGRESS", PaymentEligible: true},
	models.OrderStatusClosed:     {Code: "120", Label: "CLOSED", PaymentEligible: false},
	models.OrderStatusPending:    {Code: "50", Label: "PENDING", PaymentEligible: false},
	models.OrderStatusCanceled:   {Code: "999", Label: "VOID", PaymentEligible: false},
}

// unknownStatus is the sentinel mapping for statuses outside the table.
var unknownStatus = StatusMapping{Code: "000", Label: "UNKNOWN", PaymentEligible: false}

// MapStatus resolves a lifecycle status to its downstream mapping.
func MapStatus(status models.OrderStatus) StatusMapping {
	if mapping, ok := statusMap[status]; ok {
		return mapping
	}
	return unknownStatus
}

// NormalizeSKU canonicalizes a product identifier: uppercase, trimmed, with
// underscore and space separators unified to hyphens. Idempotent: an already
// canonical identifier passes through unchanged.
func NormalizeSKU(sku string) string {
	normalized := strings.ToUpper(strings.TrimSpace(sku))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	return normalized
}

// Stats counts what normalization observed across a batch. Parse failures
// are flagged on the records, not dropped; these counts make them auditable.
type Stats struct {
	Orders                int                      `json:"orders"`
	SKUsChanged           int                      `json:"skus_changed"`
	CurrencyParseFailures int                      `json:"currency_parse_failures"`
	DateParseFailures     int                      `json:"date_parse_failures"`
	TaxSources            map[models.TaxSource]int `json:"tax_sources"`
	UnknownStatuses       int                      `json:"unknown_statuses"`
}

// Normalizer converts raw orders into their canonical form.
type Normalizer struct {
	log logger.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		log: logger.GetGlobalLogger().WithComponent("normalizer"),
	}
}

// Normalize transforms a deduplicated batch. The transform is pure per
// record; a failure in one record flags that record and the batch continues.
func (n *Normalizer) Normalize(orders []*models.Order) ([]*models.CleanOrder, *Stats) {
	stats := &Stats{
		Orders:     len(orders),
		TaxSources: make(map[models.TaxSource]int),
	}

	clean := make([]*models.CleanOrder, 0, len(orders))
	for _, order := range orders {
		co := n.NormalizeOrder(order)
		clean = append(clean, co)

		if co.SKU != co.RawSKU {
			stats.SKUsChanged++
		}
		if !co.SubtotalParsed {
			stats.CurrencyParseFailures++
		}
		if co.OrderTimestamp == nil {
			stats.DateParseFailures++
		}
		stats.TaxSources[co.Tax.Source()]++
		if co.StatusCode == unknownStatus.Code {
			stats.UnknownStatuses++
		}
	}

	n.log.WithFields(logger.Fields{
		"orders":                 stats.Orders,
		"skus_changed":           stats.SKUsChanged,
		"currency_parse_failures": stats.CurrencyParseFailures,
		"date_parse_failures":    stats.DateParseFailures,
		"unknown_statuses":       stats.UnknownStatuses,
	}).Info("Normalization completed")

	return clean, stats
}

// NormalizeOrder applies every canonicalization to a single raw order:
// SKU unification, currency and timestamp parsing, tax resolution and the
// status mapping. Deterministic and side-effect free.
func (n *Normalizer) NormalizeOrder(order *models.Order) *models.CleanOrder {
	co := &models.CleanOrder{
		OrderID:       order.OrderID,
		CustomerID:    order.CustomerID,
		RawOrderDate:  order.OrderDate,
		RawSKU:        order.SKU,
		SKU:           NormalizeSKU(order.SKU),
		Qty:           order.Qty,
		Tax:           order.Tax,
		Shipping:      order.Shipping.Round(2),
		Discount:      order.Discount.Round(2),
		GrandTotal:    order.GrandTotal.Round(2),
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		InvoiceNumber: order.InvoiceNumber,
	}

	if subtotal, err := models.ParseCurrency(order.Subtotal); err == nil {
		co.Subtotal = subtotal
		co.SubtotalParsed = true
	}

	if ts, err := models.ParseOrderDate(order.OrderDate); err == nil {
		co.OrderTimestamp = timePtr(ts)
	}

	mapping := MapStatus(order.Status)
	co.StatusCode = mapping.Code
	co.StatusLabel = mapping.Label
	co.PaymentEligible = mapping.PaymentEligible

	return co
}

func timePtr(t time.Time) *time.Time {
	return &t
}
