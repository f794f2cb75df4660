package parsers

import (
	"io"
	"strconv"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/errors"
	"order-settlement-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// OrderParserConfig configures parsing of the raw commerce order export.
type OrderParserConfig struct {
	*ParseConfig
}

// DefaultOrderParserConfig returns a configuration matching the standard
// order export, including the header spellings seen across export jobs.
func DefaultOrderParserConfig() *OrderParserConfig {
	config := DefaultParseConfig()
	config.ColumnAliases = map[string]string{
		"id":           "order_id",
		"order":        "order_id",
		"cust_id":      "customer_id",
		"customer":     "customer_id",
		"date":         "order_date",
		"order_ts":     "order_date",
		"product_sku":  "sku",
		"item_sku":     "sku",
		"quantity":     "qty",
		"sub_total":    "subtotal",
		"total":        "grand_total",
		"order_status": "status",
		"invoice":      "invoice_number",
		"invoice_no":   "invoice_number",
	}
	return &OrderParserConfig{ParseConfig: config}
}

// OrderParser reads raw order rows. The deliberately messy fields (currency
// text, locale dates, SKU variants, dual tax shapes) are carried through
// verbatim; cleaning them is the cleaner's job, and the validator needs to
// see the defects in their original form.
type OrderParser struct {
	config *OrderParserConfig
	log    logger.Logger
}

// NewOrderParser creates a parser for the raw order export.
func NewOrderParser(config *OrderParserConfig) (*OrderParser, error) {
	if config == nil {
		config = DefaultOrderParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "order_parser", config, err)
	}
	return &OrderParser{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("order_parser"),
	}, nil
}

// ParseOrders reads every order row from the file. Malformed rows are
// recorded in the stats and skipped; the returned slice preserves file order,
// duplicates included.
func (p *OrderParser) ParseOrders(file string) ([]*models.Order, *ParseStats, error) {
	rr, err := openRowReader(file, p.config.ParseConfig, []string{"order_id", "sku", "subtotal", "status"})
	if err != nil {
		return nil, nil, err
	}
	defer rr.close()

	stats := &ParseStats{File: file}
	var orders []*models.Order

	for {
		record, line, err := rr.next()
		if err == io.EOF {
			break
		}
		stats.TotalRows++
		if err != nil {
			stats.recordError(errors.ParseError(errors.CodeInvalidFormat, file, line, "", "", err))
			continue
		}

		order, parseErr := p.parseRecord(rr.index, record, file, line)
		if parseErr != nil {
			stats.recordError(parseErr)
			continue
		}

		orders = append(orders, order)
		stats.ParsedRows++
	}

	p.log.WithFields(logger.Fields{
		"file":    file,
		"parsed":  stats.ParsedRows,
		"skipped": stats.SkippedRows,
	}).Debug("Parsed order export")

	return orders, stats, nil
}

func (p *OrderParser) parseRecord(index columnIndex, record []string, file string, line int) (*models.Order, *errors.PipelineError) {
	orderID := index.get(record, "order_id")
	if orderID == "" {
		// A row without its identifier cannot participate in any join;
		// exclude it and report, per the structural-failure policy.
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "order_id", "", nil)
	}

	qty := 0
	if raw := index.get(record, "qty"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidData, file, line, "qty", raw, err)
		}
		qty = n
	}

	shipping, err := parseOptionalDecimal(index.get(record, "shipping"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "shipping", index.get(record, "shipping"), err)
	}
	discount, err := parseOptionalDecimal(index.get(record, "discount"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "discount", index.get(record, "discount"), err)
	}
	grandTotal, err := parseOptionalDecimal(index.get(record, "grand_total"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "grand_total", index.get(record, "grand_total"), err)
	}

	stateTax, err := parseNullableDecimal(index.get(record, "state_tax"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "state_tax", index.get(record, "state_tax"), err)
	}
	countyTax, err := parseNullableDecimal(index.get(record, "county_tax"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "county_tax", index.get(record, "county_tax"), err)
	}
	combinedTax, err := parseNullableDecimal(index.get(record, "combined_tax"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "combined_tax", index.get(record, "combined_tax"), err)
	}

	order := &models.Order{
		OrderID:       orderID,
		CustomerID:    index.get(record, "customer_id"),
		OrderDate:     index.get(record, "order_date"),
		SKU:           index.get(record, "sku"),
		Qty:           qty,
		Subtotal:      index.get(record, "subtotal"),
		Tax:           models.ResolveTax(combinedTax, stateTax, countyTax),
		Shipping:      shipping,
		Discount:      discount,
		GrandTotal:    grandTotal,
		Status:        models.OrderStatus(index.get(record, "status")),
		PaymentMethod: index.get(record, "payment_method"),
		InvoiceNumber: index.get(record, "invoice_number"),
	}

	if err := order.Validate(); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "status", string(order.Status), err)
	}

	return order, nil
}

// parseOptionalDecimal parses a plain numeric field, treating absence as zero.
func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseNullableDecimal parses a numeric field where absence must stay
// distinguishable from zero (the dual-format tax columns).
func parseNullableDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
