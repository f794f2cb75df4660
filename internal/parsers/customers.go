package parsers

import (
	"io"
	"time"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/errors"
	"order-settlement-service/pkg/logger"
)

// CustomerParserConfig configures parsing of the customer export.
type CustomerParserConfig struct {
	*ParseConfig
}

// DefaultCustomerParserConfig returns a configuration matching the standard
// customer export.
func DefaultCustomerParserConfig() *CustomerParserConfig {
	config := DefaultParseConfig()
	config.ColumnAliases = map[string]string{
		"id":        "customer_id",
		"cust_id":   "customer_id",
		"firstname": "first_name",
		"lastname":  "last_name",
		"mail":      "email",
		"region":    "state",
		"signup":    "created_at",
		"tier":      "loyalty_tier",
	}
	return &CustomerParserConfig{ParseConfig: config}
}

// CustomerParser reads the customer table. Unlike the order export, this
// table arrives clean: ISO dates, unique identifiers.
type CustomerParser struct {
	config *CustomerParserConfig
	log    logger.Logger
}

// NewCustomerParser creates a parser for the customer export.
func NewCustomerParser(config *CustomerParserConfig) (*CustomerParser, error) {
	if config == nil {
		config = DefaultCustomerParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "customer_parser", config, err)
	}
	return &CustomerParser{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("customer_parser"),
	}, nil
}

// ParseCustomers reads every customer row from the file.
func (p *CustomerParser) ParseCustomers(file string) ([]*models.Customer, *ParseStats, error) {
	rr, err := openRowReader(file, p.config.ParseConfig, []string{"customer_id"})
	if err != nil {
		return nil, nil, err
	}
	defer rr.close()

	stats := &ParseStats{File: file}
	var customers []*models.Customer

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

		customerID := rr.index.get(record, "customer_id")
		if customerID == "" {
			stats.recordError(errors.ParseError(errors.CodeInvalidData, file, line, "customer_id", "", nil))
			continue
		}

		var createdAt time.Time
		if raw := rr.index.get(record, "created_at"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				stats.recordError(errors.ParseError(errors.CodeInvalidData, file, line, "created_at", raw, err))
				continue
			}
			createdAt = t.UTC()
		}

		customers = append(customers, &models.Customer{
			CustomerID:  customerID,
			FirstName:   rr.index.get(record, "first_name"),
			LastName:    rr.index.get(record, "last_name"),
			Email:       rr.index.get(record, "email"),
			State:       rr.index.get(record, "state"),
			CreatedAt:   createdAt,
			LoyaltyTier: models.LoyaltyTier(rr.index.get(record, "loyalty_tier")),
		})
		stats.ParsedRows++
	}

	p.log.WithFields(logger.Fields{
		"file":   file,
		"parsed": stats.ParsedRows,
	}).Debug("Parsed customer export")

	return customers, stats, nil
}
