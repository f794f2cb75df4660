// Package config builds the pipeline and parser configurations from CLI
// inputs.
package config

import (
	"fmt"

	"order-settlement-service/internal/parsers"
	"order-settlement-service/internal/pipeline"

	"github.com/shopspring/decimal"
)

// CreatePipelineOptions assembles the pipeline options for a settle run.
func CreatePipelineOptions(ordersFile, transactionsFile, customersFile string, amountTolerance float64) pipeline.Options {
	return pipeline.Options{
		OrdersFile:       ordersFile,
		TransactionsFile: transactionsFile,
		CustomersFile:    customersFile,
		AmountTolerance:  decimal.NewFromFloat(amountTolerance),

		OrderParserConfig:       CreateOrderParserConfig(),
		TransactionParserConfig: CreateTransactionParserConfig(),
		CustomerParserConfig:    CreateCustomerParserConfig(),
	}
}

// CreateOrderParserConfig creates the order parser configuration with the
// header aliases seen across commerce export jobs.
func CreateOrderParserConfig() *parsers.OrderParserConfig {
	return parsers.DefaultOrderParserConfig()
}

// CreateTransactionParserConfig creates the settlement parser configuration.
func CreateTransactionParserConfig() *parsers.TransactionParserConfig {
	config := parsers.DefaultTransactionParserConfig()
	for alias, canonical := range map[string]string{
		// Processor export jobs have used these spellings.
		"txn_id":     "transaction_id",
		"trans_id":   "transaction_id",
		"order":      "order_id",
		"settled_at": "settle_date",
		"gross":      "gross_amount",
		"fee":        "processor_fee",
		"net":        "net_amount",
	} {
		config.ColumnAliases[alias] = canonical
	}
	return config
}

// CreateCustomerParserConfig creates the customer table parser configuration.
func CreateCustomerParserConfig() *parsers.CustomerParserConfig {
	return parsers.DefaultCustomerParserConfig()
}

// ValidateConfigs validates the parser configurations together.
func ValidateConfigs(orderConfig *parsers.OrderParserConfig, txConfig *parsers.TransactionParserConfig, customerConfig *parsers.CustomerParserConfig) error {
	if err := orderConfig.Validate(); err != nil {
		return fmt.Errorf("invalid order parser config: %w", err)
	}
	if err := txConfig.Validate(); err != nil {
		return fmt.Errorf("invalid transaction parser config: %w", err)
	}
	if customerConfig != nil {
		if err := customerConfig.Validate(); err != nil {
			return fmt.Errorf("invalid customer parser config: %w", err)
		}
	}
	return nil
}
