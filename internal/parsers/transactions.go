package parsers

import (
	"io"

	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/errors"
	"order-settlement-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// TransactionParserConfig configures parsing of the processor settlement
// export.
type TransactionParserConfig struct {
	*ParseConfig
}

// DefaultTransactionParserConfig returns a configuration matching the
// standard processor export.
func DefaultTransactionParserConfig() *TransactionParserConfig {
	config := DefaultParseConfig()
	config.ColumnAliases = map[string]string{
		"txn_id":          "transaction_id",
		"trx_id":          "transaction_id",
		"id":              "transaction_id",
		"settlement_date": "settle_date",
		"gross":           "gross_amount",
		"amount":          "gross_amount",
		"fee":             "processor_fee",
		"processing_fee":  "processor_fee",
		"net":             "net_amount",
		"net_settled":     "net_amount",
		"authorization":   "auth_code",
	}
	return &TransactionParserConfig{ParseConfig: config}
}

// TransactionParser reads processor settlement rows. The processor dataset
// is independent of the order export; order identifiers it references are
// not guaranteed to exist.
type TransactionParser struct {
	config *TransactionParserConfig
	log    logger.Logger
}

// NewTransactionParser creates a parser for the settlement export.
func NewTransactionParser(config *TransactionParserConfig) (*TransactionParser, error) {
	if config == nil {
		config = DefaultTransactionParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "transaction_parser", config, err)
	}
	return &TransactionParser{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("transaction_parser"),
	}, nil
}

// ParseTransactions reads every settlement row from the file.
func (p *TransactionParser) ParseTransactions(file string) ([]*models.Transaction, *ParseStats, error) {
	rr, err := openRowReader(file, p.config.ParseConfig, []string{"transaction_id", "order_id", "gross_amount", "status"})
	if err != nil {
		return nil, nil, err
	}
	defer rr.close()

	stats := &ParseStats{File: file}
	var transactions []*models.Transaction

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

		tx, parseErr := p.parseRecord(rr.index, record, file, line)
		if parseErr != nil {
			stats.recordError(parseErr)
			continue
		}

		transactions = append(transactions, tx)
		stats.ParsedRows++
	}

	p.log.WithFields(logger.Fields{
		"file":   file,
		"parsed": stats.ParsedRows,
	}).Debug("Parsed settlement export")

	return transactions, stats, nil
}

func (p *TransactionParser) parseRecord(index columnIndex, record []string, file string, line int) (*models.Transaction, *errors.PipelineError) {
	txID := index.get(record, "transaction_id")
	if txID == "" {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "transaction_id", "", nil)
	}

	parseAmount := func(column string) (decimal.Decimal, *errors.PipelineError) {
		raw := index.get(record, column)
		if raw == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, errors.ParseError(errors.CodeInvalidData, file, line, column, raw, err)
		}
		return d, nil
	}

	gross, perr := parseAmount("gross_amount")
	if perr != nil {
		return nil, perr
	}
	fee, perr := parseAmount("processor_fee")
	if perr != nil {
		return nil, perr
	}
	net, perr := parseAmount("net_amount")
	if perr != nil {
		return nil, perr
	}

	settleDate, err := models.ParseSettleDate(index.get(record, "settle_date"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "settle_date", index.get(record, "settle_date"), err)
	}

	tx := &models.Transaction{
		TransactionID: txID,
		OrderID:       index.get(record, "order_id"),
		SettleDate:    settleDate,
		GrossAmount:   gross,
		ProcessorFee:  fee,
		NetAmount:     net,
		Status:        models.TransactionStatus(index.get(record, "status")),
		AuthCode:      index.get(record, "auth_code"),
	}

	if err := tx.Validate(); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, file, line, "status", string(tx.Status), err)
	}

	return tx, nil
}
