// Package pipeline orchestrates a full settlement run: ingestion of the three
// raw exports, validation, cleaning, incentive resolution, reconciliation and
// final assembly, with one consolidated issue log for the finance team.
package pipeline

import (
	"time"

	"order-settlement-service/internal/cleaner"
	"order-settlement-service/internal/incentive"
	"order-settlement-service/internal/models"
	"order-settlement-service/internal/parsers"
	"order-settlement-service/internal/reconciler"
	"order-settlement-service/internal/settlement"
	"order-settlement-service/internal/validator"
	"order-settlement-service/pkg/errors"
	"order-settlement-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options configures a pipeline run.
type Options struct {
	OrdersFile       string
	TransactionsFile string
	CustomersFile    string

	// AmountTolerance is the absolute tolerance for amount comparisons.
	// Zero selects the default.
	AmountTolerance decimal.Decimal

	OrderParserConfig       *parsers.OrderParserConfig
	TransactionParserConfig *parsers.TransactionParserConfig
	CustomerParserConfig    *parsers.CustomerParserConfig
}

// Result is everything a run produced: the immutable raw snapshots, the
// derived views of every stage, and the consolidated issue log.
type Result struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Orders       []*models.Order       `json:"-"`
	Transactions []*models.Transaction `json:"-"`
	Customers    []*models.Customer    `json:"-"`

	OrderStats       *parsers.ParseStats `json:"order_stats"`
	TransactionStats *parsers.ParseStats `json:"transaction_stats"`
	CustomerStats    *parsers.ParseStats `json:"customer_stats"`

	Validation        *validator.Report `json:"validation"`
	DuplicatesRemoved int               `json:"duplicates_removed"`

	CleanOrders []*models.CleanOrder `json:"-"`
	CleanStats  *cleaner.Stats       `json:"clean_stats"`

	IncentiveStats *incentive.Stats `json:"incentive_stats"`

	Reconciliation *reconciler.Result  `json:"reconciliation"`
	Settlement     *settlement.Dataset `json:"settlement"`

	// Issues is the consolidated log: validation findings first, then
	// incentive resolution findings, then reconciliation findings. Each
	// defect appears exactly once.
	Issues []models.Issue `json:"issues"`
}

// IssueCounts tallies the consolidated log by kind.
func (r *Result) IssueCounts() map[models.IssueType]int {
	return models.CountIssuesByType(r.Issues)
}

// Duration returns the wall-clock duration of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline wires the stages together.
type Pipeline struct {
	opts Options
	log  logger.Logger
}

// New creates a Pipeline for the given options.
func New(opts Options) *Pipeline {
	return &Pipeline{
		opts: opts,
		log:  logger.GetGlobalLogger().WithComponent("pipeline"),
	}
}

// Run executes the full pipeline. Data-quality defects never fail the run;
// they accumulate in the issue log. An error here means the run itself could
// not proceed: unreadable input, broken configuration, or an empty order
// snapshot.
func (p *Pipeline) Run() (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	log := p.log.WithField("run_id", result.RunID)
	log.WithFields(logger.Fields{
		"orders_file":       p.opts.OrdersFile,
		"transactions_file": p.opts.TransactionsFile,
		"customers_file":    p.opts.CustomersFile,
	}).Info("Starting settlement run")

	if err := p.ingest(result); err != nil {
		return nil, err
	}
	if len(result.Orders) == 0 {
		return nil, errors.PipelineStageError(errors.CodeEmptySnapshot, "validation", nil).
			WithContext("orders_file", p.opts.OrdersFile)
	}

	// Stage 1: validation against the raw snapshot.
	result.Validation = validator.New().Validate(result.Orders, result.Transactions)
	result.Issues = append(result.Issues, result.Validation.Issues...)

	// Stage 2: deduplication, first occurrence wins.
	unique, removed := cleaner.Deduplicate(result.Orders)
	result.DuplicatesRemoved = removed

	// Stage 3: normalization into the canonical form.
	result.CleanOrders, result.CleanStats = cleaner.NewNormalizer().Normalize(unique)

	// Stage 4: incentive program resolution.
	var incentiveIssues []models.Issue
	incentiveIssues, result.IncentiveStats = incentive.NewResolver().Apply(result.CleanOrders)
	result.Issues = append(result.Issues, incentiveIssues...)

	// Stage 5: reconciliation against the processor file.
	result.Reconciliation = reconciler.New(p.opts.AmountTolerance).
		Reconcile(result.CleanOrders, result.Transactions)
	result.Issues = append(result.Issues, result.Reconciliation.Issues...)

	// Stage 6: settlement assembly.
	result.Settlement = settlement.New().
		Assemble(result.CleanOrders, result.Transactions, result.Customers)

	result.FinishedAt = time.Now().UTC()
	log.WithFields(logger.Fields{
		"settlement_records": len(result.Settlement.Records),
		"issues":             len(result.Issues),
		"duration":           result.Duration().String(),
	}).Info("Settlement run completed")

	return result, nil
}

// ingest parses the three exports. Orders and transactions are required; the
// customer file is optional and its absence only blanks the customer columns
// of the settlement output.
func (p *Pipeline) ingest(result *Result) error {
	orderParser, err := parsers.NewOrderParser(p.opts.OrderParserConfig)
	if err != nil {
		return err
	}
	result.Orders, result.OrderStats, err = orderParser.ParseOrders(p.opts.OrdersFile)
	if err != nil {
		return err
	}

	txParser, err := parsers.NewTransactionParser(p.opts.TransactionParserConfig)
	if err != nil {
		return err
	}
	result.Transactions, result.TransactionStats, err = txParser.ParseTransactions(p.opts.TransactionsFile)
	if err != nil {
		return err
	}

	if p.opts.CustomersFile != "" {
		customerParser, err := parsers.NewCustomerParser(p.opts.CustomerParserConfig)
		if err != nil {
			return err
		}
		result.Customers, result.CustomerStats, err = customerParser.ParseCustomers(p.opts.CustomersFile)
		if err != nil {
			return err
		}
	}

	return nil
}
