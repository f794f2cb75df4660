// Package reporter renders a completed settlement run for its consumers: a
// console summary for the operator, CSV and JSON exports for the downstream
// intake job, and a multi-tab workbook for the finance team.
package reporter

import (
	"fmt"
	"io"
	"strings"

	"order-settlement-service/internal/models"
	"order-settlement-service/internal/pipeline"
)

// Format selects an output rendering.
type Format string

const (
	FormatConsole Format = "console"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatConsole:
		return FormatConsole, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// issueOrder fixes the display order of issue types in summaries: ingestion
// defects first, then matching defects, then amount defects.
var issueOrder = []models.IssueType{
	models.IssueDuplicateOrder,
	models.IssueMissingInvoice,
	models.IssueTaxFormat,
	models.IssueUnmappedProduct,
	models.IssueOrphanTransaction,
	models.IssueUnsettledOrder,
	models.IssueAmountMismatch,
	models.IssueTotalMismatch,
}

// ConsoleReporter writes the human-readable run summary.
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter creates a console reporter writing to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

// Write renders the run summary.
func (r *ConsoleReporter) Write(result *pipeline.Result) error {
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(r.w, format+"\n", args...)
	}

	p("Settlement Run %s", result.RunID)
	p(strings.Repeat("=", 60))
	p("")

	p("Ingestion")
	p("  %s", result.OrderStats)
	p("  %s", result.TransactionStats)
	if result.CustomerStats != nil {
		p("  %s", result.CustomerStats)
	}
	p("")

	p("Cleaning")
	p("  Duplicate rows removed:   %d", result.DuplicatesRemoved)
	p("  SKUs normalized:          %d", result.CleanStats.SKUsChanged)
	p("  Currency parse failures:  %d", result.CleanStats.CurrencyParseFailures)
	p("  Date parse failures:      %d", result.CleanStats.DateParseFailures)
	p("")

	parity := result.Reconciliation.Parity
	p("Reconciliation")
	p("  Eligible orders:   %6d   revenue $%s", parity.EligibleOrderCount, parity.EligibleRevenue.StringFixed(2))
	p("  Settled txns:      %6d   gross   $%s", parity.SettledTxCount, parity.SettledGross.StringFixed(2))
	p("")

	ds := result.Settlement
	p("Settlement")
	p("  Records:          %d", len(ds.Records))
	p("  Total gross:      $%s", ds.TotalGross.StringFixed(2))
	p("  Processor fees:   $%s", ds.TotalFees.StringFixed(2))
	p("  Total net:        $%s", ds.TotalNet.StringFixed(2))
	p("  Total incentive:  $%s", ds.TotalIncentive.StringFixed(2))
	p("")

	if len(ds.ByProgram) > 0 {
		p("By program")
		for _, s := range ds.ByProgram {
			p("  %-22s %4d orders   incentive $%s", s.Program, s.OrderCount, s.IncentiveAmount.StringFixed(2))
		}
		p("")
	}

	counts := result.IssueCounts()
	p("Issues (%d)", len(result.Issues))
	for _, issueType := range issueOrder {
		if n := counts[issueType]; n > 0 {
			p("  %-22s %d", issueType, n)
		}
	}
	p("")
	p("Completed in %s", result.Duration())

	return nil
}
