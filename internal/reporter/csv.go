package reporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"order-settlement-service/internal/pipeline"
	"order-settlement-service/internal/settlement"
	"order-settlement-service/pkg/errors"
)

// CSVReporter writes the settlement detail and the issue log as CSV files
// suitable for the downstream intake job.
type CSVReporter struct {
	dir string
}

// NewCSVReporter creates a CSV reporter writing into dir.
func NewCSVReporter(dir string) *CSVReporter {
	return &CSVReporter{dir: dir}
}

var settlementCSVHeader = []string{
	"order_id", "order_timestamp", "invoice_number",
	"customer_id", "customer_name", "customer_email", "customer_state", "loyalty_tier",
	"sku", "incentive_program", "qty",
	"subtotal", "tax_amount", "tax_source", "shipping", "discount", "grand_total",
	"incentive_rate", "incentive_amount",
	"transaction_id", "settlement_date", "gross_amount", "processor_fee", "net_amount",
	"status_code", "status_label", "payment_method",
}

var issueCSVHeader = []string{
	"issue_type", "order_id", "transaction_id", "detail", "action_required",
}

// Write produces settlement_report.csv and issues_log.csv.
func (r *CSVReporter) Write(result *pipeline.Result) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errors.FileError(errors.CodeDirectoryError, r.dir, err)
	}

	detailPath := filepath.Join(r.dir, "settlement_report.csv")
	if err := r.writeDetail(detailPath, result.Settlement.Records); err != nil {
		return err
	}

	issuesPath := filepath.Join(r.dir, "issues_log.csv")
	return r.writeIssues(issuesPath, result)
}

func (r *CSVReporter) writeDetail(path string, records []*settlement.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(settlementCSVHeader); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}

	for _, rec := range records {
		row := []string{
			rec.OrderID, rec.OrderTimestamp, rec.InvoiceNumber,
			rec.CustomerID, rec.CustomerName, rec.CustomerEmail, rec.CustomerState, rec.LoyaltyTier,
			rec.SKU, rec.IncentiveProgram, strconv.Itoa(rec.Qty),
			rec.Subtotal.StringFixed(2), rec.TaxAmount.StringFixed(2), string(rec.TaxSource),
			rec.Shipping.StringFixed(2), rec.Discount.StringFixed(2), rec.GrandTotal.StringFixed(2),
			rec.IncentiveRate.String(), rec.IncentiveAmount.StringFixed(2),
			rec.TransactionID, rec.SettlementDate,
			rec.GrossAmount.StringFixed(2), rec.ProcessorFee.StringFixed(2), rec.NetAmount.StringFixed(2),
			rec.StatusCode, rec.StatusLabel, rec.PaymentMethod,
		}
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

func (r *CSVReporter) writeIssues(path string, result *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(issueCSVHeader); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}

	for _, issue := range result.Issues {
		row := []string{
			string(issue.Type), issue.OrderID, issue.TransactionID,
			issue.Detail, issue.ActionRequired,
		}
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
