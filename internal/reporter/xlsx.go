package reporter

import (
	"fmt"
	"os"
	"path/filepath"

	"order-settlement-service/internal/pipeline"
	"order-settlement-service/pkg/errors"
	"order-settlement-service/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the finance workbook.
const (
	sheetDetail  = "Settlement Detail"
	sheetProgram = "Program Summary"
	sheetMonthly = "Monthly Summary"
	sheetIssues  = "Issues Log"
)

// XLSXReporter writes the finance workbook: the settlement detail, the
// program and monthly rollups and the issue log, one tab each.
type XLSXReporter struct {
	dir string
	log logger.Logger
}

// NewXLSXReporter creates a workbook reporter writing into dir.
func NewXLSXReporter(dir string) *XLSXReporter {
	return &XLSXReporter{
		dir: dir,
		log: logger.GetGlobalLogger().WithComponent("xlsx_reporter"),
	}
}

// Write produces settlement_report.xlsx.
func (r *XLSXReporter) Write(result *pipeline.Result) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errors.FileError(errors.CodeDirectoryError, r.dir, err)
	}
	path := filepath.Join(r.dir, "settlement_report.xlsx")

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"305496"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryPipeline, errors.CodeReportFailed, "failed to create workbook style")
	}

	if err := r.writeDetailSheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := r.writeProgramSheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := r.writeMonthlySheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := r.writeIssuesSheet(f, result, headerStyle); err != nil {
		return err
	}

	// The default sheet was renamed into the detail tab; make it active.
	index, err := f.GetSheetIndex(sheetDetail)
	if err == nil {
		f.SetActiveSheet(index)
	}

	if err := f.SaveAs(path); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}

	r.log.WithField("path", path).Info("Wrote settlement workbook")
	return nil
}

// newSheet creates (or renames the default sheet into) a named tab with a
// styled, frozen header row.
func newSheet(f *excelize.File, name string, header []string, style int) error {
	if name == sheetDetail {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, title); err != nil {
			return err
		}
	}

	endCell, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", endCell, style); err != nil {
		return err
	}

	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func (r *XLSXReporter) writeDetailSheet(f *excelize.File, result *pipeline.Result, style int) error {
	header := []string{
		"Order ID", "Order Timestamp", "Invoice", "Customer ID", "Customer",
		"Email", "State", "Loyalty Tier", "SKU", "Program", "Qty",
		"Subtotal", "Tax", "Tax Source", "Shipping", "Discount", "Grand Total",
		"Incentive Rate", "Incentive", "Transaction ID", "Settlement Date",
		"Gross", "Fee", "Net", "Status",
	}
	if err := newSheet(f, sheetDetail, header, style); err != nil {
		return wrapSheetErr(sheetDetail, err)
	}
	if err := f.SetColWidth(sheetDetail, "A", "A", 16); err != nil {
		return wrapSheetErr(sheetDetail, err)
	}
	if err := f.SetColWidth(sheetDetail, "B", "Y", 14); err != nil {
		return wrapSheetErr(sheetDetail, err)
	}

	for i, rec := range result.Settlement.Records {
		row := []interface{}{
			rec.OrderID, rec.OrderTimestamp, rec.InvoiceNumber, rec.CustomerID,
			rec.CustomerName, rec.CustomerEmail, rec.CustomerState, rec.LoyaltyTier,
			rec.SKU, rec.IncentiveProgram, rec.Qty,
			toFloat(rec.Subtotal), toFloat(rec.TaxAmount), string(rec.TaxSource),
			toFloat(rec.Shipping), toFloat(rec.Discount), toFloat(rec.GrandTotal),
			toFloat(rec.IncentiveRate), toFloat(rec.IncentiveAmount),
			rec.TransactionID, rec.SettlementDate,
			toFloat(rec.GrossAmount), toFloat(rec.ProcessorFee), toFloat(rec.NetAmount),
			rec.StatusLabel,
		}
		if err := setRow(f, sheetDetail, i+2, row); err != nil {
			return wrapSheetErr(sheetDetail, err)
		}
	}
	return nil
}

func (r *XLSXReporter) writeProgramSheet(f *excelize.File, result *pipeline.Result, style int) error {
	header := []string{"Program", "Orders", "Qty", "Subtotal", "Grand Total", "Incentive"}
	if err := newSheet(f, sheetProgram, header, style); err != nil {
		return wrapSheetErr(sheetProgram, err)
	}
	if err := f.SetColWidth(sheetProgram, "A", "A", 24); err != nil {
		return wrapSheetErr(sheetProgram, err)
	}

	for i, s := range result.Settlement.ByProgram {
		row := []interface{}{
			s.Program, s.OrderCount, s.TotalQty,
			toFloat(s.Subtotal), toFloat(s.GrandTotal), toFloat(s.IncentiveAmount),
		}
		if err := setRow(f, sheetProgram, i+2, row); err != nil {
			return wrapSheetErr(sheetProgram, err)
		}
	}
	return nil
}

func (r *XLSXReporter) writeMonthlySheet(f *excelize.File, result *pipeline.Result, style int) error {
	header := []string{"Month", "Orders", "Gross", "Fees", "Net", "Incentive"}
	if err := newSheet(f, sheetMonthly, header, style); err != nil {
		return wrapSheetErr(sheetMonthly, err)
	}

	for i, s := range result.Settlement.ByMonth {
		row := []interface{}{
			s.Month, s.OrderCount,
			toFloat(s.GrossAmount), toFloat(s.ProcessorFees),
			toFloat(s.NetAmount), toFloat(s.IncentiveAmount),
		}
		if err := setRow(f, sheetMonthly, i+2, row); err != nil {
			return wrapSheetErr(sheetMonthly, err)
		}
	}
	return nil
}

func (r *XLSXReporter) writeIssuesSheet(f *excelize.File, result *pipeline.Result, style int) error {
	header := []string{"Issue Type", "Order ID", "Transaction ID", "Detail", "Action Required"}
	if err := newSheet(f, sheetIssues, header, style); err != nil {
		return wrapSheetErr(sheetIssues, err)
	}
	if err := f.SetColWidth(sheetIssues, "D", "E", 50); err != nil {
		return wrapSheetErr(sheetIssues, err)
	}

	for i, issue := range result.Issues {
		row := []interface{}{
			string(issue.Type), issue.OrderID, issue.TransactionID,
			issue.Detail, issue.ActionRequired,
		}
		if err := setRow(f, sheetIssues, i+2, row); err != nil {
			return wrapSheetErr(sheetIssues, err)
		}
	}
	return nil
}

func wrapSheetErr(sheet string, err error) error {
	return errors.Wrap(err, errors.CategoryPipeline, errors.CodeReportFailed,
		fmt.Sprintf("failed to write workbook sheet '%s'", sheet))
}

// toFloat converts a decimal amount for cell storage. Workbook cells hold
// floats natively; precision loss at two decimal places is not a concern.
func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
