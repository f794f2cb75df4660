package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"order-settlement-service/internal/models"
	"order-settlement-service/internal/pipeline"
	"order-settlement-service/internal/settlement"
	"order-settlement-service/pkg/errors"
)

// jsonPayload is the machine-readable run export consumed by the downstream
// intake job. The envelope identifies the run and the systems involved; the
// body carries the settlement dataset and the consolidated issue log.
type jsonPayload struct {
	RunID           string `json:"run_id"`
	ExportTimestamp string `json:"export_timestamp"`
	SourceSystem    string `json:"source_system"`
	TargetSystem    string `json:"target_system"`
	RecordCount     int    `json:"record_count"`

	Summary jsonSummary `json:"summary"`

	Records   []*settlement.Record        `json:"records"`
	ByProgram []settlement.ProgramSummary `json:"by_program"`
	ByMonth   []settlement.MonthSummary   `json:"by_month"`
	Issues    []models.Issue              `json:"issues"`
}

type jsonSummary struct {
	TotalGross     string                   `json:"total_gross"`
	TotalFees      string                   `json:"total_fees"`
	TotalNet       string                   `json:"total_net"`
	TotalIncentive string                   `json:"total_incentive"`
	IssueCounts    map[models.IssueType]int `json:"issue_counts"`
}

// JSONReporter writes the run as a single JSON document.
type JSONReporter struct {
	dir string
}

// NewJSONReporter creates a JSON reporter writing into dir.
func NewJSONReporter(dir string) *JSONReporter {
	return &JSONReporter{dir: dir}
}

// Write produces settlement_report.json.
func (r *JSONReporter) Write(result *pipeline.Result) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errors.FileError(errors.CodeDirectoryError, r.dir, err)
	}

	ds := result.Settlement
	payload := jsonPayload{
		RunID:           result.RunID,
		ExportTimestamp: models.ISOTimestamp(time.Now()),
		SourceSystem:    "commerce",
		TargetSystem:    "finance_erp",
		RecordCount:     len(ds.Records),
		Summary: jsonSummary{
			TotalGross:     ds.TotalGross.StringFixed(2),
			TotalFees:      ds.TotalFees.StringFixed(2),
			TotalNet:       ds.TotalNet.StringFixed(2),
			TotalIncentive: ds.TotalIncentive.StringFixed(2),
			IssueCounts:    result.IssueCounts(),
		},
		Records:   ds.Records,
		ByProgram: ds.ByProgram,
		ByMonth:   ds.ByMonth,
		Issues:    result.Issues,
	}
	if payload.Records == nil {
		payload.Records = []*settlement.Record{}
	}
	if payload.Issues == nil {
		payload.Issues = []models.Issue{}
	}

	path := filepath.Join(r.dir, "settlement_report.json")
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return nil
}
