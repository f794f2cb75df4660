// Package parsers reads the three raw exports the pipeline consumes: the
// commerce customer and order tables and the payment-processor settlement
// file.
//
// The parsers are configurable for header naming differences between export
// jobs and guarantee forward progress: a malformed row is recorded in the
// parse stats and skipped, it never aborts the batch. Only structural
// problems (unreadable file, missing required columns) surface as errors.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"order-settlement-service/pkg/errors"
	"order-settlement-service/pkg/logger"
)

// ParseConfig holds the CSV-level options shared by all three parsers.
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool

	// ColumnAliases maps alternative header spellings onto canonical
	// column names, e.g. "txn_id" -> "transaction_id".
	ColumnAliases map[string]string
}

// DefaultParseConfig returns a configuration matching the standard exports.
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// Validate checks the parse configuration.
func (c *ParseConfig) Validate() error {
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	return nil
}

// ParseStats summarizes a single file ingestion. Per-row failures are
// collected here so the caller can audit them without losing the batch.
type ParseStats struct {
	File        string                  `json:"file"`
	TotalRows   int                     `json:"total_rows"`
	ParsedRows  int                     `json:"parsed_rows"`
	SkippedRows int                     `json:"skipped_rows"`
	Errors      []*errors.PipelineError `json:"errors,omitempty"`
}

func (s *ParseStats) recordError(err *errors.PipelineError) {
	s.SkippedRows++
	s.Errors = append(s.Errors, err)
}

// String returns a short human-readable summary.
func (s *ParseStats) String() string {
	return fmt.Sprintf("%s: %d/%d rows parsed (%d skipped)",
		s.File, s.ParsedRows, s.TotalRows, s.SkippedRows)
}

// columnIndex resolves canonical column names to field positions using the
// header row and any configured aliases.
type columnIndex map[string]int

func buildColumnIndex(header []string, config *ParseConfig) columnIndex {
	index := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := config.ColumnAliases[name]; ok {
			name = canonical
		}
		index[name] = i
	}
	return index
}

// require verifies the presence of every named column.
func (ci columnIndex) require(file string, columns ...string) *errors.PipelineError {
	for _, column := range columns {
		if _, ok := ci[column]; !ok {
			return errors.ParseError(errors.CodeMissingColumn, file, 1, column, "", nil)
		}
	}
	return nil
}

// get returns the trimmed value for a column, or "" when the column or value
// is absent. Absent values are legitimate in the raw exports (nullable tax
// fields, missing invoice numbers), so this is not an error path.
func (ci columnIndex) get(record []string, column string) string {
	i, ok := ci[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// rowReader walks a CSV file row by row, handling header mapping, empty-row
// skipping and positional bookkeeping for error reporting.
type rowReader struct {
	file    string
	config  *ParseConfig
	reader  *csv.Reader
	closer  io.Closer
	index   columnIndex
	line    int
	log     logger.Logger
}

func openRowReader(file string, config *ParseConfig, requiredColumns []string) (*rowReader, error) {
	if config == nil {
		config = DefaultParseConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser", config, err)
	}

	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, file, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, file, err)
		}
		return nil, errors.FileError(errors.CodeDirectoryError, file, err)
	}

	reader := csv.NewReader(f)
	reader.Comma = config.Delimiter
	reader.TrimLeadingSpace = config.TrimLeadingSpace
	reader.FieldsPerRecord = -1 // ragged rows are handled per-field

	rr := &rowReader{
		file:   file,
		config: config,
		reader: reader,
		closer: f,
		log:    logger.GetGlobalLogger().WithComponent("parsers"),
	}

	if config.HasHeader {
		header, err := reader.Read()
		if err != nil {
			f.Close()
			return nil, errors.ParseError(errors.CodeInvalidFormat, file, 1, "", "", err)
		}
		rr.line = 1
		rr.index = buildColumnIndex(header, config)
		if missingErr := rr.index.require(file, requiredColumns...); missingErr != nil {
			f.Close()
			return nil, missingErr
		}
	}

	return rr, nil
}

// next returns the next data row, or io.EOF when exhausted.
func (rr *rowReader) next() ([]string, int, error) {
	for {
		record, err := rr.reader.Read()
		if err == io.EOF {
			return nil, rr.line, io.EOF
		}
		rr.line++
		if err != nil {
			return nil, rr.line, err
		}
		if rr.config.SkipEmptyRows && isEmptyRow(record) {
			continue
		}
		return record, rr.line, nil
	}
}

func (rr *rowReader) close() {
	rr.closer.Close()
}

func isEmptyRow(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
