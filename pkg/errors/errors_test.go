package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewAndError(t *testing.T) {
	err := New(CategoryParse, CodeInvalidData, "bad row")
	if err.Category != CategoryParse || err.Code != CodeInvalidData {
		t.Errorf("category/code = %s/%s", err.Category, err.Code)
	}
	if err.Error() != "bad row" {
		t.Errorf("Error() = %q", err.Error())
	}

	err.WithSuggestion("fix the row")
	if !strings.Contains(err.Error(), "suggestion: fix the row") {
		t.Errorf("Error() = %q, want suggestion included", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Wrap(cause, CategoryFile, CodeFileNotFound, "file gone")
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return the cause")
	}

	if Wrap(nil, CategoryFile, CodeFileNotFound, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryPipeline, 5},
		{CategoryInternal, 5},
		{ErrorCategory("other"), 1},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "x")
		if got := err.GetExitCode(); got != tt.want {
			t.Errorf("GetExitCode(%s) = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestFileError(t *testing.T) {
	err := FileError(CodeFileNotFound, "/tmp/missing.csv", nil)
	if err.Category != CategoryFile {
		t.Errorf("category = %s, want file", err.Category)
	}
	if !strings.Contains(err.Message, "/tmp/missing.csv") {
		t.Errorf("message = %q, want path included", err.Message)
	}
	if err.Context["file_path"] != "/tmp/missing.csv" {
		t.Errorf("context = %v", err.Context)
	}
	if err.Suggestion == "" {
		t.Error("file errors should carry a suggestion")
	}
}

func TestParseErrorContext(t *testing.T) {
	err := ParseError(CodeInvalidData, "orders.csv", 12, "qty", "abc", nil)
	if err.Context["line"] != 12 || err.Context["column"] != "qty" || err.Context["value"] != "abc" {
		t.Errorf("context = %v", err.Context)
	}
	if err.GetExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", err.GetExitCode())
	}
}

func TestAsPipelineError(t *testing.T) {
	inner := ParseError(CodeInvalidFormat, "f.csv", 1, "", "", nil)
	wrapped := fmt.Errorf("outer: %w", inner)

	got, ok := AsPipelineError(wrapped)
	if !ok {
		t.Fatal("AsPipelineError failed on wrapped error")
	}
	if got.Code != CodeInvalidFormat {
		t.Errorf("code = %s", got.Code)
	}

	if _, ok := AsPipelineError(fmt.Errorf("plain")); ok {
		t.Error("AsPipelineError matched a plain error")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	already := New(CategoryParse, CodeInvalidData, "x")
	if got := WrapIfNeeded(already, CategoryInternal, CodeUnexpectedError, "y"); got != already {
		t.Error("WrapIfNeeded re-wrapped a PipelineError")
	}

	plain := fmt.Errorf("plain")
	got := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "wrapped")
	if got.Category != CategoryInternal || got.Cause != plain {
		t.Errorf("got = %+v", got)
	}

	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("WrapIfNeeded(nil) should return nil")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*PipelineError{
		ParseError(CodeInvalidData, "f.csv", 1, "qty", "a", nil),
		ParseError(CodeInvalidData, "f.csv", 2, "qty", "b", nil),
		FileError(CodeFileNotFound, "g.csv", nil),
	}

	summary := NewErrorSummary(errs)
	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.ByCategory[CategoryParse] != 2 || summary.ByCategory[CategoryFile] != 1 {
		t.Errorf("ByCategory = %v", summary.ByCategory)
	}
	if !summary.HasCategory(CategoryParse) || summary.HasCategory(CategoryInternal) {
		t.Error("HasCategory misreported")
	}
	if summary.GetExitCode() != 3 {
		t.Errorf("GetExitCode = %d, want 3 (highest across errors)", summary.GetExitCode())
	}

	empty := NewErrorSummary(nil)
	if empty.GetExitCode() != 0 {
		t.Errorf("empty summary exit code = %d, want 0", empty.GetExitCode())
	}
	if empty.Error() != "no errors" {
		t.Errorf("empty summary Error() = %q", empty.Error())
	}
}
