package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFileExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "orders.csv")
	if err := os.WriteFile(existing, []byte("order_id\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", existing, false},
		{"missing file", filepath.Join(dir, "missing.csv"), true},
		{"directory instead of file", dir, true},
		{"empty path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.path, "test file")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFileExists(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestNeedsFileOutput(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		want    bool
	}{
		{"console only", []string{"console"}, false},
		{"csv", []string{"csv"}, true},
		{"mixed", []string{"console", "xlsx"}, true},
		{"none", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsFileOutput(tt.formats); got != tt.want {
				t.Errorf("needsFileOutput(%v) = %v, want %v", tt.formats, got, tt.want)
			}
		})
	}
}
