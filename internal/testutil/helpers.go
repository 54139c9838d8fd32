package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// Sheet is one section written by CreateWorkbook. Rows exclude the header;
// each row is {source, target}.
type Sheet struct {
	Name string
	Rows [][2]string
}

// CreateWorkbook writes an xlsx file in the player's layout: row 1 header,
// column A running number, column B source text, column C target text.
func CreateWorkbook(t *testing.T, path string, sheets ...Sheet) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("Failed to rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("Failed to create sheet %s: %v", sheet.Name, err)
		}

		header := []interface{}{"No", "Korean", "English"}
		if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
			t.Fatalf("Failed to write header: %v", err)
		}

		for j, row := range sheet.Rows {
			cellName, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				t.Fatalf("Failed to build cell name: %v", err)
			}
			values := []interface{}{j + 1, row[0], row[1]}
			if err := f.SetSheetRow(sheet.Name, cellName, &values); err != nil {
				t.Fatalf("Failed to write row: %v", err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create workbook directory: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q", path, substring)
	}
}

// AssertDirEmpty checks that dir exists and holds no entries
func AssertDirEmpty(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read directory %s: %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected %s to be empty, found %v", dir, names)
	}
}
