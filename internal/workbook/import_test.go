package workbook

import (
	"path/filepath"
	"testing"
)

func TestAppendCreatesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.xlsx")

	first, err := Append(path, "Greetings", []Pair{
		{Source: "안녕하세요", Target: "Hello"},
		{Source: "감사합니다", Target: "Thank you"},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if first != FirstPlayableRow {
		t.Errorf("first row = %d, want %d", first, FirstPlayableRow)
	}

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sections := wb.Sections(); len(sections) != 1 || sections[0] != "Greetings" {
		t.Errorf("Sections() = %v", sections)
	}
	row, err := wb.Row("Greetings", 3)
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	if row.Source != "감사합니다" || row.Target != "Thank you" {
		t.Errorf("Row(3) = %+v", row)
	}
}

func TestAppendExistingSection(t *testing.T) {
	path := greetingsWorkbook(t)

	first, err := Append(path, "Greetings", []Pair{{Source: "잘 자요", Target: "Good night"}})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if first != 5 {
		t.Errorf("first row = %d, want 5", first)
	}

	if _, err := Append(path, "Travel", []Pair{{Source: "공항", Target: "Airport"}}); err != nil {
		t.Fatalf("Append() new section error = %v", err)
	}

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	maxRow, _ := wb.MaxRow("Greetings")
	if maxRow != 5 {
		t.Errorf("MaxRow(Greetings) = %d, want 5", maxRow)
	}
	row, _ := wb.Row("Travel", 2)
	if row.Target != "Airport" {
		t.Errorf("Row(Travel, 2) = %+v", row)
	}
}

func TestAppendRequiresSection(t *testing.T) {
	if _, err := Append(filepath.Join(t.TempDir(), "x.xlsx"), "", nil); err == nil {
		t.Error("Append() expected error for empty section")
	}
}
