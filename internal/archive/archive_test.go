package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	workbook := filepath.Join(tmpDir, "korengpro.xlsx")
	if err := os.WriteFile(workbook, []byte("old content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	archived, err := ArchiveFile(workbook)
	if err != nil {
		t.Fatalf("ArchiveFile failed: %v", err)
	}

	if _, err := os.Stat(workbook); !os.IsNotExist(err) {
		t.Error("Original file still exists after archiving")
	}

	archiveDir := filepath.Join(tmpDir, "archive")
	if filepath.Dir(archived) != archiveDir {
		t.Errorf("Archived into %s, want %s", filepath.Dir(archived), archiveDir)
	}

	name := filepath.Base(archived)
	if !strings.HasPrefix(name, "korengpro-") {
		t.Errorf("Archived name doesn't start with 'korengpro-': %s", name)
	}
	if filepath.Ext(name) != ".xlsx" {
		t.Errorf("Archived name lost its extension: %s", name)
	}

	content, err := os.ReadFile(archived)
	if err != nil {
		t.Fatalf("Failed to read archived file: %v", err)
	}
	if string(content) != "old content" {
		t.Errorf("Archived content = %q, want %q", content, "old content")
	}
}

func TestArchiveFileNonExistent(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := ArchiveFile(filepath.Join(tmpDir, "missing.xlsx"))
	if err == nil {
		t.Error("Expected error when archiving non-existent file")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got: %v", err)
	}
}

func TestArchiveFileTwice(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "book.xlsx")

	for i := 0; i < 2; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		if _, err := ArchiveFile(path); err != nil {
			t.Fatalf("ArchiveFile #%d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(tmpDir, "archive"))
	if err != nil {
		t.Fatalf("Failed to read archive directory: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 archived files, got %d", len(entries))
	}
}
