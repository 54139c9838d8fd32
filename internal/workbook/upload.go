package workbook

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"codeberg.org/snonux/korengpro/internal/archive"
)

// MaxUploadSize bounds the size of a replacement workbook.
const MaxUploadSize = 32 << 20

// UploadResult describes a persisted replacement workbook.
type UploadResult struct {
	Size     int64
	Sections []string
	Archived string // previous file location, empty if there was none
}

// SaveUpload validates the workbook read from r and persists it at path.
// An existing file is archived once the new content is safely on disk, so a
// failed write leaves the previous workbook in place.
func SaveUpload(path string, r io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("upload exceeds %d bytes", MaxUploadSize)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Path: "upload", Err: err}
	}
	wb, err := fromFile(path, f)
	_ = f.Close()
	if err != nil {
		return nil, &LoadError{Path: "upload", Err: err}
	}
	if len(wb.names) == 0 {
		return nil, &LoadError{Path: "upload", Err: ErrEmptyWorkbook}
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workbook directory: %w", err)
		}
	}

	result := &UploadResult{
		Size:     int64(len(data)),
		Sections: wb.Sections(),
	}

	tmp := path + ".upload"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		archived, err := archive.ArchiveFile(path)
		if err != nil {
			_ = os.Remove(tmp)
			return nil, err
		}
		result.Archived = archived
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		if result.Archived != "" {
			_ = os.Rename(result.Archived, path)
		}
		return nil, fmt.Errorf("failed to persist workbook: %w", err)
	}

	return result, nil
}
