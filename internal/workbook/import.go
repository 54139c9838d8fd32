package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/xuri/excelize/v2"
)

// Header is written as row 1 of sections created by Append.
var Header = []interface{}{"No", "Source", "Target"}

// Pair is a sentence pair to append to a section.
type Pair struct {
	Source string
	Target string
}

// Append adds pairs to the end of section, creating the workbook, the sheet
// and its header row when missing. It returns the index of the first new row.
func Append(path, section string, pairs []Pair) (int, error) {
	if section == "" {
		return 0, fmt.Errorf("section name is required")
	}

	f, err := openOrCreate(path, section)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(section)
	if err != nil {
		return 0, fmt.Errorf("failed to look up sheet %q: %w", section, err)
	}
	if idx == -1 {
		if len(f.GetSheetList()) >= MaxSections {
			return 0, fmt.Errorf("workbook already has %d sections", MaxSections)
		}
		if _, err := f.NewSheet(section); err != nil {
			return 0, fmt.Errorf("failed to create sheet %q: %w", section, err)
		}
	}

	rows, err := f.GetRows(section)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %q: %w", section, err)
	}
	if len(rows) == 0 {
		if err := f.SetSheetRow(section, "A1", &Header); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
		rows = [][]string{{}}
	}

	first := len(rows) + 1
	for i, pair := range pairs {
		rowIndex := first + i
		cellName, err := excelize.CoordinatesToCellName(1, rowIndex)
		if err != nil {
			return 0, err
		}
		values := []interface{}{rowIndex - HeaderRow, pair.Source, pair.Target}
		if err := f.SetSheetRow(section, cellName, &values); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", rowIndex, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save workbook: %w", err)
	}
	return first, nil
}

func openOrCreate(path, section string) (*excelize.File, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		return f, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Path: path, Err: err}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", section); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	return f, nil
}
