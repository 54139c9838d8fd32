package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// MaxSections is the number of sheets exposed to the player.
	MaxSections = 10

	// HeaderRow is the 1-based header row of every section.
	HeaderRow = 1

	// FirstPlayableRow is the first row holding a sentence pair.
	FirstPlayableRow = 2

	sourceColumn = 2
	targetColumn = 3
)

// Row is one source/target sentence pair with its 1-based row index.
type Row struct {
	Index  int
	Source string
	Target string
}

// IsEmpty reports whether both sides of the row are blank.
func (r Row) IsEmpty() bool {
	return r.Source == "" && r.Target == ""
}

// Source is a read-only accessor over named sections of sentence pairs.
type Source interface {
	Sections() []string
	Row(section string, index int) (Row, error)
	MaxRow(section string) (int, error)
}

// Workbook is an in-memory snapshot of an xlsx file.
type Workbook struct {
	path   string
	names  []string
	sheets map[string][][]string
}

// Open reads the first MaxSections sheets of the workbook at path.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	wb, err := fromFile(path, f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return wb, nil
}

func fromFile(path string, f *excelize.File) (*Workbook, error) {
	names := f.GetSheetList()
	if len(names) > MaxSections {
		names = names[:MaxSections]
	}

	wb := &Workbook{
		path:   path,
		names:  names,
		sheets: make(map[string][][]string, len(names)),
	}

	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		wb.sheets[name] = rows
	}

	return wb, nil
}

// Path returns the file the snapshot was read from.
func (w *Workbook) Path() string {
	return w.path
}

// Sections returns the exposed sheet names in workbook order.
func (w *Workbook) Sections() []string {
	names := make([]string, len(w.names))
	copy(names, w.names)
	return names
}

// HasSection reports whether name is one of the exposed sections.
func (w *Workbook) HasSection(name string) bool {
	_, ok := w.sheets[name]
	return ok
}

// MaxRow returns the last row index present in the section, header included.
func (w *Workbook) MaxRow(section string) (int, error) {
	rows, ok := w.sheets[section]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return len(rows), nil
}

// PlayableRows returns the number of rows after the header.
func (w *Workbook) PlayableRows(section string) (int, error) {
	maxRow, err := w.MaxRow(section)
	if err != nil {
		return 0, err
	}
	if maxRow < FirstPlayableRow {
		return 0, nil
	}
	return maxRow - HeaderRow, nil
}

// Row returns the sentence pair stored at the 1-based index. Missing cells
// read as empty strings.
func (w *Workbook) Row(section string, index int) (Row, error) {
	rows, ok := w.sheets[section]
	if !ok {
		return Row{}, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if index < 1 || index > len(rows) {
		return Row{}, fmt.Errorf("%w: %q row %d (max %d)", ErrRowOutOfRange, section, index, len(rows))
	}

	cells := rows[index-1]
	return Row{
		Index:  index,
		Source: cell(cells, sourceColumn),
		Target: cell(cells, targetColumn),
	}, nil
}

func cell(cells []string, column int) string {
	if column-1 >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[column-1])
}

// Loader opens a fresh snapshot of the workbook at a fixed path.
type Loader struct {
	Path string
}

// Load opens the workbook; each session calls it once.
func (l Loader) Load() (*Workbook, error) {
	return Open(l.Path)
}

// Exists reports whether the workbook file is present.
func (l Loader) Exists() bool {
	_, err := os.Stat(l.Path)
	return err == nil
}
