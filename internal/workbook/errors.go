package workbook

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the workbook file does not exist.
	ErrNotFound = errors.New("workbook not found")

	// ErrUnknownSection is returned for a section name the workbook does not expose.
	ErrUnknownSection = errors.New("unknown section")

	// ErrRowOutOfRange is returned for row indexes outside a section.
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrEmptyWorkbook is returned when an upload holds no sheets.
	ErrEmptyWorkbook = errors.New("workbook has no sheets")
)

// LoadError reports a workbook that exists but could not be parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load workbook %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
