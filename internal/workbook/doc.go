// Package workbook reads bilingual sentence pairs from an xlsx workbook.
// Each sheet is a section; row 1 is a header, column B holds the source
// text and column C the target text.
package workbook
