// Package anki exports workbook sections as Anki decks, either as a
// self-contained .apkg package with synthesized audio or as a CSV file
// for Anki's text importer.
package anki
