// Package translation fills in missing halves of sentence pairs using the
// OpenAI chat API. It is used by the import command when a batch file
// carries only the Korean or only the English side of a row.
package translation
