package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
	"unicode"
)

// Version is the release version reported by the CLI.
var Version = "0.3.0"

// GenerateClipID creates a unique ID for a synthesized clip based on timestamp and text
// Format: epochMillis_md5(text)[:8]
func GenerateClipID(text string) string {
	epochMillis := time.Now().UnixNano() / 1000000

	hash := md5.Sum([]byte(text))
	hashStr := hex.EncodeToString(hash[:])[:8]

	return fmt.Sprintf("%d_%s", epochMillis, hashStr)
}

// TextHash returns a short stable hash of text, used for temp file names
func TextHash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[:12]
}

// SanitizeFilename creates a safe filename from a string
func SanitizeFilename(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if isAlphaNumeric(r) || r == '-' || r == '_' {
			result = append(result, r)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}

// isAlphaNumeric checks if a rune is alphanumeric, Hangul syllables included
func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || unicode.Is(unicode.Hangul, r)
}
