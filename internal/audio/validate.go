package audio

import (
	"strings"
	"unicode"
)

// ValidateText trims text and rejects blank input with ErrEmptyText.
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// ContainsHangul reports whether text has at least one Hangul rune.
func ContainsHangul(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// CountRunes splits the non-whitespace runes of text into Hangul and other.
func CountRunes(text string) (hangul, other int) {
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
		case unicode.Is(unicode.Hangul, r):
			hangul++
		default:
			other++
		}
	}
	return hangul, other
}
