package audio

import (
	"errors"
	"testing"

	"codeberg.org/snonux/korengpro/internal/testutil"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"korean", "안녕하세요", "안녕하세요", false},
		{"trimmed", "  Hello  ", "Hello", false},
		{"empty", "", "", true},
		{"whitespace", " \t\n ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateText(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyText) {
					t.Errorf("ValidateText() error = %v, want ErrEmptyText", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ValidateText() = %q, %v", got, err)
			}
		})
	}
}

func TestCountRunes(t *testing.T) {
	tests := []struct {
		text   string
		hangul int
		other  int
	}{
		{"안녕하세요", 5, 0},
		{"Hello", 0, 5},
		{"밥 먹었어요?", 5, 1},
		{"   ", 0, 0},
	}
	for _, tt := range tests {
		h, o := CountRunes(tt.text)
		if h != tt.hangul || o != tt.other {
			t.Errorf("CountRunes(%q) = %d,%d want %d,%d", tt.text, h, o, tt.hangul, tt.other)
		}
	}
	if !ContainsHangul("I said 네") || ContainsHangul("no") {
		t.Error("ContainsHangul() mismatch")
	}
}

func TestContainsHangulSamples(t *testing.T) {
	gen := &testutil.TestDataGenerator{}
	for _, sentence := range gen.KoreanSentences() {
		if !ContainsHangul(sentence) {
			t.Errorf("ContainsHangul(%q) = false", sentence)
		}
		if hangul, _ := CountRunes(sentence); hangul == 0 {
			t.Errorf("CountRunes(%q) found no Hangul", sentence)
		}
	}
	if ContainsHangul("Thank you") {
		t.Error("ContainsHangul(English) = true")
	}
}
