package internal

import (
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateClipID(t *testing.T) {
	id := GenerateClipID("안녕하세요")
	parts := strings.Split(id, "_")
	if len(parts) != 2 {
		t.Fatalf("GenerateClipID() = %q, want epoch_hash", id)
	}
	if len(parts[1]) != 8 {
		t.Errorf("hash part = %q, want 8 chars", parts[1])
	}
}

func TestTextHashStable(t *testing.T) {
	if TextHash("hello") != TextHash("hello") {
		t.Error("TextHash() not stable")
	}
	if TextHash("hello") == TextHash("world") {
		t.Error("TextHash() collision on different input")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Greetings", "Greetings"},
		{"인사 1", "인사_1"},
		{"a/b.c", "a_b_c"},
		{"x-y_z", "x-y_z"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"WARN":    log.WarnLevel,
		"error":   log.ErrorLevel,
		"":        log.InfoLevel,
		"verbose": log.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
