package testutil

import (
	"context"
	"fmt"
	"sync"
)

// MockTranslator mocks the translation service
type MockTranslator struct {
	mu           sync.Mutex
	Translations map[string]string
	Errors       map[string]error
	Calls        []string
}

// Translate mocks translating text
func (m *MockTranslator) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, fmt.Sprintf("Translate: %s (%s->%s)", text, fromLang, toLang))

	if err, ok := m.Errors[text]; ok {
		return "", err
	}

	if translation, ok := m.Translations[text]; ok {
		return translation, nil
	}

	return fmt.Sprintf("mock translation of %s", text), nil
}

// TestDataGenerator generates test data
type TestDataGenerator struct{}

// KoreanSentences returns a fixed set of source sentences
func (g *TestDataGenerator) KoreanSentences() []string {
	return []string{"안녕하세요", "감사합니다", "만나서 반갑습니다", "괜찮아요"}
}

// GenerateAudioData generates mock audio data
func (g *TestDataGenerator) GenerateAudioData() []byte {
	// Simple mock MP3 header
	return []byte{0xFF, 0xFB, 0x90, 0x00, 0x00, 0x00, 0x00, 0x00}
}
