package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/korengpro/internal/batch"
)

const (
	Korean  = "Korean"
	English = "English"
)

// ErrNoAPIKey is returned when the translator was built without a key.
var ErrNoAPIKey = errors.New("OpenAI API key not found")

// Service translates a sentence between two languages.
type Service interface {
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}

// Translator handles Korean and English translation via OpenAI
type Translator struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewTranslator creates a new translator instance
func NewTranslator(apiKey string) *Translator {
	return NewTranslatorWithConfig(apiKey, openai.DefaultConfig(apiKey))
}

// NewTranslatorWithConfig allows pointing the client at another endpoint.
func NewTranslatorWithConfig(apiKey string, config openai.ClientConfig) *Translator {
	return &Translator{
		apiKey: apiKey,
		model:  openai.GPT4oMini,
		client: openai.NewClientWithConfig(config),
	}
}

// Translate translates one sentence from fromLang to toLang.
func (t *Translator) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	if t.apiKey == "" {
		return "", ErrNoAPIKey
	}

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You translate %s sentences for language learners into natural %s. "+
					"Respond with only the translation, nothing else.", fromLang, toLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens:   200,
		Temperature: 0.3,
	}

	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no translation returned")
	}

	translation := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translation == "" {
		return "", fmt.Errorf("empty translation for %q", text)
	}
	return translation, nil
}

// Cache stores translations in memory for batch operations
type Cache struct {
	mu           sync.Mutex
	translations map[string]string
}

// NewCache creates a new translation cache
func NewCache() *Cache {
	return &Cache{translations: make(map[string]string)}
}

func cacheKey(text, toLang string) string {
	return toLang + "\x00" + text
}

// Add adds a translation to the cache
func (c *Cache) Add(text, toLang, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.translations[cacheKey(text, toLang)] = translation
}

// Get retrieves a translation from the cache
func (c *Cache) Get(text, toLang string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	translation, ok := c.translations[cacheKey(text, toLang)]
	return translation, ok
}

// Len returns the number of cached translations.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.translations)
}

// Complete fills in the missing side of every incomplete entry. Entries are
// returned in input order, all with Direction Complete. The first failed
// translation aborts the run.
func Complete(ctx context.Context, svc Service, cache *Cache, entries []batch.Entry) ([]batch.Entry, error) {
	if cache == nil {
		cache = NewCache()
	}

	out := make([]batch.Entry, 0, len(entries))
	for i, e := range entries {
		var text, from, to string
		switch e.Direction {
		case batch.NeedsTarget:
			text, from, to = e.Source, Korean, English
		case batch.NeedsSource:
			text, from, to = e.Target, English, Korean
		default:
			out = append(out, e)
			continue
		}

		translated, ok := cache.Get(text, to)
		if !ok {
			var err error
			translated, err = svc.Translate(ctx, text, from, to)
			if err != nil {
				return nil, fmt.Errorf("entry %d %q: %w", i+1, text, err)
			}
			cache.Add(text, to, translated)
		}

		if e.Direction == batch.NeedsTarget {
			e.Target = translated
		} else {
			e.Source = translated
		}
		e.Direction = batch.Complete
		out = append(out, e)
	}
	return out, nil
}
