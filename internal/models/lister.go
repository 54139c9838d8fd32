package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey is returned when the lister was built without a key.
var ErrNoAPIKey = errors.New("OpenAI API key not found. Set OPENAI_API_KEY or audio.openai_key in .korengpro.yaml")

// Catalog groups model ids by what korengpro can use them for.
type Catalog struct {
	Speech      []string
	Translation []string
	Other       int
}

// Lister handles listing available OpenAI models
type Lister struct {
	apiKey string
	client *openai.Client
}

// NewLister creates a new model lister
func NewLister(apiKey string) *Lister {
	return NewListerWithConfig(apiKey, openai.DefaultConfig(apiKey))
}

// NewListerWithConfig allows pointing the client at another endpoint.
func NewListerWithConfig(apiKey string, config openai.ClientConfig) *Lister {
	return &Lister{apiKey: apiKey, client: openai.NewClientWithConfig(config)}
}

// List fetches and categorizes the models visible to the key.
func (l *Lister) List(ctx context.Context) (*Catalog, error) {
	if l.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	return Categorize(models.Models), nil
}

// Categorize sorts model ids into speech and translation candidates.
func Categorize(models []openai.Model) *Catalog {
	c := &Catalog{}
	for _, model := range models {
		id := model.ID
		switch {
		case strings.Contains(id, "tts"):
			c.Speech = append(c.Speech, id)
		case strings.HasPrefix(id, "gpt-4") || strings.HasPrefix(id, "gpt-3.5"):
			if strings.Contains(id, "audio") || strings.Contains(id, "realtime") || strings.Contains(id, "transcribe") {
				c.Other++
				continue
			}
			c.Translation = append(c.Translation, id)
		default:
			c.Other++
		}
	}
	sort.Strings(c.Speech)
	sort.Strings(c.Translation)
	return c
}

// Print writes the catalog in a human readable form.
func (c *Catalog) Print(w io.Writer) {
	fmt.Fprintln(w, "Text-to-Speech models (--provider openai --openai-model):")
	if len(c.Speech) == 0 {
		fmt.Fprintln(w, "  No TTS models found")
	}
	for _, id := range c.Speech {
		fmt.Fprintf(w, "  %s\n", id)
	}

	fmt.Fprintln(w, "\nTranslation models (import --translate):")
	if len(c.Translation) == 0 {
		fmt.Fprintln(w, "  No chat models found")
	}
	for _, id := range c.Translation {
		fmt.Fprintf(w, "  %s\n", id)
	}

	if c.Other > 0 {
		fmt.Fprintf(w, "\n%d other models not used by korengpro\n", c.Other)
	}
}
