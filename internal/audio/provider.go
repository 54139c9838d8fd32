package audio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Provider defines the interface for text-to-speech providers
type Provider interface {
	// GenerateAudio generates audio from text and saves it to the specified file
	GenerateAudio(ctx context.Context, text string, lang Language, outputFile string) error

	// Name returns the provider name
	Name() string

	// Format returns the container the provider writes
	Format() Format

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() error
}

// Streamer is implemented by providers that can hand back audio without a temp file.
type Streamer interface {
	StreamAudio(ctx context.Context, text string, lang Language) (io.ReadCloser, error)
}

// Config holds common configuration for audio providers
type Config struct {
	Provider string  // "edge", "openai", "gemini" or "espeak"
	Fallback string  // Provider tried when the primary fails, empty disables
	Speed    float64 // Speech rate multiplier, 1.0 is normal
	Timeout  time.Duration

	// edge-tts settings
	EdgeCommand     string
	EdgeSourceVoice string
	EdgeTargetVoice string

	// OpenAI-specific settings
	OpenAIKey         string
	OpenAIModel       string // "tts-1", "tts-1-hd", or "gpt-4o-mini-tts"
	OpenAIVoice       string
	OpenAIInstruction string // Voice instructions for gpt-4o-mini-tts model

	// Gemini settings
	GeminiKey   string
	GeminiModel string
	GeminiVoice string

	// espeak-ng voices
	ESpeakSourceVoice string
	ESpeakTargetVoice string
}

// DefaultProviderConfig returns default configuration
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:          "edge",
		Fallback:          "espeak",
		Speed:             1.2,
		Timeout:           30 * time.Second,
		EdgeCommand:       "edge-tts",
		EdgeSourceVoice:   "ko-KR-SunHiNeural",
		EdgeTargetVoice:   "en-US-JennyNeural",
		OpenAIModel:       "gpt-4o-mini-tts",
		OpenAIVoice:       "nova",
		OpenAIInstruction: "Speak clearly and naturally for language learners.",
		GeminiModel:       "gemini-2.5-flash-preview-tts",
		GeminiVoice:       "Kore",
		ESpeakSourceVoice: "ko",
		ESpeakTargetVoice: "en-us",
	}
}

// NewProvider creates the appropriate audio provider based on configuration,
// wrapped with the configured fallback.
func NewProvider(ctx context.Context, config *Config, logger *log.Logger) (Provider, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	primary, err := newNamedProvider(ctx, config.Provider, config)
	if err != nil {
		return nil, err
	}

	if config.Fallback == "" || config.Fallback == config.Provider {
		return primary, nil
	}

	fallback, err := newNamedProvider(ctx, config.Fallback, config)
	if err != nil {
		logger.Warn("Fallback provider disabled", "fallback", config.Fallback, "err", err)
		return primary, nil
	}
	return NewProviderWithFallback(primary, fallback, logger), nil
}

func newNamedProvider(ctx context.Context, name string, config *Config) (Provider, error) {
	switch name {
	case "edge":
		return NewEdgeProvider(config), nil

	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIProvider(config)

	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiProvider(ctx, config)

	case "espeak":
		return NewESpeakProvider(config)

	default:
		return nil, fmt.Errorf("unknown audio provider: %s", name)
	}
}

// ProviderWithFallback wraps a primary provider with a fallback option
type ProviderWithFallback struct {
	primary  Provider
	fallback Provider
	logger   *log.Logger
}

// NewProviderWithFallback creates a provider that falls back to secondary if primary fails
func NewProviderWithFallback(primary, fallback Provider, logger *log.Logger) Provider {
	return &ProviderWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// GenerateAudio tries primary provider first, falls back to secondary on error
func (p *ProviderWithFallback) GenerateAudio(ctx context.Context, text string, lang Language, outputFile string) error {
	err := p.primary.GenerateAudio(ctx, text, lang, outputFile)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	p.logger.Warn("Primary provider failed, falling back",
		"primary", p.primary.Name(), "fallback", p.fallback.Name(), "err", err)
	return p.fallback.GenerateAudio(ctx, text, lang, outputFile)
}

// Name returns the provider name
func (p *ProviderWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.fallback.Name())
}

// Format returns the primary's format. The fallback may write another
// container, so callers sniff the bytes with DetectFormat.
func (p *ProviderWithFallback) Format() Format {
	return p.primary.Format()
}

// IsAvailable checks if at least one provider is available
func (p *ProviderWithFallback) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}

	fallbackErr := p.fallback.IsAvailable()
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("both providers unavailable: primary=%v, fallback=%v",
		primaryErr, fallbackErr)
}
