package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

const geminiSampleRate = 24000

// GeminiProvider synthesizes speech with the Gemini TTS models.
// The API returns raw 16-bit PCM, which is wrapped into a WAV container.
type GeminiProvider struct {
	client *genai.Client
	model  string
	voice  string
	speed  float64
	key    string
}

// NewGeminiProvider creates a Gemini provider using the Gemini API backend.
func NewGeminiProvider(ctx context.Context, config *Config) (*GeminiProvider, error) {
	if config.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  config.GeminiModel,
		voice:  config.GeminiVoice,
		speed:  config.Speed,
		key:    config.GeminiKey,
	}, nil
}

// Prompt returns the text sent to the model. Gemini has no rate parameter,
// so pace is requested in words.
func (p *GeminiProvider) Prompt(text string, lang Language) string {
	language := "English"
	if lang == Source {
		language = "Korean"
	}
	pace := "at a natural pace"
	if p.speed > 1.05 {
		pace = "at a slightly brisk pace"
	} else if p.speed < 0.95 {
		pace = "slowly"
	}
	return fmt.Sprintf("Say in %s, clearly and %s: %s", language, pace, text)
}

func (p *GeminiProvider) synthesize(ctx context.Context, text string, lang Language) ([]byte, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(p.Prompt(text, lang)), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: p.voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini TTS API error: %w", err)
	}

	var pcm []byte
	rate := geminiSampleRate
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			rate = pcmRate(part.InlineData.MIMEType, rate)
			pcm = append(pcm, part.InlineData.Data...)
		}
	}
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}
	return EncodeWAV(pcm, rate, 1, 16), nil
}

// pcmRate reads the rate parameter of a mime type like "audio/L16;codec=pcm;rate=24000".
func pcmRate(mime string, fallback int) int {
	for _, param := range strings.Split(mime, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || key != "rate" {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// StreamAudio returns the WAV encoded response.
func (p *GeminiProvider) StreamAudio(ctx context.Context, text string, lang Language) (io.ReadCloser, error) {
	data, err := p.synthesize(ctx, text, lang)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// GenerateAudio writes the WAV response to outputFile.
func (p *GeminiProvider) GenerateAudio(ctx context.Context, text string, lang Language, outputFile string) error {
	data, err := p.synthesize(ctx, text, lang)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Format returns wav
func (p *GeminiProvider) Format() Format {
	return FormatWAV
}

// IsAvailable checks that an API key is configured
func (p *GeminiProvider) IsAvailable() error {
	if p.key == "" {
		return fmt.Errorf("Gemini API key not configured")
	}
	return nil
}
