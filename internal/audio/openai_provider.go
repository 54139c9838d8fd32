package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider interface for OpenAI TTS
type OpenAIProvider struct {
	client *openai.Client
	config *Config
}

// NewOpenAIProvider creates a new OpenAI TTS provider
func NewOpenAIProvider(config *Config) (*OpenAIProvider, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &OpenAIProvider{
		client: openai.NewClient(config.OpenAIKey),
		config: config,
	}, nil
}

// supportsInstructions reports whether the model accepts voice instructions
func (p *OpenAIProvider) supportsInstructions() bool {
	return p.config.OpenAIModel == "gpt-4o-mini-tts" || p.config.OpenAIModel == "gpt-4o-mini-audio-preview"
}

// request builds the speech request for text in lang
func (p *OpenAIProvider) request(text string, lang Language) openai.CreateSpeechRequest {
	speed := p.config.Speed
	if speed <= 0 {
		speed = 1.0
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.OpenAIModel),
		Input:          text,
		Voice:          openai.SpeechVoice(p.config.OpenAIVoice),
		Speed:          speed,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}

	if p.supportsInstructions() {
		req.Instructions = languageInstruction(lang) + " " + p.config.OpenAIInstruction
	}
	return req
}

func languageInstruction(lang Language) string {
	if lang == Source {
		return "You are speaking Korean (한국어) with standard Seoul pronunciation."
	}
	return "You are speaking American English."
}

// StreamAudio returns the response body of the speech endpoint.
func (p *OpenAIProvider) StreamAudio(ctx context.Context, text string, lang Language) (io.ReadCloser, error) {
	response, err := p.client.CreateSpeech(ctx, p.request(text, lang))
	if err != nil {
		// Check if it's a model access error
		if strings.Contains(err.Error(), "does not have access to model") && p.supportsInstructions() {
			return nil, fmt.Errorf("OpenAI TTS API error: %w\nNote: The %s model requires access. Try tts-1-hd instead", err, p.config.OpenAIModel)
		}
		return nil, fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	return response, nil
}

// GenerateAudio writes the mp3 response to outputFile
func (p *OpenAIProvider) GenerateAudio(ctx context.Context, text string, lang Language, outputFile string) error {
	body, err := p.StreamAudio(ctx, text, lang)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, body)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if written == 0 {
		return ErrNoAudio
	}
	return nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Format returns mp3
func (p *OpenAIProvider) Format() Format {
	return FormatMP3
}

// IsAvailable checks if the OpenAI API is configured
func (p *OpenAIProvider) IsAvailable() error {
	if p.config.OpenAIKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	// A test call would cost credits, the key check is enough
	return nil
}
