package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"time"
)

// ESpeakConfig holds configuration for espeak-ng audio generation
type ESpeakConfig struct {
	Voices    map[Language]string // espeak-ng voice per side, e.g. "ko" and "en-us"
	Speed     int                 // Speech speed in words per minute (default: 150)
	Pitch     int                 // Pitch adjustment, 0 to 99 (default: 50)
	Amplitude int                 // Volume/amplitude, 0 to 200 (default: 100)
	WordGap   int                 // Gap between words in 10ms units (default: 0)
	Timeout   time.Duration
}

// DefaultESpeakConfig returns the default configuration for Korean and English voices
func DefaultESpeakConfig() *ESpeakConfig {
	return &ESpeakConfig{
		Voices:    map[Language]string{Source: "ko", Target: "en-us"},
		Speed:     150,
		Pitch:     50,
		Amplitude: 100,
		WordGap:   0,
		Timeout:   30 * time.Second,
	}
}

// ESpeakProvider implements Provider interface for espeak-ng, writing WAV files
type ESpeakProvider struct {
	config *ESpeakConfig
}

// NewESpeakProvider creates a new espeak-ng provider from the shared audio config
func NewESpeakProvider(config *Config) (*ESpeakProvider, error) {
	// Check if espeak-ng is installed
	if err := checkESpeakInstalled(); err != nil {
		return nil, err
	}

	ec := DefaultESpeakConfig()
	if config.ESpeakSourceVoice != "" {
		ec.Voices[Source] = config.ESpeakSourceVoice
	}
	if config.ESpeakTargetVoice != "" {
		ec.Voices[Target] = config.ESpeakTargetVoice
	}
	if config.Timeout > 0 {
		ec.Timeout = config.Timeout
	}

	p := &ESpeakProvider{config: ec}
	if config.Speed > 0 {
		p.SetSpeed(int(math.Round(150 * config.Speed)))
	}
	return p, nil
}

// Args returns the espeak-ng arguments for text in lang
func (p *ESpeakProvider) Args(text string, lang Language, outputFile string) []string {
	args := []string{
		"-v", p.config.Voices[lang],
		"-s", fmt.Sprintf("%d", p.config.Speed),
		"-p", fmt.Sprintf("%d", p.config.Pitch),
		"-a", fmt.Sprintf("%d", p.config.Amplitude),
	}

	if p.config.WordGap > 0 {
		args = append(args, "-g", fmt.Sprintf("%d", p.config.WordGap))
	}

	return append(args, "-w", outputFile, text)
}

// GenerateAudio generates a WAV file for text
func (p *ESpeakProvider) GenerateAudio(ctx context.Context, text string, lang Language, outputFile string) error {
	if text == "" {
		return ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "espeak-ng", p.Args(text, lang, outputFile)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("espeak-ng failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// SetSpeed updates the speech speed
func (p *ESpeakProvider) SetSpeed(speed int) {
	if speed < 80 {
		speed = 80
	} else if speed > 450 {
		speed = 450
	}
	p.config.Speed = speed
}

// Name returns the provider name
func (p *ESpeakProvider) Name() string {
	return "espeak-ng"
}

// Format returns wav
func (p *ESpeakProvider) Format() Format {
	return FormatWAV
}

// IsAvailable checks if espeak-ng is installed
func (p *ESpeakProvider) IsAvailable() error {
	return checkESpeakInstalled()
}

// checkESpeakInstalled verifies that espeak-ng is available on the system
func checkESpeakInstalled() error {
	if _, err := exec.LookPath("espeak-ng"); err != nil {
		return fmt.Errorf("espeak-ng is not installed or not in PATH: %w", err)
	}
	return nil
}
