package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"
)

// EdgeProvider drives the edge-tts command line tool, which writes mp3 files.
type EdgeProvider struct {
	command string
	voices  map[Language]string
	rate    string
	timeout time.Duration
}

// NewEdgeProvider creates an edge-tts provider. The binary is only checked by IsAvailable.
func NewEdgeProvider(config *Config) *EdgeProvider {
	command := config.EdgeCommand
	if command == "" {
		command = "edge-tts"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EdgeProvider{
		command: command,
		voices: map[Language]string{
			Source: config.EdgeSourceVoice,
			Target: config.EdgeTargetVoice,
		},
		rate:    FormatRate(config.Speed),
		timeout: timeout,
	}
}

// FormatRate converts a speed multiplier into edge-tts' signed percentage, 1.2 -> "+20%".
func FormatRate(speed float64) string {
	if speed <= 0 {
		speed = 1
	}
	return fmt.Sprintf("%+d%%", int(math.Round((speed-1)*100)))
}

// Args returns the command line used for text in lang.
func (p *EdgeProvider) Args(text string, lang Language, outputFile string) []string {
	return []string{
		"--voice", p.voices[lang],
		"--rate=" + p.rate,
		"--text", text,
		"--write-media", outputFile,
	}
}

// GenerateAudio runs edge-tts and waits for the mp3 file.
func (p *EdgeProvider) GenerateAudio(ctx context.Context, text string, lang Language, outputFile string) error {
	if p.voices[lang] == "" {
		return fmt.Errorf("no edge-tts voice configured for %s", lang)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, p.Args(text, lang, outputFile)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("edge-tts interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("edge-tts failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(outputFile)
	if err != nil {
		return fmt.Errorf("edge-tts wrote no file: %w", err)
	}
	if info.Size() == 0 {
		return ErrNoAudio
	}
	return nil
}

// Name returns the provider name
func (p *EdgeProvider) Name() string {
	return "edge-tts"
}

// Format returns mp3, the only container edge-tts writes.
func (p *EdgeProvider) Format() Format {
	return FormatMP3
}

// IsAvailable checks that the edge-tts binary is on PATH
func (p *EdgeProvider) IsAvailable() error {
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("%s is not installed or not in PATH: %w", p.command, err)
	}
	return nil
}
