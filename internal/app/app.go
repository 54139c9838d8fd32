package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/playback"
	"codeberg.org/snonux/korengpro/internal/translation"
)

// Config is the fully resolved application configuration.
type Config struct {
	Addr         string
	WorkbookPath string
	StateDir     string
	Player       string // "browser", "local" or "dwell"

	Audio     *audio.Config
	RateLimit int // synthesis requests per minute, 0 disables
	Cache     bool
	CacheTTL  time.Duration

	Pause       time.Duration
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config suitable for a local run.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8501",
		WorkbookPath: "korengpro.xlsx",
		StateDir:     ".korengpro",
		Player:       "browser",
		Audio:        audio.DefaultProviderConfig(),
		RateLimit:    60,
		Cache:        false,
		CacheTTL:     24 * time.Hour,
		Pause:        playback.DefaultPause,
		IdleTimeout:  30 * time.Minute,
	}
}

// App owns the components shared by every command.
type App struct {
	cfg    Config
	logger *log.Logger

	provider   audio.Provider
	cache      *audio.ClipCache
	synth      *audio.Synthesizer
	translator translation.Service

	playerOnce  sync.Once
	localPlayer playback.Player
}

// Option customizes New.
type Option func(*App)

// WithProvider replaces the configured TTS provider.
func WithProvider(p audio.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithLocalPlayer replaces the server side audio player.
func WithLocalPlayer(p playback.Player) Option {
	return func(a *App) { a.localPlayer = p }
}

// WithTranslator replaces the OpenAI translator used by Import.
func WithTranslator(t translation.Service) Option {
	return func(a *App) { a.translator = t }
}

// New builds the provider, clip cache and synthesizer.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...Option) (*App, error) {
	if cfg.Audio == nil {
		cfg.Audio = audio.DefaultProviderConfig()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if a.provider == nil {
		provider, err := audio.NewProvider(ctx, cfg.Audio, logger)
		if err != nil {
			return nil, err
		}
		a.provider = provider
	}

	synthOpts := []audio.SynthesizerOption{
		audio.WithSpeed(cfg.Audio.Speed),
		audio.WithRateLimit(cfg.RateLimit),
	}
	if cfg.Cache {
		cache, err := audio.NewClipCache(filepath.Join(cfg.StateDir, "cache"), cfg.CacheTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open clip cache: %w", err)
		}
		a.cache = cache
		synthOpts = append(synthOpts, audio.WithCache(cache))
	}
	a.synth = audio.NewSynthesizer(a.provider, logger, synthOpts...)

	if a.translator == nil {
		a.translator = translation.NewTranslator(cfg.Audio.OpenAIKey)
	}

	logger.Debug("Application ready",
		"provider", a.provider.Name(),
		"workbook", cfg.WorkbookPath,
		"state", cfg.StateDir,
		"cache", cfg.Cache)
	return a, nil
}

// Synthesizer returns the shared synthesizer.
func (a *App) Synthesizer() *audio.Synthesizer {
	return a.synth
}

// player returns the process wide local player. Only one audio device
// context may exist per process, so it is created once.
func (a *App) player() playback.Player {
	a.playerOnce.Do(func() {
		if a.localPlayer != nil {
			return
		}
		dir := filepath.Join(a.cfg.StateDir, "tmp", "player")
		if err := os.MkdirAll(dir, 0700); err != nil {
			a.logger.Warn("Failed to create player directory", "dir", dir, "err", err)
		}
		fallback := playback.NewLocalPlayer(dir, a.logger)
		a.localPlayer = playback.NewMixerPlayer(fallback, a.logger)
	})
	return a.localPlayer
}

// Close releases the clip cache.
func (a *App) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
