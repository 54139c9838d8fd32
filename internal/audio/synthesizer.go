package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"codeberg.org/snonux/korengpro/internal"
)

// Synthesizer turns text into clips through a Provider. The limiter, breaker
// and cache are shared by every copy returned from WithScratch.
type Synthesizer struct {
	provider Provider
	speed    float64
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    *ClipCache
	scratch  *Scratch
	logger   *log.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithRateLimit allows at most perMinute provider calls per minute.
func WithRateLimit(perMinute int) SynthesizerOption {
	return func(s *Synthesizer) {
		if perMinute > 0 {
			s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithBreaker opens the circuit after failures consecutive errors and
// probes again after cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) SynthesizerOption {
	return func(s *Synthesizer) {
		s.breaker = newBreaker(s.provider.Name(), failures, cooldown, s.logger)
	}
}

// WithCache enables the clip cache.
func WithCache(c *ClipCache) SynthesizerOption {
	return func(s *Synthesizer) { s.cache = c }
}

// WithSpeed records the speed that is part of the cache key.
func WithSpeed(speed float64) SynthesizerOption {
	return func(s *Synthesizer) { s.speed = speed }
}

// NewSynthesizer wraps provider. Without WithBreaker a default breaker
// (5 failures, 30s) is used.
func NewSynthesizer(provider Provider, logger *log.Logger, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		provider: provider,
		speed:    1,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = newBreaker(provider.Name(), 5, 30*time.Second, logger)
	}
	return s
}

func newBreaker(name string, failures uint32, cooldown time.Duration, logger *log.Logger) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A cancelled step is a user Stop, not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyText)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Synthesis circuit changed state", "provider", name, "from", from.String(), "to", to.String())
		},
	})
}

// WithScratch returns a copy that writes provider files into sc.
func (s *Synthesizer) WithScratch(sc *Scratch) *Synthesizer {
	cp := *s
	cp.scratch = sc
	return &cp
}

// Provider returns the wrapped provider.
func (s *Synthesizer) Provider() Provider {
	return s.provider
}

// Synthesize produces a clip for text in lang. Blank text fails with
// ErrEmptyText without touching the provider.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, lang Language) (*Clip, error) {
	text, err := ValidateText(text)
	if err != nil {
		return nil, err
	}
	if lang == Source && !ContainsHangul(text) {
		s.logger.Debug("Source text has no Hangul", "text", text)
	}

	var key string
	if s.cache != nil {
		key = CacheKey(s.provider.Name(), lang, s.speed, text)
		if data, ok := s.cache.Get(key); ok {
			return s.newClip(text, lang, data), nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &SynthesisError{Provider: s.provider.Name(), Language: lang, Err: err}
		}
	}

	start := time.Now()
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.generate(ctx, text, lang)
	})
	if err != nil {
		return nil, &SynthesisError{Provider: s.provider.Name(), Language: lang, Err: err}
	}
	data := out.([]byte)

	s.logger.Debug("Synthesized clip", "lang", lang, "bytes", len(data), "took", time.Since(start).Round(time.Millisecond))

	if s.cache != nil {
		s.cache.Put(key, data)
	}
	return s.newClip(text, lang, data), nil
}

func (s *Synthesizer) newClip(text string, lang Language, data []byte) *Clip {
	return &Clip{
		ID:       internal.GenerateClipID(text),
		Text:     text,
		Language: lang,
		Format:   DetectFormat(data),
		Data:     data,
	}
}

// generate picks the invocation strategy: streaming providers are read into
// memory, the rest write a scratch file that is read back and deleted.
func (s *Synthesizer) generate(ctx context.Context, text string, lang Language) ([]byte, error) {
	if streamer, ok := s.provider.(Streamer); ok {
		body, err := streamer.StreamAudio(ctx, text, lang)
		if err != nil {
			return nil, err
		}
		defer body.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, body); err != nil {
			return nil, fmt.Errorf("failed to read audio stream: %w", err)
		}
		if buf.Len() == 0 {
			return nil, ErrNoAudio
		}
		return buf.Bytes(), nil
	}

	if s.scratch == nil {
		return nil, ErrNoScratch
	}

	path := s.scratch.Path(lang, text, s.provider.Format())
	defer func() {
		if err := s.scratch.Remove(path); err != nil {
			s.logger.Warn("Failed to delete temp clip", "err", err)
		}
	}()

	if err := s.provider.GenerateAudio(ctx, text, lang, path); err != nil {
		return nil, err
	}
	return s.scratch.ReadBack(path)
}
