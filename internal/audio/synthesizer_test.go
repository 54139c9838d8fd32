package audio

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/korengpro/internal"
	"codeberg.org/snonux/korengpro/internal/testutil"
)

func newTestScratch(t *testing.T) *Scratch {
	t.Helper()
	sc, err := NewScratch(t.TempDir(), "session")
	if err != nil {
		t.Fatalf("NewScratch() error = %v", err)
	}
	sc.backoff = time.Millisecond
	return sc
}

func TestSynthesizeFileStrategy(t *testing.T) {
	gen := &testutil.TestDataGenerator{}
	provider := &mockProvider{name: "mock", data: gen.GenerateAudioData()}
	sc := newTestScratch(t)
	synth := NewSynthesizer(provider, internal.DiscardLogger()).WithScratch(sc)

	clip, err := synth.Synthesize(context.Background(), "  안녕하세요 ", Source)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if clip.Text != "안녕하세요" {
		t.Errorf("Text = %q, want trimmed", clip.Text)
	}
	if clip.Format != FormatMP3 || clip.Language != Source {
		t.Errorf("clip = %+v", clip)
	}
	if string(clip.Data) != string(gen.GenerateAudioData()) {
		t.Error("clip data does not match provider output")
	}

	// The temp file is gone once the clip is in memory
	testutil.AssertFileNotExists(t, provider.paths[0])
	testutil.AssertDirEmpty(t, sc.Dir())
}

func TestSynthesizeStreamStrategy(t *testing.T) {
	provider := &mockStreamer{mockProvider: mockProvider{name: "stream", data: EncodeWAV([]byte{1, 2}, 24000, 1, 16)}}
	synth := NewSynthesizer(provider, internal.DiscardLogger())

	clip, err := synth.Synthesize(context.Background(), "Hello", Target)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if clip.Format != FormatWAV {
		t.Errorf("Format = %s, want wav", clip.Format)
	}
	if provider.streamCalls != 1 || provider.calls() != 0 {
		t.Errorf("streamCalls=%d generateCalls=%d, want 1/0", provider.streamCalls, provider.calls())
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	provider := &mockProvider{name: "mock", data: []byte("x")}
	synth := NewSynthesizer(provider, internal.DiscardLogger()).WithScratch(newTestScratch(t))

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := synth.Synthesize(context.Background(), text, Source)
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("Synthesize(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
	if provider.calls() != 0 {
		t.Errorf("provider called %d times for blank text", provider.calls())
	}
}

func TestSynthesizeNoScratch(t *testing.T) {
	synth := NewSynthesizer(&mockProvider{name: "mock"}, internal.DiscardLogger())

	_, err := synth.Synthesize(context.Background(), "Hello", Target)
	if !errors.Is(err, ErrNoScratch) {
		t.Errorf("error = %v, want ErrNoScratch", err)
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	boom := errors.New("boom")
	provider := &mockProvider{name: "mock", generateErr: boom}
	synth := NewSynthesizer(provider, internal.DiscardLogger(), WithBreaker(2, time.Hour)).WithScratch(newTestScratch(t))

	for i := 0; i < 2; i++ {
		_, err := synth.Synthesize(context.Background(), "Hello", Target)
		var synthErr *SynthesisError
		if !errors.As(err, &synthErr) {
			t.Fatalf("error = %v, want *SynthesisError", err)
		}
		if !errors.Is(err, boom) || synthErr.Language != Target || synthErr.Provider != "mock" {
			t.Errorf("unexpected SynthesisError %+v", synthErr)
		}
	}

	// Breaker is open now and the provider is no longer called
	_, err := synth.Synthesize(context.Background(), "Hello", Target)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want open breaker", err)
	}
	if provider.calls() != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls())
	}
}

func TestSynthesizeCancelDoesNotTrip(t *testing.T) {
	provider := &mockProvider{name: "mock", generateErr: context.Canceled}
	synth := NewSynthesizer(provider, internal.DiscardLogger(), WithBreaker(1, time.Hour)).WithScratch(newTestScratch(t))

	for i := 0; i < 3; i++ {
		_, _ = synth.Synthesize(context.Background(), "Hello", Target)
	}
	if provider.calls() != 3 {
		t.Errorf("provider calls = %d, want 3 (breaker must stay closed)", provider.calls())
	}
}

func TestSynthesizeCache(t *testing.T) {
	cache, err := NewClipCache(t.TempDir(), time.Minute, internal.DiscardLogger())
	if err != nil {
		t.Fatalf("NewClipCache() error = %v", err)
	}
	defer cache.Close()

	provider := &mockProvider{name: "mock", data: []byte("mp3-bytes")}
	synth := NewSynthesizer(provider, internal.DiscardLogger(), WithCache(cache), WithSpeed(1.2)).WithScratch(newTestScratch(t))

	for i := 0; i < 3; i++ {
		clip, err := synth.Synthesize(context.Background(), "감사합니다", Source)
		if err != nil {
			t.Fatalf("Synthesize() error = %v", err)
		}
		if string(clip.Data) != "mp3-bytes" {
			t.Errorf("Data = %q", clip.Data)
		}
	}
	if provider.calls() != 1 {
		t.Errorf("provider calls = %d, want 1 with cache", provider.calls())
	}
}

func TestSynthesizeRateLimitCancelled(t *testing.T) {
	provider := &mockProvider{name: "mock", data: []byte("x")}
	synth := NewSynthesizer(provider, internal.DiscardLogger(), WithRateLimit(1)).WithScratch(newTestScratch(t))

	if _, err := synth.Synthesize(context.Background(), "one", Target); err != nil {
		t.Fatalf("first Synthesize() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := synth.Synthesize(ctx, "two", Target)
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Errorf("error = %v, want *SynthesisError from limiter", err)
	}
}

func TestWithScratchSharesBreaker(t *testing.T) {
	synth := NewSynthesizer(&mockProvider{name: "mock"}, internal.DiscardLogger())
	a := synth.WithScratch(newTestScratch(t))
	b := synth.WithScratch(newTestScratch(t))

	if a.breaker != b.breaker {
		t.Error("copies must share the circuit breaker")
	}
	if a.scratch == b.scratch {
		t.Error("copies must not share the scratch area")
	}
	if _, err := os.Stat(a.scratch.Dir()); err != nil {
		t.Errorf("scratch dir missing: %v", err)
	}
}
