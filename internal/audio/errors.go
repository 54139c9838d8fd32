package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned for blank input. Callers skip the field.
	ErrEmptyText = errors.New("text is empty")

	// ErrNoScratch means a file based provider was used without a temp area.
	ErrNoScratch = errors.New("no scratch directory configured")

	// ErrNoAudio means the provider returned zero bytes.
	ErrNoAudio = errors.New("no audio data received")
)

// SynthesisError wraps any failure of the text-to-speech provider.
type SynthesisError struct {
	Provider string
	Language Language
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed (%s, %s): %v", e.Provider, e.Language, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// PlaybackIOError reports a temp file that could not be read back or deleted.
// It is logged and never aborts playback on its own.
type PlaybackIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *PlaybackIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PlaybackIOError) Unwrap() error {
	return e.Err
}
