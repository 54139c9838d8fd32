package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/snonux/korengpro/internal"
)

const (
	removeAttempts = 3
	removeBackoff  = 100 * time.Millisecond
)

// Scratch is a per-session directory for provider output files.
type Scratch struct {
	dir     string
	backoff time.Duration
}

// NewScratch creates parent/id and returns a Scratch rooted there.
func NewScratch(parent, id string) (*Scratch, error) {
	dir := filepath.Join(parent, internal.SanitizeFilename(id))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Scratch{dir: dir, backoff: removeBackoff}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string {
	return s.dir
}

// Path returns a fresh file name for text spoken in lang.
func (s *Scratch) Path(lang Language, text string, format Format) string {
	name := fmt.Sprintf("%s_%s%s", lang, internal.GenerateClipID(text), format.Ext())
	return filepath.Join(s.dir, name)
}

// ReadBack reads a provider output file.
func (s *Scratch) ReadBack(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PlaybackIOError{Op: "read", Path: path, Err: err}
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	return data, nil
}

// Remove deletes path, retrying a few times since players on some
// platforms hold the file briefly. A missing file is not an error.
func (s *Scratch) Remove(path string) error {
	var err error
	for attempt := 0; attempt < removeAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.backoff)
		}
		err = os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	return &PlaybackIOError{Op: "remove", Path: path, Err: err}
}

// Clear removes every file in the scratch directory but keeps the directory.
func (s *Scratch) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &PlaybackIOError{Op: "list", Path: s.dir, Err: err}
	}

	var errs []error
	for _, entry := range entries {
		if err := s.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close removes the scratch directory.
func (s *Scratch) Close() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return &PlaybackIOError{Op: "remove", Path: s.dir, Err: err}
	}
	return nil
}
