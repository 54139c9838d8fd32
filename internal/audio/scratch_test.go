package audio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/korengpro/internal/testutil"
)

func TestScratchPath(t *testing.T) {
	sc := newTestScratch(t)

	path := sc.Path(Source, "안녕하세요", FormatMP3)
	if filepath.Dir(path) != sc.Dir() {
		t.Errorf("Path() = %s, want inside %s", path, sc.Dir())
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "source_") || !strings.HasSuffix(base, ".mp3") {
		t.Errorf("unexpected file name %s", base)
	}
}

func TestScratchRemove(t *testing.T) {
	sc := newTestScratch(t)
	path := filepath.Join(sc.Dir(), "a.mp3")
	testutil.CreateTestFile(t, path, []byte("x"))

	if err := sc.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	testutil.AssertFileNotExists(t, path)

	// Missing files are fine
	if err := sc.Remove(path); err != nil {
		t.Errorf("Remove() on missing file = %v", err)
	}
}

func TestScratchRemoveFailure(t *testing.T) {
	sc := newTestScratch(t)

	// A non-empty directory cannot be removed with os.Remove
	dir := filepath.Join(sc.Dir(), "busy")
	testutil.CreateTestFile(t, filepath.Join(dir, "inner"), []byte("x"))

	err := sc.Remove(dir)
	var ioErr *PlaybackIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Remove() error = %v, want *PlaybackIOError", err)
	}
	if ioErr.Op != "remove" || ioErr.Path != dir {
		t.Errorf("PlaybackIOError = %+v", ioErr)
	}
}

func TestScratchReadBack(t *testing.T) {
	sc := newTestScratch(t)

	_, err := sc.ReadBack(filepath.Join(sc.Dir(), "missing.mp3"))
	var ioErr *PlaybackIOError
	if !errors.As(err, &ioErr) || ioErr.Op != "read" {
		t.Errorf("ReadBack() error = %v, want read PlaybackIOError", err)
	}

	empty := filepath.Join(sc.Dir(), "empty.mp3")
	testutil.CreateTestFile(t, empty, nil)
	if _, err := sc.ReadBack(empty); !errors.Is(err, ErrNoAudio) {
		t.Errorf("ReadBack(empty) error = %v, want ErrNoAudio", err)
	}
}

func TestScratchClearAndClose(t *testing.T) {
	sc := newTestScratch(t)
	testutil.CreateTestFile(t, filepath.Join(sc.Dir(), "a.mp3"), []byte("a"))
	testutil.CreateTestFile(t, filepath.Join(sc.Dir(), "b.wav"), []byte("b"))

	if err := sc.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	testutil.AssertDirEmpty(t, sc.Dir())

	if err := sc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(sc.Dir()); !os.IsNotExist(err) {
		t.Errorf("scratch dir still exists after Close: %v", err)
	}
	if err := sc.Clear(); err != nil {
		t.Errorf("Clear() after Close = %v", err)
	}
}
