package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"codeberg.org/snonux/korengpro/internal/audio"
)

// DwellPlayer does not produce sound; it waits as long as the clip would
// take to speak.
type DwellPlayer struct {
	Policy DwellPolicy
}

// Play sleeps for the estimated duration of the clip text.
func (p DwellPlayer) Play(ctx context.Context, clip *audio.Clip) error {
	return sleepCtx(ctx, p.Policy.Estimate(clip.Text))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LookPathFunc resolves a binary name, exec.LookPath in production.
type LookPathFunc func(string) (string, error)

// LocalPlayer plays clips on the server through an external command line
// player. The clip is written to dir and removed afterwards.
type LocalPlayer struct {
	dir      string
	goos     string
	lookPath LookPathFunc
	logger   *log.Logger
}

// NewLocalPlayer creates a player writing its temp files into dir.
func NewLocalPlayer(dir string, logger *log.Logger) *LocalPlayer {
	return &LocalPlayer{dir: dir, goos: runtime.GOOS, lookPath: exec.LookPath, logger: logger}
}

// Command returns the player command line for file.
func (p *LocalPlayer) Command(file string, format audio.Format) ([]string, error) {
	switch p.goos {
	case "darwin":
		return []string{"afplay", file}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		// mpg123 first since it handles MP3 files best
		candidates := [][]string{
			{"mpg123", "-q", file},
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", file},
			{"play", "-q", file},
			{"paplay", file},
		}
		if format == audio.FormatWAV {
			// mpg123 cannot decode WAV
			candidates = append(candidates[1:], []string{"aplay", "-q", file})
		}
		for _, c := range candidates {
			if _, err := p.lookPath(c[0]); err == nil {
				return c, nil
			}
		}
		return nil, fmt.Errorf("no audio player found. Install mpg123, ffplay, sox, paplay, or aplay")
	case "windows":
		if _, err := p.lookPath("ffplay"); err == nil {
			return []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", file}, nil
		}
		return nil, fmt.Errorf("no audio player found. Install ffplay")
	default:
		return nil, fmt.Errorf("unsupported platform: %s", p.goos)
	}
}

// Play writes the clip to disk and blocks until the player exits. A
// cancelled ctx kills the player process.
func (p *LocalPlayer) Play(ctx context.Context, clip *audio.Clip) error {
	f, err := os.CreateTemp(p.dir, "play-*"+clip.Format.Ext())
	if err != nil {
		return fmt.Errorf("failed to create clip file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("Failed to delete played clip", "err", &audio.PlaybackIOError{Op: "remove", Path: path, Err: err})
		}
	}()

	if _, err := f.Write(clip.Data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write clip file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write clip file: %w", err)
	}

	args, err := p.Command(path, clip.Format)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", args[0], err, out)
	}
	return nil
}
