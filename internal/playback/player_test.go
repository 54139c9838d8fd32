package playback

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"codeberg.org/snonux/korengpro/internal"
	"codeberg.org/snonux/korengpro/internal/audio"
)

func fakeLookPath(available ...string) LookPathFunc {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestLocalPlayerCommand(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		available []string
		format    audio.Format
		want      string
		wantErr   bool
	}{
		{"darwin", "darwin", nil, audio.FormatMP3, "afplay clip", false},
		{"linux mpg123", "linux", []string{"mpg123", "ffplay"}, audio.FormatMP3, "mpg123 -q clip", false},
		{"linux ffplay", "linux", []string{"ffplay"}, audio.FormatMP3, "ffplay -nodisp -autoexit -loglevel quiet clip", false},
		{"linux wav skips mpg123", "linux", []string{"mpg123", "aplay"}, audio.FormatWAV, "aplay -q clip", false},
		{"linux nothing", "linux", nil, audio.FormatMP3, "", true},
		{"windows ffplay", "windows", []string{"ffplay"}, audio.FormatMP3, "ffplay -nodisp -autoexit -loglevel quiet clip", false},
		{"plan9", "plan9", nil, audio.FormatMP3, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &LocalPlayer{goos: tt.goos, lookPath: fakeLookPath(tt.available...), logger: internal.DiscardLogger()}
			args, err := p.Command("clip", tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Command() = %v, want error", args)
				}
				return
			}
			if err != nil {
				t.Fatalf("Command() error = %v", err)
			}
			if got := strings.Join(args, " "); got != tt.want {
				t.Errorf("Command() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalPlayerCleansUp(t *testing.T) {
	dir := t.TempDir()
	p := &LocalPlayer{dir: dir, goos: "plan9", lookPath: fakeLookPath(), logger: internal.DiscardLogger()}

	err := p.Play(t.Context(), &audio.Clip{Format: audio.FormatMP3, Data: []byte{0xFF}})
	if err == nil {
		t.Fatal("Play() without a player should fail")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp clip left behind: %v", entries)
	}
}

type failingPlayer struct{ calls int }

func (f *failingPlayer) Play(_ context.Context, _ *audio.Clip) error {
	f.calls++
	return errors.New("fallback used")
}

func TestMixerPlayerFallsBackForMP3(t *testing.T) {
	fallback := &failingPlayer{}
	m := NewMixerPlayer(fallback, internal.DiscardLogger())

	_ = m.Play(t.Context(), &audio.Clip{Format: audio.FormatMP3, Data: []byte{0xFF, 0xFB}})
	_ = m.Play(t.Context(), &audio.Clip{Format: audio.FormatWAV, Data: []byte("RIFFbroken")})
	if fallback.calls != 2 {
		t.Errorf("fallback calls = %d, want 2", fallback.calls)
	}
}
