package playback

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"codeberg.org/snonux/korengpro/internal/audio"
)

// MixerPlayer plays WAV clips in process through oto. Only one oto context
// may exist per process, so it is created for the first clip's sample rate;
// mp3 clips and clips with another layout go to the fallback player.
type MixerPlayer struct {
	fallback Player
	logger   *log.Logger

	mu      sync.Mutex
	context *oto.Context
	layout  audio.PCMInfo
	initErr error
}

// NewMixerPlayer creates a mixer that hands unsupported clips to fallback.
func NewMixerPlayer(fallback Player, logger *log.Logger) *MixerPlayer {
	return &MixerPlayer{fallback: fallback, logger: logger}
}

func (m *MixerPlayer) otoContext(info audio.PCMInfo) (*oto.Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.context == nil && m.initErr == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   info.SampleRate,
			ChannelCount: info.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			m.initErr = fmt.Errorf("failed to create oto context: %w", err)
			m.logger.Warn("Audio mixer unavailable, using fallback player", "err", m.initErr)
			return nil, false
		}
		<-ready
		m.context = ctx
		m.layout = info
	}
	if m.context == nil || m.layout != info {
		return nil, false
	}
	return m.context, true
}

// Play blocks until the clip has been played or ctx is cancelled.
func (m *MixerPlayer) Play(ctx context.Context, clip *audio.Clip) error {
	if clip.Format != audio.FormatWAV {
		return m.fallback.Play(ctx, clip)
	}

	pcm, info, err := audio.DecodeWAV(clip.Data)
	if err != nil || info.BitsPerSample != 16 {
		return m.fallback.Play(ctx, clip)
	}

	otoCtx, ok := m.otoContext(info)
	if !ok {
		return m.fallback.Play(ctx, clip)
	}

	// pcm must stay referenced until the player is closed
	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
