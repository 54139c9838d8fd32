package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/playback"
)

// DefaultGrace is added to the dwell estimate before the browser player
// gives up waiting for the page's ended acknowledgement.
const DefaultGrace = 3 * time.Second

// BrowserPlayer hands clips to the page. Play publishes a clip event and
// blocks until the page reports the audio element ended, or until the dwell
// estimate plus grace has passed.
type BrowserPlayer struct {
	publish func(playback.Event)
	state   func() playback.Event
	dwell   playback.DwellPolicy
	grace   time.Duration
	logger  *log.Logger

	mu      sync.Mutex
	current *audio.Clip
	acks    chan string
}

// NewBrowserPlayer creates a player publishing through publish. state
// supplies the surrounding playback state for clip events.
func NewBrowserPlayer(publish func(playback.Event), state func() playback.Event, dwell playback.DwellPolicy, grace time.Duration, logger *log.Logger) *BrowserPlayer {
	return &BrowserPlayer{
		publish: publish,
		state:   state,
		dwell:   dwell,
		grace:   grace,
		logger:  logger,
		acks:    make(chan string, 4),
	}
}

// Play implements playback.Player.
func (b *BrowserPlayer) Play(ctx context.Context, clip *audio.Clip) error {
	// Drop acks for earlier clips
	for drained := false; !drained; {
		select {
		case <-b.acks:
		default:
			drained = true
		}
	}

	b.mu.Lock()
	b.current = clip
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.current = nil
		b.mu.Unlock()
	}()

	wait := b.dwell.Estimate(clip.Text) + b.grace
	ev := b.state()
	ev.Kind = playback.EventClip
	ev.ClipID = clip.ID
	ev.ClipFormat = string(clip.Format)
	ev.Dwell = wait
	ev.DwellMS = wait.Milliseconds()
	b.publish(ev)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-b.acks:
			if id == clip.ID {
				return nil
			}
		case <-timer.C:
			b.logger.Debug("No ended acknowledgement, continuing on dwell estimate", "clip", clip.ID)
			return nil
		}
	}
}

// Clip returns the clip currently being played if its id matches.
func (b *BrowserPlayer) Clip(id string) (*audio.Clip, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || b.current.ID != id {
		return nil, false
	}
	return b.current, true
}

// Ack records that the page finished playing clip id. It reports whether
// id was the clip in flight.
func (b *BrowserPlayer) Ack(id string) bool {
	b.mu.Lock()
	current := b.current != nil && b.current.ID == id
	b.mu.Unlock()
	if !current {
		return false
	}

	select {
	case b.acks <- id:
	default:
	}
	return true
}
