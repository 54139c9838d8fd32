package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/playback"
	"codeberg.org/snonux/korengpro/internal/store"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

// Session is one browser's playback context.
type Session struct {
	ID        string
	Sequencer *playback.Sequencer
	Source    workbook.Source
	Created   time.Time

	hub     *Hub
	browser *BrowserPlayer
	scratch *audio.Scratch
	store   *store.Store
	logger  *log.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	saveMu    sync.Mutex
	lastSaved store.Position
	savedSeq  uint64
}

// Subscribe returns the session's event stream.
func (s *Session) Subscribe() (<-chan playback.Event, func()) {
	return s.hub.Subscribe(32)
}

// Clip returns the clip in flight for the page to fetch.
func (s *Session) Clip(id string) (*audio.Clip, bool) {
	if s.browser == nil {
		return nil, false
	}
	return s.browser.Clip(id)
}

// Ack forwards the page's ended notification.
func (s *Session) Ack(id string) bool {
	if s.browser == nil {
		return false
	}
	return s.browser.Ack(id)
}

// BrowserPlayback reports whether clips are played by the page.
func (s *Session) BrowserPlayback() bool {
	return s.browser != nil
}

func (s *Session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		if err := s.Sequencer.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Playback loop ended", "err", err)
		}
	}()
}

func (s *Session) onEvent(ev playback.Event) {
	if !s.hub.Publish(ev) {
		s.logger.Debug("Dropped stale event", "kind", ev.Kind, "seq", ev.Seq)
		return
	}
	switch ev.Kind {
	case playback.EventState, playback.EventFinished, playback.EventError:
		s.persist(ev)
	}
}

// persist writes the position when it changed since the last save. Events
// older than the last saved one are ignored.
func (s *Session) persist(ev playback.Event) {
	if s.store == nil {
		return
	}
	state := ev.State
	pos := store.Position{
		SessionID: s.ID,
		Section:   state.ActiveSection,
		Index:     state.CurrentIndex,
		Repeat:    state.RepeatEnabled,
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if ev.Seq != 0 && ev.Seq <= s.savedSeq {
		return
	}
	s.savedSeq = max(s.savedSeq, ev.Seq)
	if pos == s.lastSaved {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, pos); err != nil {
		s.logger.Warn("Failed to persist position", "err", err)
		return
	}
	s.lastSaved = pos
}

func (s *Session) restore() {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pos, ok, err := s.store.Load(ctx, s.ID)
	if err != nil {
		s.logger.Warn("Failed to load saved position", "err", err)
		return
	}
	if !ok {
		return
	}
	s.Sequencer.Restore(playback.PlaybackState{
		ActiveSection: pos.Section,
		CurrentIndex:  pos.Index,
		RepeatEnabled: pos.Repeat,
	})
	s.logger.Info("Restored position", "section", pos.Section, "row", pos.Index)
}

func (s *Session) clearScratch() {
	if err := s.scratch.Clear(); err != nil {
		s.logger.Warn("Failed to clear temp files", "err", err)
	}
}

// Close stops playback, ends the loop and removes the temp directory.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Sequencer.Stop()
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		if err := s.scratch.Close(); err != nil {
			s.logger.Warn("Failed to remove temp directory", "err", err)
		}
		s.hub.Close()
		s.logger.Debug("Session closed")
	})
}
