package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/playback"
	"codeberg.org/snonux/korengpro/internal/store"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

const (
	PlayerBrowser = "browser"
	PlayerLocal   = "local"
	// PlayerDwell shows the texts without sound, pausing for the
	// estimated speaking time of each clip.
	PlayerDwell = "dwell"
)

// Loader loads a fresh workbook snapshot.
type Loader interface {
	Load() (*workbook.Workbook, error)
}

// Config wires the shared pieces every session is built from.
type Config struct {
	Loader      Loader
	Synthesizer *audio.Synthesizer
	Player      string          // PlayerBrowser, PlayerLocal or PlayerDwell
	LocalPlayer playback.Player // shared server side player for PlayerLocal
	TempRoot    string
	IdleTimeout time.Duration
	Pause       time.Duration
	Dwell       playback.DwellPolicy
	Grace       time.Duration
	Store       *store.Store
	Logger      *log.Logger
}

// Manager is the registry of live sessions. Sessions idle for longer than
// IdleTimeout are evicted and closed.
type Manager struct {
	cfg      Config
	sessions *cache.Cache
	mu       sync.Mutex
}

// NewManager creates a registry.
func NewManager(cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.Player == "" {
		cfg.Player = PlayerBrowser
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}

	m := &Manager{
		cfg:      cfg,
		sessions: cache.New(cfg.IdleTimeout, cfg.IdleTimeout/2),
	}
	m.sessions.OnEvicted(func(id string, v interface{}) {
		cfg.Logger.Info("Session expired", "session", id)
		go v.(*Session).Close()
	})
	return m
}

// Get returns the live session id and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, false
	}
	m.sessions.SetDefault(id, v)
	return v.(*Session), true
}

// Open returns the live session id or creates one. An empty or unknown id
// gets a new session; unknown ids are kept so a saved position can be
// restored. Workbook load errors are returned unchanged.
func (m *Manager) Open(id string) (*Session, error) {
	if s, ok := m.Get(id); ok {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Get(id); ok {
		return s, nil
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s, err := m.create(id)
	if err != nil {
		return nil, err
	}
	m.sessions.SetDefault(id, s)
	return s, nil
}

func (m *Manager) create(id string) (*Session, error) {
	wb, err := m.cfg.Loader.Load()
	if err != nil {
		return nil, err
	}

	logger := m.cfg.Logger.With("session", id[:8])
	scratch, err := audio.NewScratch(filepath.Join(m.cfg.TempRoot, "tmp"), id)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      id,
		Source:  wb,
		Created: time.Now(),
		hub:     NewHub(),
		scratch: scratch,
		store:   m.cfg.Store,
		logger:  logger,
		done:    make(chan struct{}),
	}

	var player playback.Player
	switch m.cfg.Player {
	case PlayerLocal:
		if m.cfg.LocalPlayer == nil {
			_ = scratch.Close()
			return nil, fmt.Errorf("local playback requested without a local player")
		}
		player = m.cfg.LocalPlayer
	case PlayerBrowser:
		publish := func(ev playback.Event) { s.hub.Publish(ev) }
		s.browser = NewBrowserPlayer(publish, func() playback.Event {
			return s.Sequencer.View()
		}, m.cfg.Dwell, m.cfg.Grace, logger)
		player = s.browser
	case PlayerDwell:
		player = playback.DwellPlayer{Policy: m.cfg.Dwell}
	default:
		_ = scratch.Close()
		return nil, fmt.Errorf("unknown player %q", m.cfg.Player)
	}

	opts := []playback.Option{
		playback.WithListener(s.onEvent),
		playback.WithStopHook(s.clearScratch),
		playback.WithLogger(logger),
	}
	if m.cfg.Pause > 0 {
		opts = append(opts, playback.WithPause(m.cfg.Pause))
	}
	s.Sequencer = playback.NewSequencer(wb, m.cfg.Synthesizer.WithScratch(scratch), player, opts...)

	s.restore()
	s.start()
	logger.Info("Session created", "workbook", wb.Path(), "sections", len(wb.Sections()))
	return s, nil
}

// Remove closes and forgets session id.
func (m *Manager) Remove(id string) {
	m.sessions.Delete(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.ItemCount()
}

// Close closes every session, waiting for their playback loops to end.
func (m *Manager) Close(ctx context.Context) error {
	items := m.sessions.Items()
	m.sessions.OnEvicted(nil)
	m.sessions.Flush()

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(item.Object.(*Session))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
