package playback

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"codeberg.org/snonux/korengpro/internal"
	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

// DefaultPause is the gap between the target clip of one row and the source
// clip of the next.
const DefaultPause = 500 * time.Millisecond

var (
	ErrNoSection = errors.New("no section selected")
	ErrNoRows    = errors.New("section has no playable rows")
	ErrBusy      = errors.New("not allowed while playing")
)

// Synthesizer turns text into a clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang audio.Language) (*audio.Clip, error)
}

// Player plays a clip and returns when it is done or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, clip *audio.Clip) error
}

// Sequencer is the playback state machine of one session.
type Sequencer struct {
	source workbook.Source
	synth  Synthesizer
	player Player

	pause    time.Duration
	listener Listener
	onStop   func()
	logger   *log.Logger

	mu         sync.Mutex
	state      PlaybackState
	sourceText string
	targetText string
	gen        uint64
	seq        uint64
	cancelPlay context.CancelFunc
	wake       chan struct{}
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithPause sets the inter-row pause.
func WithPause(d time.Duration) Option {
	return func(s *Sequencer) { s.pause = d }
}

// WithListener registers the event listener.
func WithListener(l Listener) Option {
	return func(s *Sequencer) { s.listener = l }
}

// WithStopHook runs fn after every Stop, outside the lock.
func WithStopHook(fn func()) Option {
	return func(s *Sequencer) { s.onStop = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// NewSequencer creates an idle sequencer over source.
func NewSequencer(source workbook.Source, synth Synthesizer, player Player, opts ...Option) *Sequencer {
	s := &Sequencer{
		source: source,
		synth:  synth,
		player: player,
		pause:  DefaultPause,
		logger: internal.DiscardLogger(),
		state:  NewPlaybackState(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Sequencer) Snapshot() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns a state event including the texts currently shown.
func (s *Sequencer) View() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventLocked(EventState)
}

// Sections lists the sections of the underlying source.
func (s *Sequencer) Sections() []string {
	return s.source.Sections()
}

// SelectSection switches to name and resets the index. A playing sequencer
// is stopped first.
func (s *Sequencer) SelectSection(name string) error {
	if !slices.Contains(s.source.Sections(), name) {
		return fmt.Errorf("%w: %s", workbook.ErrUnknownSection, name)
	}
	maxRow, err := s.source.MaxRow(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stopped := s.stopLocked()
	s.state.ActiveSection = name
	s.state.MaxRow = maxRow
	s.state.CurrentIndex = workbook.FirstPlayableRow
	s.sourceText, s.targetText = "", ""
	ev := s.eventLocked(EventState)
	s.mu.Unlock()

	if stopped {
		s.afterStop()
	}
	s.emit(ev)
	return nil
}

// SetRepeat toggles wrapping at the end of the section.
func (s *Sequencer) SetRepeat(enabled bool) {
	s.mu.Lock()
	s.state.RepeatEnabled = enabled
	ev := s.eventLocked(EventState)
	s.mu.Unlock()
	s.emit(ev)
}

// Seek moves to the 1-based slider position, clamped to the section.
func (s *Sequencer) Seek(position int) error {
	s.mu.Lock()
	if s.state.IsPlaying {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state.ActiveSection == "" {
		s.mu.Unlock()
		return ErrNoSection
	}
	s.state.CurrentIndex = clampIndex(position+1, s.state.MaxRow)
	s.sourceText, s.targetText = "", ""
	ev := s.eventLocked(EventState)
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// Restore applies a persisted state. Unknown sections are ignored.
func (s *Sequencer) Restore(saved PlaybackState) {
	if saved.ActiveSection != "" {
		if err := s.SelectSection(saved.ActiveSection); err != nil {
			s.logger.Debug("Not restoring section", "section", saved.ActiveSection, "err", err)
			return
		}
	}

	s.mu.Lock()
	s.state.RepeatEnabled = saved.RepeatEnabled
	if s.state.ActiveSection != "" {
		s.state.CurrentIndex = clampIndex(saved.CurrentIndex, s.state.MaxRow)
	}
	ev := s.eventLocked(EventState)
	s.mu.Unlock()
	s.emit(ev)
}

// Start begins playback at the current row. It is a no-op while playing.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.state.IsPlaying {
		s.mu.Unlock()
		return nil
	}
	if s.state.ActiveSection == "" {
		s.mu.Unlock()
		return ErrNoSection
	}
	if s.state.MaxRow < workbook.FirstPlayableRow {
		s.mu.Unlock()
		return ErrNoRows
	}

	s.state.CurrentIndex = clampIndex(s.state.CurrentIndex, s.state.MaxRow)
	s.state.IsPlaying = true
	s.state.Phase = PlayingSource
	s.gen++
	ev := s.eventLocked(EventState)
	s.mu.Unlock()

	s.logger.Info("Playback started", "section", ev.State.ActiveSection, "row", ev.State.CurrentIndex)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.emit(ev)
	return nil
}

// Stop halts playback immediately. The index is not advanced.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	stopped := s.stopLocked()
	ev := s.eventLocked(EventState)
	s.mu.Unlock()

	if stopped {
		s.logger.Info("Playback stopped", "section", ev.State.ActiveSection, "row", ev.State.CurrentIndex)
	}
	s.afterStop()
	s.emit(ev)
}

func (s *Sequencer) stopLocked() bool {
	wasPlaying := s.state.IsPlaying
	s.gen++
	s.state.IsPlaying = false
	s.state.Phase = Idle
	if s.cancelPlay != nil {
		s.cancelPlay()
		s.cancelPlay = nil
	}
	return wasPlaying
}

func (s *Sequencer) afterStop() {
	if s.onStop != nil {
		s.onStop()
	}
}

// Run drives Step while playing and sleeps while idle, until ctx ends.
func (s *Sequencer) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		playing := s.state.IsPlaying
		s.mu.Unlock()

		if !playing {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
			}
			continue
		}

		if err := s.Step(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Step performs exactly one transition of the state machine.
func (s *Sequencer) Step(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.IsPlaying {
		s.mu.Unlock()
		return nil
	}

	switch s.state.Phase {
	case PlayingSource, PlayingTarget:
		return s.stepSpeak(ctx)
	case Advancing:
		return s.stepAdvance(ctx)
	default:
		// IsPlaying with Idle phase cannot happen, recover by restarting the row
		s.state.Phase = PlayingSource
		s.mu.Unlock()
		return nil
	}
}

// stepSpeak shows and speaks one side of the current row. Called with s.mu held.
func (s *Sequencer) stepSpeak(ctx context.Context) error {
	gen := s.gen
	phase := s.state.Phase
	section, index := s.state.ActiveSection, s.state.CurrentIndex

	row, err := s.source.Row(section, index)
	if err != nil {
		ev := s.failLocked(err)
		s.mu.Unlock()
		s.afterStop()
		s.emit(ev)
		return err
	}

	text, lang, next := row.Source, audio.Source, PlayingTarget
	if phase == PlayingSource {
		s.sourceText, s.targetText = row.Source, ""
	} else {
		text, lang, next = row.Target, audio.Target, Advancing
		s.targetText = row.Target
	}

	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelPlay = cancel
	ev := s.eventLocked(EventText)
	s.mu.Unlock()

	s.emit(ev)
	err = s.speak(playCtx, gen, text, lang)

	s.mu.Lock()
	if s.gen != gen {
		// Stopped or restarted meanwhile, the result is stale
		s.mu.Unlock()
		return nil
	}
	s.cancelPlay = nil
	if err != nil {
		if ctx.Err() != nil {
			s.mu.Unlock()
			return ctx.Err()
		}
		ev := s.failLocked(err)
		s.mu.Unlock()
		s.afterStop()
		s.emit(ev)
		return err
	}

	s.state.Phase = next
	ev = s.eventLocked(EventState)
	s.mu.Unlock()
	s.emit(ev)
	return nil
}

// speak synthesizes and plays text. Blank text is skipped without dwell.
func (s *Sequencer) speak(ctx context.Context, gen uint64, text string, lang audio.Language) error {
	if _, err := audio.ValidateText(text); err != nil {
		return nil
	}
	clip, err := s.synth.Synthesize(ctx, text, lang)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stale := s.gen != gen
	s.mu.Unlock()
	if stale {
		return nil
	}

	return s.player.Play(ctx, clip)
}

// stepAdvance moves to the next row, wrapping or halting at the end. Called with s.mu held.
func (s *Sequencer) stepAdvance(ctx context.Context) error {
	gen := s.gen
	next := s.state.CurrentIndex + 1

	if next > s.state.MaxRow {
		if !s.state.RepeatEnabled {
			s.state.IsPlaying = false
			s.state.Phase = Idle
			s.gen++
			ev := s.eventLocked(EventFinished)
			s.mu.Unlock()

			s.logger.Info("Section finished", "section", ev.State.ActiveSection)
			s.afterStop()
			s.emit(ev)
			return nil
		}
		next = workbook.FirstPlayableRow
	}

	s.state.CurrentIndex = next
	pauseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelPlay = cancel
	ev := s.eventLocked(EventState)
	s.mu.Unlock()
	s.emit(ev)

	if s.pause > 0 {
		timer := time.NewTimer(s.pause)
		select {
		case <-pauseCtx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	s.cancelPlay = nil
	if ctx.Err() != nil {
		s.mu.Unlock()
		return ctx.Err()
	}
	s.state.Phase = PlayingSource
	s.mu.Unlock()
	return nil
}

// failLocked forces Idle and builds the error event.
func (s *Sequencer) failLocked(err error) Event {
	s.stopLocked()
	ev := s.eventLocked(EventError)
	ev.Message = err.Error()
	s.logger.Error("Playback step failed", "section", ev.State.ActiveSection, "row", ev.State.CurrentIndex, "err", err)
	return ev
}

// eventLocked stamps a new event. Seq orders events even when listeners
// receive them out of order after the lock is released.
func (s *Sequencer) eventLocked(kind EventKind) Event {
	s.seq++
	return Event{
		Seq:        s.seq,
		Kind:       kind,
		State:      s.state,
		SourceText: s.sourceText,
		TargetText: s.targetText,
	}
}

func (s *Sequencer) emit(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}
