package playback

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

// memSource is an in-memory workbook.Source. Each section holds the
// playable rows as {source, target}.
type memSource struct {
	names []string
	rows  map[string][][2]string
}

func newMemSource(sections ...string) *memSource {
	return &memSource{rows: map[string][][2]string{}, names: sections}
}

func (m *memSource) with(section string, rows ...[2]string) *memSource {
	if _, ok := m.rows[section]; !ok && !contains(m.names, section) {
		m.names = append(m.names, section)
	}
	m.rows[section] = rows
	return m
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *memSource) Sections() []string {
	return append([]string(nil), m.names...)
}

func (m *memSource) MaxRow(section string) (int, error) {
	rows, ok := m.rows[section]
	if !ok {
		return 0, workbook.ErrUnknownSection
	}
	return len(rows) + 1, nil
}

func (m *memSource) Row(section string, index int) (workbook.Row, error) {
	rows, ok := m.rows[section]
	if !ok {
		return workbook.Row{}, workbook.ErrUnknownSection
	}
	if index == workbook.HeaderRow {
		return workbook.Row{Index: 1, Source: "Korean", Target: "English"}, nil
	}
	if index < workbook.FirstPlayableRow || index > len(rows)+1 {
		return workbook.Row{}, fmt.Errorf("%w: %d", workbook.ErrRowOutOfRange, index)
	}
	r := rows[index-2]
	return workbook.Row{Index: index, Source: r[0], Target: r[1]}, nil
}

// numberedRows returns n rows "소스 i" / "target i".
func numberedRows(n int) [][2]string {
	rows := make([][2]string, n)
	for i := range rows {
		rows[i] = [2]string{fmt.Sprintf("소스 %d", i+2), fmt.Sprintf("target %d", i+2)}
	}
	return rows
}

type synthCall struct {
	text string
	lang audio.Language
}

// recordingSynth records every call and returns a clip for non-blank text.
// If block is set the call waits until ctx is done, after signalling started.
type recordingSynth struct {
	mu      sync.Mutex
	calls   []synthCall
	err     error
	block   bool
	started chan synthCall
}

func (r *recordingSynth) Synthesize(ctx context.Context, text string, lang audio.Language) (*audio.Clip, error) {
	r.mu.Lock()
	r.calls = append(r.calls, synthCall{text, lang})
	block, synthErr := r.block, r.err
	r.mu.Unlock()

	text, err := audio.ValidateText(text)
	if err != nil {
		return nil, err
	}

	if r.started != nil {
		r.started <- synthCall{text, lang}
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if synthErr != nil {
		return nil, synthErr
	}
	return &audio.Clip{ID: "clip", Text: text, Language: lang, Format: audio.FormatMP3, Data: []byte{0xFF}}, nil
}

func (r *recordingSynth) snapshot() []synthCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]synthCall(nil), r.calls...)
}

// recordingPlayer records the clips it was asked to play.
type recordingPlayer struct {
	mu    sync.Mutex
	texts []string
}

func (p *recordingPlayer) Play(ctx context.Context, clip *audio.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, clip.Text)
	return ctx.Err()
}

func (p *recordingPlayer) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

// eventLog collects events from the listener.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

// stepUntilIdle steps until the sequencer stops or limit steps were taken.
func stepUntilIdle(s *Sequencer, limit int) int {
	steps := 0
	for s.Snapshot().IsPlaying && steps < limit {
		_ = s.Step(context.Background())
		steps++
	}
	return steps
}
