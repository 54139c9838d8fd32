package playback

import "time"

// EventKind tells the presentation layer what changed.
type EventKind string

const (
	EventState    EventKind = "state"
	EventText     EventKind = "text"
	EventClip     EventKind = "clip"
	EventFinished EventKind = "finished"
	EventError    EventKind = "error"
)

// Event is published after every transition. Seq increases with every
// event of a sequencer; a consumer that already saw a higher Seq must
// ignore the event.
type Event struct {
	Seq        uint64        `json:"seq"`
	Kind       EventKind     `json:"kind"`
	State      PlaybackState `json:"state"`
	SourceText string        `json:"source_text"`
	TargetText string        `json:"target_text"`
	ClipID     string        `json:"clip_id,omitempty"`
	ClipFormat string        `json:"clip_format,omitempty"`
	Dwell      time.Duration `json:"-"`
	DwellMS    int64         `json:"dwell_ms,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// Listener receives events. It is called without the sequencer lock held
// and must not block for long. Concurrent transitions may deliver events
// out of Seq order.
type Listener func(Event)
