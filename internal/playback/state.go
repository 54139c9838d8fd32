package playback

import (
	"fmt"

	"codeberg.org/snonux/korengpro/internal/workbook"
)

// State is the phase of the sequencer.
type State int

const (
	Idle State = iota
	PlayingSource
	PlayingTarget
	Advancing
)

var stateNames = map[State]string{
	Idle:          "idle",
	PlayingSource: "playing_source",
	PlayingTarget: "playing_target",
	Advancing:     "advancing",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name for JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for k, v := range stateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", string(b))
}

// PlaybackState is the per-session transport state.
type PlaybackState struct {
	CurrentIndex  int    `json:"current_index"`
	IsPlaying     bool   `json:"is_playing"`
	RepeatEnabled bool   `json:"repeat_enabled"`
	ActiveSection string `json:"active_section"`
	Phase         State  `json:"phase"`
	MaxRow        int    `json:"max_row"`
}

// NewPlaybackState returns the state every session starts with.
func NewPlaybackState() PlaybackState {
	return PlaybackState{CurrentIndex: workbook.FirstPlayableRow, Phase: Idle}
}

// Position is the 1-based progress position shown next to the slider.
func (p PlaybackState) Position() int {
	return max(1, p.CurrentIndex-1)
}

// Total is the number of playable rows in the active section.
func (p PlaybackState) Total() int {
	return max(0, p.MaxRow-1)
}

// clampIndex keeps index within [2, max(2, maxRow)].
func clampIndex(index, maxRow int) int {
	upper := max(workbook.FirstPlayableRow, maxRow)
	return min(max(index, workbook.FirstPlayableRow), upper)
}
