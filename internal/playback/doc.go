// Package playback holds the per-session state machine that walks a section
// row by row, speaking the source text and then the target text.
//
// A Sequencer is driven by one Run goroutine. Transport commands (Start, Stop,
// SelectSection, SetRepeat, Seek) may be called from any goroutine; they only
// mutate state under the sequencer mutex. Stop bumps a generation counter so
// that a synthesis result arriving afterwards is discarded, and cancels the
// clip that is currently playing.
package playback
