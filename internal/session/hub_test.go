package session

import (
	"testing"

	"codeberg.org/snonux/korengpro/internal/playback"
)

func TestHub(t *testing.T) {
	hub := NewHub()
	a, unsubA := hub.Subscribe(1)
	b, _ := hub.Subscribe(1)

	if hub.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", hub.Len())
	}

	hub.Publish(playback.Event{Kind: playback.EventState})
	// b is full now, the second event is dropped for it
	hub.Publish(playback.Event{Kind: playback.EventText})

	if ev := <-a; ev.Kind != playback.EventState {
		t.Errorf("a got %s", ev.Kind)
	}
	if ev := <-b; ev.Kind != playback.EventState {
		t.Errorf("b got %s", ev.Kind)
	}

	unsubA()
	unsubA()
	if _, ok := <-a; ok {
		t.Error("a still open after unsubscribe")
	}

	hub.Close()
	if _, ok := <-b; ok {
		t.Error("b still open after Close")
	}

	late, _ := hub.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}

func TestHubDropsStaleEvents(t *testing.T) {
	hub := NewHub()
	events, _ := hub.Subscribe(4)

	stopped := playback.Event{Seq: 5, Kind: playback.EventState}
	text := playback.Event{Seq: 4, Kind: playback.EventText, State: playback.PlaybackState{IsPlaying: true}}

	if !hub.Publish(stopped) {
		t.Fatal("Publish(seq 5) dropped")
	}
	if hub.Publish(text) {
		t.Error("Publish(seq 4) after seq 5 was delivered")
	}
	if hub.Publish(stopped) {
		t.Error("duplicate seq was delivered")
	}

	if ev := <-events; ev.Seq != 5 || ev.State.IsPlaying {
		t.Errorf("got %+v, want the stop state", ev)
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}
