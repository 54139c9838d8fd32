// Package session owns the per-browser playback sessions: one sequencer,
// one scratch directory and one event hub each, kept in an idle-expiring
// registry.
package session
