package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"codeberg.org/snonux/korengpro/internal"
	"codeberg.org/snonux/korengpro/internal/playback"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

func (a *App) render(w http.ResponseWriter, status int, name string, data pageData) {
	data.Version = internal.Version
	data.Path = a.cfg.WorkbookPath
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := a.tmpl.ExecuteTemplate(w, name, data); err != nil {
		a.cfg.Logger.Error("Failed to render page", "template", name, "err", err)
	}
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		var loadErr *workbook.LoadError
		switch {
		case errors.Is(err, workbook.ErrNotFound):
			a.render(w, http.StatusOK, "upload.html", pageData{})
		case errors.As(err, &loadErr):
			a.render(w, http.StatusOK, "upload.html", pageData{Error: err.Error()})
		default:
			a.cfg.Logger.Error("Failed to open session", "err", err)
			http.Error(w, "session unavailable", http.StatusInternalServerError)
		}
		return
	}
	a.render(w, http.StatusOK, "index.html", pageData{State: newStateResponse(s)})
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, workbook.MaxUploadSize+1<<20)
	file, header, err := r.FormFile("workbook")
	if err != nil {
		a.render(w, http.StatusBadRequest, "upload.html", pageData{Error: "choose an .xlsx file to upload"})
		return
	}
	defer file.Close()

	result, err := workbook.SaveUpload(a.cfg.WorkbookPath, file)
	if err != nil {
		a.cfg.Logger.Warn("Rejected workbook upload", "file", header.Filename, "err", err)
		a.render(w, http.StatusBadRequest, "upload.html", pageData{Error: err.Error()})
		return
	}
	a.cfg.Logger.Info("Workbook replaced",
		"file", header.Filename,
		"size", humanize.Bytes(uint64(result.Size)),
		"sections", len(result.Sections),
		"archived", result.Archived)

	// The caller's session holds the old snapshot; the next request reopens it.
	if c, err := r.Cookie(CookieName); err == nil {
		a.cfg.Sessions.Remove(c.Value)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleState(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s))
}

func (a *App) handleSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Section string `json:"section"`
	}
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := s.Sequencer.SelectSection(req.Section); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s))
}

func (a *App) handleRepeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	s.Sequencer.SetRepeat(req.Enabled)
	writeJSON(w, http.StatusOK, newStateResponse(s))
}

func (a *App) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position int `json:"position"`
	}
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := s.Sequencer.Seek(req.Position); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s))
}

func (a *App) handleStart(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := s.Sequencer.Start(); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s))
}

func (a *App) handleStop(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	s.Sequencer.Stop()
	writeJSON(w, http.StatusOK, newStateResponse(s))
}

func (a *App) handleEnded(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClipID string `json:"clip_id"`
	}
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": s.Ack(req.ClipID)})
}

func (a *App) handleClip(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	clip, ok := s.Clip(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "clip not found"})
		return
	}
	w.Header().Set("Content-Type", clip.Format.MIMEType())
	w.Header().Set("Content-Length", fmt.Sprint(len(clip.Data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(clip.Data)
}

// handleEvents streams playback events as Server-Sent Events. The first
// event is always the current state so a reconnecting page catches up.
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	view := s.Sequencer.View()
	if err := writeEvent(w, view); err != nil {
		return
	}
	flusher.Flush()
	last := view.Seq

	logger := a.cfg.Logger.With("session", s.ID[:8])
	logger.Debug("Event stream opened")
	defer logger.Debug("Event stream closed")

	heartbeat := time.NewTicker(a.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			// Queued before the initial view
			if ev.Seq <= last {
				continue
			}
			last = ev.Seq
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			// An open stream keeps the session alive.
			a.cfg.Sessions.Get(s.ID)
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev playback.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
