package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"codeberg.org/snonux/korengpro/internal/playback"
	"codeberg.org/snonux/korengpro/internal/session"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

// CookieName holds the session id.
const CookieName = "korengpro_session"

//go:embed templates/*.html
var templateFS embed.FS

// Config configures the web App.
type Config struct {
	Sessions     *session.Manager
	WorkbookPath string
	Heartbeat    time.Duration
	Logger       *log.Logger
}

// App implements server.Handler for the player UI.
type App struct {
	cfg  Config
	mux  *http.ServeMux
	tmpl *template.Template
}

// New creates the App and parses the embedded templates.
func New(cfg Config) (*App, error) {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	funcs := template.FuncMap{"max1": func(n int) int { return max(1, n) }}
	tmpl, err := template.New("korengpro").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, mux: http.NewServeMux(), tmpl: tmpl}
	a.mux.HandleFunc("GET /{$}", a.handleIndex)
	a.mux.HandleFunc("POST /upload", a.handleUpload)
	a.mux.HandleFunc("GET /api/state", a.handleState)
	a.mux.HandleFunc("POST /api/section", a.handleSection)
	a.mux.HandleFunc("POST /api/repeat", a.handleRepeat)
	a.mux.HandleFunc("POST /api/seek", a.handleSeek)
	a.mux.HandleFunc("POST /api/start", a.handleStart)
	a.mux.HandleFunc("POST /api/stop", a.handleStop)
	a.mux.HandleFunc("POST /api/ended", a.handleEnded)
	a.mux.HandleFunc("GET /api/events", a.handleEvents)
	a.mux.HandleFunc("GET /api/clips/{id}", a.handleClip)
	return a, nil
}

// Routes lists the patterns served by the App.
func (a *App) Routes() []string {
	return []string{
		"GET /{$}",
		"POST /upload",
		"GET /api/state",
		"POST /api/section",
		"POST /api/repeat",
		"POST /api/seek",
		"POST /api/start",
		"POST /api/stop",
		"POST /api/ended",
		"GET /api/events",
		"GET /api/clips/{id}",
	}
}

// ServeHTTP dispatches to the App's own route table.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// stateResponse is the JSON view of a session.
type stateResponse struct {
	playback.PlaybackState
	Position        int      `json:"position"`
	Total           int      `json:"total"`
	SourceText      string   `json:"source_text"`
	TargetText      string   `json:"target_text"`
	Sections        []string `json:"sections"`
	BrowserPlayback bool     `json:"browser_playback"`
}

func newStateResponse(s *session.Session) stateResponse {
	view := s.Sequencer.View()
	return stateResponse{
		PlaybackState:   view.State,
		Position:        view.State.Position(),
		Total:           view.State.Total(),
		SourceText:      view.SourceText,
		TargetText:      view.TargetText,
		Sections:        s.Sequencer.Sections(),
		BrowserPlayback: s.BrowserPlayback(),
	}
}

// session returns the caller's session, creating it and setting the cookie
// when needed.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	var id string
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}

	s, err := a.cfg.Sessions.Open(id)
	if err != nil {
		return nil, err
	}
	if s.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		})
	}
	return s, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, workbook.ErrNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, workbook.ErrUnknownSection):
		status = http.StatusNotFound
	case errors.Is(err, playback.ErrBusy), errors.Is(err, playback.ErrNoSection), errors.Is(err, playback.ErrNoRows):
		status = http.StatusConflict
	}
	var loadErr *workbook.LoadError
	if errors.As(err, &loadErr) {
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		a.cfg.Logger.Warn("Request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

type pageData struct {
	Version string
	State   stateResponse
	Error   string
	Path    string
}
