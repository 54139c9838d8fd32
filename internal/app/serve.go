package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"codeberg.org/snonux/korengpro/internal/playback"
	"codeberg.org/snonux/korengpro/internal/server"
	"codeberg.org/snonux/korengpro/internal/session"
	"codeberg.org/snonux/korengpro/internal/store"
	"codeberg.org/snonux/korengpro/internal/web"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

// positionRetention is how long saved positions survive without a visit.
const positionRetention = 90 * 24 * time.Hour

// Stack is the HTTP side of a serve run.
type Stack struct {
	Handler  http.Handler
	Sessions *session.Manager
	store    *store.Store
}

// Close closes every session and the position store.
func (s *Stack) Close(ctx context.Context) error {
	err := s.Sessions.Close(ctx)
	if s.store != nil {
		err = errors.Join(err, s.store.Close())
	}
	return err
}

// NewStack builds the session manager, position store and HTTP handler.
func (a *App) NewStack(ctx context.Context) (*Stack, error) {
	if err := os.MkdirAll(a.cfg.StateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	st, err := store.Open(filepath.Join(a.cfg.StateDir, "positions.db"))
	if err != nil {
		return nil, err
	}
	if n, err := st.Prune(ctx, time.Now().Add(-positionRetention)); err != nil {
		a.logger.Warn("Failed to prune saved positions", "err", err)
	} else if n > 0 {
		a.logger.Info("Pruned saved positions", "count", n)
	}

	cfg := session.Config{
		Loader:      workbook.Loader{Path: a.cfg.WorkbookPath},
		Synthesizer: a.synth,
		Player:      a.cfg.Player,
		TempRoot:    a.cfg.StateDir,
		IdleTimeout: a.cfg.IdleTimeout,
		Pause:       a.cfg.Pause,
		Dwell:       playback.DefaultDwellPolicy(a.cfg.Audio.Speed),
		Store:       st,
		Logger:      a.logger,
	}
	if a.cfg.Player == session.PlayerLocal {
		cfg.LocalPlayer = a.player()
	}
	manager := session.NewManager(cfg)

	webApp, err := web.New(web.Config{
		Sessions:     manager,
		WorkbookPath: a.cfg.WorkbookPath,
		Logger:       a.logger,
	})
	if err != nil {
		_ = manager.Close(ctx)
		_ = st.Close()
		return nil, err
	}

	router := server.NewBasicRouter()
	router.Use(server.Recover(a.logger), server.Logging(a.logger))
	router.Handler(webApp)

	return &Stack{Handler: router, Sessions: manager, store: st}, nil
}

// Serve runs the web player until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	stack, err := a.NewStack(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := stack.Close(closeCtx); err != nil {
			a.logger.Warn("Shutdown incomplete", "err", err)
		}
	}()

	go a.watchWorkbook(ctx)

	if !(workbook.Loader{Path: a.cfg.WorkbookPath}).Exists() {
		a.logger.Warn("Workbook missing, the page will ask for an upload", "path", a.cfg.WorkbookPath)
	}
	a.logger.Info("Serving", "addr", a.cfg.Addr, "player", a.cfg.Player, "provider", a.provider.Name())
	return server.New(a.cfg.Addr, stack.Handler, a.logger).Run(ctx)
}

// watchWorkbook logs workbook replacements. Sessions keep their snapshot;
// a page reload after an upload picks up the new file.
func (a *App) watchWorkbook(ctx context.Context) {
	err := workbook.Watch(ctx, a.cfg.WorkbookPath, func(op fsnotify.Op) {
		a.logger.Info("Workbook changed on disk", "path", a.cfg.WorkbookPath, "op", op.String())
	})
	if err != nil {
		a.logger.Warn("Not watching workbook", "err", err)
	}
}
