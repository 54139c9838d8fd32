package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/batch"
	"codeberg.org/snonux/korengpro/internal/models"
	"codeberg.org/snonux/korengpro/internal/playback"
	"codeberg.org/snonux/korengpro/internal/translation"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

// PlayOptions controls a terminal playback run.
type PlayOptions struct {
	Repeat bool
	From   int // 1-based sentence position
	Silent bool
}

// Play plays section through the local player, printing each row to out.
// It returns when the section finishes, playback fails or ctx is cancelled.
func (a *App) Play(ctx context.Context, section string, opts PlayOptions, out io.Writer) error {
	wb, err := workbook.Open(a.cfg.WorkbookPath)
	if err != nil {
		return err
	}

	scratch, err := audio.NewScratch(filepath.Join(a.cfg.StateDir, "tmp"), "play-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer scratch.Close()

	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	listener := func(ev playback.Event) {
		switch ev.Kind {
		case playback.EventText:
			if ev.State.Phase == playback.PlayingSource {
				fmt.Fprintf(out, "[%d/%d] %s\n", ev.State.Position(), ev.State.Total(), ev.SourceText)
			} else {
				fmt.Fprintf(out, "        %s\n", ev.TargetText)
			}
		case playback.EventFinished:
			finish(nil)
		case playback.EventError:
			finish(errors.New(ev.Message))
		}
	}

	var player playback.Player
	if opts.Silent {
		player = playback.DwellPlayer{Policy: playback.DefaultDwellPolicy(a.cfg.Audio.Speed)}
	} else {
		player = a.player()
	}

	seq := playback.NewSequencer(wb, a.synth.WithScratch(scratch), player,
		playback.WithPause(a.cfg.Pause),
		playback.WithListener(listener),
		playback.WithStopHook(func() { _ = scratch.Clear() }),
		playback.WithLogger(a.logger),
	)
	if err := seq.SelectSection(section); err != nil {
		return fmt.Errorf("%w; available: %s", err, strings.Join(wb.Sections(), ", "))
	}
	seq.SetRepeat(opts.Repeat)
	if opts.From > 1 {
		if err := seq.Seek(opts.From); err != nil {
			return err
		}
	}
	if err := seq.Start(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = seq.Run(runCtx)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		seq.Stop()
		err = nil
	}
	cancel()
	<-stopped
	return err
}

// Sections prints each section and its number of playable rows.
func (a *App) Sections(out io.Writer) error {
	wb, err := workbook.Open(a.cfg.WorkbookPath)
	if err != nil {
		return err
	}
	for _, name := range wb.Sections() {
		rows, err := wb.PlayableRows(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-20s %d\n", name, rows)
	}
	return nil
}

// Models prints the OpenAI models available to the configured key.
func (a *App) Models(ctx context.Context, out io.Writer) error {
	catalog, err := models.NewLister(a.cfg.Audio.OpenAIKey).List(ctx)
	if err != nil {
		return err
	}
	catalog.Print(out)
	return nil
}

// Say synthesizes text into the file at output.
func (a *App) Say(ctx context.Context, text string, lang audio.Language, output string) error {
	if !lang.Valid() {
		return fmt.Errorf("unknown language %q, want source or target", lang)
	}

	scratch, err := audio.NewScratch(filepath.Join(a.cfg.StateDir, "tmp"), "say-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer scratch.Close()

	clip, err := a.synth.WithScratch(scratch).Synthesize(ctx, text, lang)
	if err != nil {
		return err
	}

	if ext := filepath.Ext(output); ext != "" && ext != clip.Format.Ext() {
		a.logger.Warn("Output extension does not match the audio format",
			"file", output, "format", clip.Format)
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, clip.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	a.logger.Info("Clip written",
		"file", output,
		"provider", a.provider.Name(),
		"size", humanize.Bytes(uint64(len(clip.Data))))
	return nil
}

// ImportResult summarizes an Import run.
type ImportResult struct {
	FirstRow   int
	Rows       int
	Incomplete int // rows written with one side empty
}

// Import appends the pairs of a batch file to section. With translate set,
// missing sides are filled in first.
func (a *App) Import(ctx context.Context, file, section string, translate bool) (*ImportResult, error) {
	entries, err := batch.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s holds no sentence pairs", file)
	}

	if translate {
		entries, err = translation.Complete(ctx, a.translator, translation.NewCache(), entries)
		if err != nil {
			return nil, fmt.Errorf("translation failed: %w", err)
		}
	}

	result := &ImportResult{Rows: len(entries)}
	pairs := make([]workbook.Pair, 0, len(entries))
	for _, e := range entries {
		if e.Direction != batch.Complete {
			result.Incomplete++
		}
		pairs = append(pairs, workbook.Pair{Source: e.Source, Target: e.Target})
	}
	if result.Incomplete > 0 {
		a.logger.Warn("Rows imported with a missing side, use --translate to fill them",
			"count", result.Incomplete)
	}

	result.FirstRow, err = workbook.Append(a.cfg.WorkbookPath, section, pairs)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Imported rows", "section", section, "rows", result.Rows, "first_row", result.FirstRow)
	return result, nil
}
