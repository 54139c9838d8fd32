package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"codeberg.org/snonux/korengpro/internal/anki"
	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

// ExportOptions controls an Anki export.
type ExportOptions struct {
	Output  string // .apkg or .csv
	NoAudio bool
}

// Export writes section as an Anki deck. Rows with both sides empty are
// skipped. Audio is synthesized for every non-empty side unless disabled;
// CSV output never carries audio.
func (a *App) Export(ctx context.Context, section string, opts ExportOptions) (*anki.Deck, error) {
	wb, err := workbook.Open(a.cfg.WorkbookPath)
	if err != nil {
		return nil, err
	}
	if !wb.HasSection(section) {
		return nil, fmt.Errorf("%w: %q; available: %s", workbook.ErrUnknownSection, section, strings.Join(wb.Sections(), ", "))
	}
	maxRow, err := wb.MaxRow(section)
	if err != nil {
		return nil, err
	}

	asCSV := strings.EqualFold(filepath.Ext(opts.Output), ".csv")
	withAudio := !opts.NoAudio && !asCSV

	synth := a.synth
	if withAudio {
		scratch, err := audio.NewScratch(filepath.Join(a.cfg.StateDir, "tmp"), "export-"+uuid.NewString())
		if err != nil {
			return nil, err
		}
		defer scratch.Close()
		synth = synth.WithScratch(scratch)
	}

	deck := anki.NewDeck(section)
	for index := 2; index <= maxRow; index++ {
		row, err := wb.Row(section, index)
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}

		card := anki.Card{Row: row.Index, Source: row.Source, Target: row.Target}
		if withAudio {
			if card.SourceAudio, err = a.exportClip(ctx, synth, row.Source, audio.Source); err != nil {
				return nil, fmt.Errorf("row %d: %w", row.Index, err)
			}
			if card.TargetAudio, err = a.exportClip(ctx, synth, row.Target, audio.Target); err != nil {
				return nil, fmt.Errorf("row %d: %w", row.Index, err)
			}
		}
		deck.AddCard(card)
	}
	if len(deck.Cards()) == 0 {
		return nil, fmt.Errorf("section %s has no sentence pairs", section)
	}

	if asCSV {
		f, err := os.Create(opts.Output)
		if err != nil {
			return nil, err
		}
		if err := deck.WriteCSV(f); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	} else if err := deck.WriteAPKG(opts.Output); err != nil {
		return nil, err
	}

	cards, clips := deck.Stats()
	a.logger.Info("Exported deck", "section", section, "file", opts.Output, "cards", cards, "clips", clips)
	return deck, nil
}

func (a *App) exportClip(ctx context.Context, synth *audio.Synthesizer, text string, lang audio.Language) (*audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return synth.Synthesize(ctx, text, lang)
}
