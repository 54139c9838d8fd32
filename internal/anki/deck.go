package anki

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"

	"codeberg.org/snonux/korengpro/internal"
	"codeberg.org/snonux/korengpro/internal/audio"
)

// Card is one sentence pair. Audio is optional on both sides.
type Card struct {
	Row         int
	Source      string
	Target      string
	SourceAudio *audio.Clip
	TargetAudio *audio.Clip
}

// Deck collects cards for one export.
type Deck struct {
	Name  string
	cards []Card
}

// NewDeck creates an empty deck.
func NewDeck(name string) *Deck {
	return &Deck{Name: name}
}

// AddCard appends card to the deck.
func (d *Deck) AddCard(card Card) {
	d.cards = append(d.cards, card)
}

// Cards returns the deck's cards.
func (d *Deck) Cards() []Card {
	return d.cards
}

// Stats returns the number of cards and of attached audio clips.
func (d *Deck) Stats() (cards, clips int) {
	for _, c := range d.cards {
		if c.SourceAudio != nil {
			clips++
		}
		if c.TargetAudio != nil {
			clips++
		}
	}
	return len(d.cards), clips
}

// deckID is stable per deck name so re-importing updates the same deck.
func (d *Deck) deckID() int64 {
	h := fnv.New64a()
	h.Write([]byte("deck\x00" + d.Name))
	return int64(h.Sum64()>>1) | 1<<40
}

func (d *Deck) modelID() int64 {
	h := fnv.New64a()
	h.Write([]byte("model\x00" + d.Name))
	return int64(h.Sum64()>>1) | 1<<40
}

// MediaName is the file name a clip gets inside the package.
func MediaName(clip *audio.Clip) string {
	return fmt.Sprintf("korengpro_%s_%s%s", clip.Language, internal.TextHash(clip.Text), clip.Format.Ext())
}

func soundField(clip *audio.Clip) string {
	if clip == nil {
		return ""
	}
	return "[sound:" + MediaName(clip) + "]"
}

// guid identifies a note by its content so re-imports update rather than
// duplicate it.
func (d *Deck) guid(c Card) string {
	return "kp_" + internal.TextHash(d.Name+"\x00"+c.Source+"\x00"+c.Target)
}

// checksum is Anki's first field checksum: the first 8 hex digits of the
// field's sha1 as an integer.
func checksum(field string) int64 {
	sum := sha1.Sum([]byte(field))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// WriteCSV writes one line per card: Korean, English and the sound tags
// for both sides.
func (d *Deck) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Korean", "English", "KoreanAudio", "EnglishAudio"}); err != nil {
		return err
	}
	for _, c := range d.cards {
		record := []string{c.Source, c.Target, soundField(c.SourceAudio), soundField(c.TargetAudio)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", c.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
