package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/korengpro/internal/audio"
)

const fieldSeparator = "\x1f"

var schema = []string{
	`CREATE TABLE col (
		id integer PRIMARY KEY, crt integer NOT NULL, mod integer NOT NULL,
		scm integer NOT NULL, ver integer NOT NULL, dty integer NOT NULL,
		usn integer NOT NULL, ls integer NOT NULL, conf text NOT NULL,
		models text NOT NULL, decks text NOT NULL, dconf text NOT NULL,
		tags text NOT NULL
	)`,
	`CREATE TABLE notes (
		id integer PRIMARY KEY, guid text NOT NULL, mid integer NOT NULL,
		mod integer NOT NULL, usn integer NOT NULL, tags text NOT NULL,
		flds text NOT NULL, sfld text NOT NULL, csum integer NOT NULL,
		flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE cards (
		id integer PRIMARY KEY, nid integer NOT NULL, did integer NOT NULL,
		ord integer NOT NULL, mod integer NOT NULL, usn integer NOT NULL,
		type integer NOT NULL, queue integer NOT NULL, due integer NOT NULL,
		ivl integer NOT NULL, factor integer NOT NULL, reps integer NOT NULL,
		lapses integer NOT NULL, left integer NOT NULL, odue integer NOT NULL,
		odid integer NOT NULL, flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE revlog (
		id integer PRIMARY KEY, cid integer NOT NULL, usn integer NOT NULL,
		ease integer NOT NULL, ivl integer NOT NULL, lastIvl integer NOT NULL,
		factor integer NOT NULL, time integer NOT NULL, type integer NOT NULL
	)`,
	`CREATE TABLE graves (usn integer NOT NULL, oid integer NOT NULL, type integer NOT NULL)`,
	`CREATE INDEX ix_notes_csum ON notes (csum)`,
	`CREATE INDEX ix_notes_usn ON notes (usn)`,
	`CREATE INDEX ix_cards_usn ON cards (usn)`,
	`CREATE INDEX ix_cards_nid ON cards (nid)`,
	`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
	`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
}

const (
	frontTemplate = `<div class="korean">{{Korean}}</div>
{{KoreanAudio}}`
	backTemplate = `{{FrontSide}}
<hr id="answer">
<div class="english">{{English}}</div>
{{EnglishAudio}}`
	reverseFrontTemplate = `<div class="english">{{English}}</div>`
	reverseBackTemplate  = `{{FrontSide}}
<hr id="answer">
<div class="korean">{{Korean}}</div>
{{KoreanAudio}}`
	cardCSS = `.card { font-family: sans-serif; font-size: 22px; text-align: center; color: #222; background: #fff; }
.korean { font-size: 32px; margin: 16px 0; }
.english { font-size: 24px; color: #444; margin: 16px 0; }
hr#answer { margin: 24px 0; border: 0; border-top: 1px solid #ddd; }`
)

// WriteAPKG writes the deck and its audio as an Anki package to path.
func (d *Deck) WriteAPKG(path string) error {
	tempDir, err := os.MkdirTemp("", "korengpro_apkg_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := d.writeCollection(dbPath); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.writeZip(out, dbPath); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write package: %w", err)
	}
	return out.Close()
}

// media returns the unique clips of the deck in card order.
func (d *Deck) media() []*audio.Clip {
	seen := make(map[string]bool)
	var clips []*audio.Clip
	for _, c := range d.cards {
		for _, clip := range []*audio.Clip{c.SourceAudio, c.TargetAudio} {
			if clip == nil || seen[MediaName(clip)] {
				continue
			}
			seen[MediaName(clip)] = true
			clips = append(clips, clip)
		}
	}
	return clips
}

// writeZip stores the collection, the numbered media entries and the
// media index that maps numbers back to file names.
func (d *Deck) writeZip(w io.Writer, dbPath string) error {
	zw := zip.NewWriter(w)

	db, err := os.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	entry, err := zw.Create("collection.anki2")
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, db); err != nil {
		return err
	}

	index := make(map[string]string)
	for i, clip := range d.media() {
		name := strconv.Itoa(i)
		index[name] = MediaName(clip)
		entry, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := entry.Write(clip.Data); err != nil {
			return err
		}
	}

	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	entry, err = zw.Create("media")
	if err != nil {
		return err
	}
	if _, err := entry.Write(data); err != nil {
		return err
	}

	return zw.Close()
}

func (d *Deck) writeCollection(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, query := range schema {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	now := time.Now()
	if err := d.insertCollection(tx, now); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	if err := d.insertNotes(tx, now); err != nil {
		return err
	}
	return tx.Commit()
}

func deckConfig(id int64, name, desc string, now int64) map[string]any {
	return map[string]any{
		"id": id, "name": name, "desc": desc, "mod": now,
		"collapsed": false, "browserCollapsed": false,
		"dyn": 0, "conf": 1, "usn": 0,
		"newToday": []int{0, 0}, "revToday": []int{0, 0},
		"lrnToday": []int{0, 0}, "timeToday": []int{0, 0},
		"extendNew": 10, "extendRev": 50,
	}
}

func field(name string, ord int) map[string]any {
	return map[string]any{
		"name": name, "ord": ord, "sticky": false, "rtl": false,
		"font": "Arial", "size": 20, "media": []string{},
	}
}

func (d *Deck) noteType(now int64) map[string]any {
	return map[string]any{
		"id":    d.modelID(),
		"name":  "korengpro sentence (Korean/English)",
		"type":  0,
		"mod":   now,
		"usn":   -1,
		"sortf": 0,
		"did":   d.deckID(),
		"req":   [][]any{{0, "all", []int{0}}, {1, "all", []int{1}}},
		"vers":  []int{},
		"tags":  []string{},
		"flds": []map[string]any{
			field("Korean", 0), field("English", 1),
			field("KoreanAudio", 2), field("EnglishAudio", 3),
		},
		"tmpls": []map[string]any{
			{"name": "Korean → English", "ord": 0, "qfmt": frontTemplate, "afmt": backTemplate, "did": nil, "bqfmt": "", "bafmt": ""},
			{"name": "English → Korean", "ord": 1, "qfmt": reverseFrontTemplate, "afmt": reverseBackTemplate, "did": nil, "bqfmt": "", "bafmt": ""},
		},
		"css":       cardCSS,
		"latexPre":  "",
		"latexPost": "",
	}
}

func (d *Deck) insertCollection(tx *sql.Tx, ts time.Time) error {
	now := ts.Unix()
	deckID := d.deckID()

	decks := map[string]any{
		"1":                           deckConfig(1, "Default", "", now),
		strconv.FormatInt(deckID, 10): deckConfig(deckID, d.Name, "Sentence pairs exported by korengpro", now),
	}
	models := map[string]any{strconv.FormatInt(d.modelID(), 10): d.noteType(now)}
	conf := map[string]any{
		"nextPos": 1, "estTimes": true, "activeDecks": []int64{1},
		"sortType": "noteFld", "sortBackwards": false, "addToCur": true,
		"curDeck": 1, "newSpread": 0, "dueCounts": true, "collapseTime": 1200,
		"timeLim": 0, "schedVer": 1, "curModel": strconv.FormatInt(d.modelID(), 10),
		"dayLearnFirst": false,
	}
	dconf := map[string]any{
		"1": map[string]any{
			"id": 1, "name": "Default", "dyn": 0, "usn": 0, "mod": now,
			"timer": 0, "maxTaken": 60, "autoplay": true, "replayq": true,
			"new": map[string]any{
				"delays": []int{1, 10}, "ints": []int{1, 4, 7}, "initialFactor": 2500,
				"perDay": 20, "order": 1, "bury": true, "separate": true,
			},
			"lapse": map[string]any{"delays": []int{10}, "mult": 0, "minInt": 1, "leechFails": 8, "leechAction": 0},
			"rev":   map[string]any{"perDay": 100, "ease4": 1.3, "fuzz": 0.05, "maxIvl": 36500, "ivlFct": 1, "bury": true, "minSpace": 1},
		},
	}

	values := []any{1, now, now * 1000, now * 1000, 11, 0, 0, 0}
	for _, v := range []any{conf, models, decks, dconf} {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		values = append(values, string(data))
	}
	values = append(values, "{}")

	_, err := tx.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, values...)
	return err
}

func (d *Deck) insertNotes(tx *sql.Tx, ts time.Time) error {
	noteStmt, err := tx.Prepare(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer noteStmt.Close()
	cardStmt, err := tx.Prepare(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cardStmt.Close()

	base := ts.UnixMilli()
	deckID, modelID, mod := d.deckID(), d.modelID(), ts.Unix()
	for i, c := range d.cards {
		// Room for the note and its two cards
		noteID := base + int64(i*3)

		fields := strings.Join([]string{
			c.Source, c.Target, soundField(c.SourceAudio), soundField(c.TargetAudio),
		}, fieldSeparator)

		if _, err := noteStmt.Exec(noteID, d.guid(c), modelID, mod, -1, "korengpro",
			fields, c.Source, checksum(c.Source), 0, ""); err != nil {
			return fmt.Errorf("failed to insert note for row %d: %w", c.Row, err)
		}

		for ord := range 2 {
			cardID := noteID + 1 + int64(ord)
			// New cards are due in insertion order
			due := i*2 + ord + 1
			if _, err := cardStmt.Exec(cardID, noteID, deckID, ord, mod, -1,
				0, 0, due, 0, 0, 0, 0, 0, 0, 0, 0, ""); err != nil {
				return fmt.Errorf("failed to insert card for row %d: %w", c.Row, err)
			}
		}
	}
	return nil
}
