package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/korengpro/internal"
	"codeberg.org/snonux/korengpro/internal/audio"
	"codeberg.org/snonux/korengpro/internal/testutil"
	"codeberg.org/snonux/korengpro/internal/workbook"
)

type streamProvider struct{}

func (streamProvider) GenerateAudio(context.Context, string, audio.Language, string) error {
	return errors.New("file strategy not expected")
}
func (streamProvider) Name() string         { return "stream" }
func (streamProvider) Format() audio.Format { return audio.FormatMP3 }
func (streamProvider) IsAvailable() error   { return nil }
func (streamProvider) StreamAudio(_ context.Context, text string, _ audio.Language) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("mp3:" + text)), nil
}

type recordingPlayer struct {
	mu    sync.Mutex
	texts []string
}

func (p *recordingPlayer) Play(_ context.Context, clip *audio.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, clip.Text)
	return nil
}

func newTestApp(t *testing.T, opts ...Option) (*App, Config) {
	t.Helper()
	return newTestAppWith(t, nil, opts...)
}

// newTestAppWith builds an App after mutate adjusts the default config.
func newTestAppWith(t *testing.T, mutate func(*Config), opts ...Option) (*App, Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.WorkbookPath = filepath.Join(dir, "korengpro.xlsx")
	cfg.StateDir = filepath.Join(dir, "state")
	cfg.Pause = time.Millisecond
	cfg.RateLimit = 0

	testutil.CreateWorkbook(t, cfg.WorkbookPath,
		testutil.Sheet{Name: "Greetings", Rows: [][2]string{{"안녕하세요", "Hello"}, {"감사합니다", "Thank you"}}},
		testutil.Sheet{Name: "Food", Rows: [][2]string{{"밥", "Rice"}}},
	)
	if mutate != nil {
		mutate(&cfg)
	}

	opts = append([]Option{WithProvider(streamProvider{})}, opts...)
	a, err := New(context.Background(), cfg, internal.DiscardLogger(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, cfg
}

func TestSections(t *testing.T) {
	a, _ := newTestApp(t)

	var out bytes.Buffer
	if err := a.Sections(&out); err != nil {
		t.Fatalf("Sections() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}
	if f := strings.Fields(lines[0]); f[0] != "Greetings" || f[1] != "2" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if f := strings.Fields(lines[1]); f[0] != "Food" || f[1] != "1" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestSectionsMissingWorkbook(t *testing.T) {
	a, cfg := newTestApp(t)
	if err := os.Remove(cfg.WorkbookPath); err != nil {
		t.Fatal(err)
	}

	if err := a.Sections(io.Discard); !errors.Is(err, workbook.ErrNotFound) {
		t.Errorf("Sections() error = %v, want ErrNotFound", err)
	}
}

func TestSay(t *testing.T) {
	a, _ := newTestApp(t)
	output := filepath.Join(t.TempDir(), "out", "hello.mp3")

	if err := a.Say(t.Context(), "안녕하세요", audio.Source, output); err != nil {
		t.Fatalf("Say() error = %v", err)
	}
	testutil.AssertFileContains(t, output, "mp3:안녕하세요")

	if err := a.Say(t.Context(), "hi", audio.Language("klingon"), output); err == nil {
		t.Error("expected error for unknown language")
	}
	if err := a.Say(t.Context(), "   ", audio.Target, output); !errors.Is(err, audio.ErrEmptyText) {
		t.Errorf("Say(blank) error = %v, want ErrEmptyText", err)
	}
}

func TestSayUsesCache(t *testing.T) {
	a, cfg := newTestAppWith(t, func(c *Config) { c.Cache = true })
	output := filepath.Join(t.TempDir(), "hello.mp3")

	if err := a.Say(t.Context(), "안녕하세요", audio.Source, output); err != nil {
		t.Fatalf("Say() error = %v", err)
	}
	testutil.AssertFileExists(t, filepath.Join(cfg.StateDir, "cache"))
	if a.cache.Len() != 1 {
		t.Errorf("cache holds %d clips, want 1", a.cache.Len())
	}
}

func TestDefaultConfigKeepsNoAudio(t *testing.T) {
	if DefaultConfig().Cache {
		t.Fatal("DefaultConfig().Cache = true, want clip cache off by default")
	}

	player := &recordingPlayer{}
	a, cfg := newTestApp(t, WithLocalPlayer(player))
	if err := a.Play(t.Context(), "Greetings", PlayOptions{}, io.Discard); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if len(player.texts) != 4 {
		t.Fatalf("played %d clips, want 4", len(player.texts))
	}
	if a.cache != nil {
		t.Error("clip cache created although disabled")
	}
	if _, err := os.Stat(filepath.Join(cfg.StateDir, "cache")); !os.IsNotExist(err) {
		t.Errorf("cache dir exists after playback (err = %v)", err)
	}
}

func TestPlay(t *testing.T) {
	player := &recordingPlayer{}
	a, _ := newTestApp(t, WithLocalPlayer(player))

	var out bytes.Buffer
	if err := a.Play(t.Context(), "Greetings", PlayOptions{}, &out); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	want := []string{"안녕하세요", "Hello", "감사합니다", "Thank you"}
	if strings.Join(player.texts, "|") != strings.Join(want, "|") {
		t.Errorf("played %v, want %v", player.texts, want)
	}
	for _, s := range []string{"[1/2] 안녕하세요", "Hello", "[2/2] 감사합니다", "Thank you"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output missing %q:\n%s", s, out.String())
		}
	}
}

func TestPlayFrom(t *testing.T) {
	player := &recordingPlayer{}
	a, _ := newTestApp(t, WithLocalPlayer(player))

	if err := a.Play(t.Context(), "Greetings", PlayOptions{From: 2}, io.Discard); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if len(player.texts) != 2 || player.texts[0] != "감사합니다" {
		t.Errorf("played %v, want only the second row", player.texts)
	}
}

func TestPlayRepeatStopsOnCancel(t *testing.T) {
	player := &recordingPlayer{}
	a, _ := newTestApp(t, WithLocalPlayer(player))

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()
	if err := a.Play(ctx, "Food", PlayOptions{Repeat: true}, io.Discard); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if len(player.texts) < 4 {
		t.Errorf("repeat played %d clips, want the row more than once", len(player.texts))
	}
}

func TestPlayUnknownSection(t *testing.T) {
	a, _ := newTestApp(t, WithLocalPlayer(&recordingPlayer{}))

	err := a.Play(t.Context(), "Nope", PlayOptions{}, io.Discard)
	if !errors.Is(err, workbook.ErrUnknownSection) {
		t.Fatalf("Play() error = %v, want ErrUnknownSection", err)
	}
	if !strings.Contains(err.Error(), "Greetings") {
		t.Errorf("error %q does not list the available sections", err)
	}
}

func TestImport(t *testing.T) {
	mock := &testutil.MockTranslator{Translations: map[string]string{"김치": "Kimchi"}}
	a, cfg := newTestApp(t, WithTranslator(mock))

	file := filepath.Join(t.TempDir(), "food.txt")
	testutil.CreateTestFile(t, file, []byte("김치\n떡 = Rice cake\n"))

	result, err := a.Import(t.Context(), file, "Food", true)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.FirstRow != 3 || result.Rows != 2 || result.Incomplete != 0 {
		t.Errorf("Import() = %+v", result)
	}

	wb, err := workbook.Open(cfg.WorkbookPath)
	if err != nil {
		t.Fatal(err)
	}
	row, err := wb.Row("Food", 3)
	if err != nil {
		t.Fatal(err)
	}
	if row.Source != "김치" || row.Target != "Kimchi" {
		t.Errorf("row 3 = %+v", row)
	}
}

func TestImportWithoutTranslate(t *testing.T) {
	mock := &testutil.MockTranslator{}
	a, _ := newTestApp(t, WithTranslator(mock))

	file := filepath.Join(t.TempDir(), "new.txt")
	testutil.CreateTestFile(t, file, []byte("# new section\n= Good night\n"))

	result, err := a.Import(t.Context(), file, "Night", false)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.FirstRow != 2 || result.Incomplete != 1 {
		t.Errorf("Import() = %+v", result)
	}
	if len(mock.Calls) != 0 {
		t.Errorf("translator called without --translate: %v", mock.Calls)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	testutil.CreateTestFile(t, empty, []byte("# nothing\n"))
	if _, err := a.Import(t.Context(), empty, "Night", false); err == nil {
		t.Error("expected error for an empty batch file")
	}
}

func TestNewStack(t *testing.T) {
	a, cfg := newTestApp(t)

	stack, err := a.NewStack(t.Context())
	if err != nil {
		t.Fatalf("NewStack() error = %v", err)
	}
	srv := httptest.NewServer(stack.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = stack.Close(context.Background())
	})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Greetings") {
		t.Error("player page does not list the sections")
	}
	if stack.Sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", stack.Sessions.Len())
	}
	testutil.AssertFileExists(t, filepath.Join(cfg.StateDir, "positions.db"))

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", resp.StatusCode)
	}
}

func TestNewStackLocalPlayer(t *testing.T) {
	a, _ := newTestApp(t, WithLocalPlayer(&recordingPlayer{}))
	a.cfg.Player = "local"

	stack, err := a.NewStack(t.Context())
	if err != nil {
		t.Fatalf("NewStack() error = %v", err)
	}
	defer stack.Close(context.Background())

	s, err := stack.Sessions.Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.BrowserPlayback() {
		t.Error("local player configured but session plays in the browser")
	}
}

func TestModelsWithoutKey(t *testing.T) {
	a, _ := newTestApp(t)
	a.cfg.Audio.OpenAIKey = ""

	if err := a.Models(t.Context(), io.Discard); err == nil {
		t.Error("expected error without an OpenAI key")
	}
}

func TestExportAPKG(t *testing.T) {
	a, _ := newTestApp(t)
	output := filepath.Join(t.TempDir(), "greetings.apkg")

	deck, err := a.Export(t.Context(), "Greetings", ExportOptions{Output: output})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	cards, clips := deck.Stats()
	if cards != 2 || clips != 4 {
		t.Errorf("Stats() = %d, %d; want 2, 4", cards, clips)
	}
	if string(deck.Cards()[0].TargetAudio.Data) != "mp3:Hello" {
		t.Errorf("target clip = %q", deck.Cards()[0].TargetAudio.Data)
	}
	testutil.AssertFileExists(t, output)
}

func TestExportCSVSkipsAudio(t *testing.T) {
	a, _ := newTestApp(t)
	output := filepath.Join(t.TempDir(), "food.csv")

	deck, err := a.Export(t.Context(), "Food", ExportOptions{Output: output})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if _, clips := deck.Stats(); clips != 0 {
		t.Errorf("CSV export synthesized %d clips", clips)
	}
	testutil.AssertFileContains(t, output, "밥,Rice")

	_, err = a.Export(t.Context(), "Nope", ExportOptions{Output: output})
	if !errors.Is(err, workbook.ErrUnknownSection) {
		t.Errorf("Export(Nope) error = %v, want ErrUnknownSection", err)
	} else if !strings.Contains(err.Error(), "Greetings, Food") {
		t.Errorf("Export(Nope) error = %v, want available sections listed", err)
	}
}

func TestPlaySilent(t *testing.T) {
	player := &recordingPlayer{}
	a, _ := newTestApp(t, WithLocalPlayer(player))

	var out bytes.Buffer
	if err := a.Play(t.Context(), "Food", PlayOptions{Silent: true}, &out); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if len(player.texts) != 0 {
		t.Errorf("audio player used in silent mode: %v", player.texts)
	}
	for _, s := range []string{"[1/1] 밥", "Rice"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output misses %q:\n%s", s, out.String())
		}
	}
}
