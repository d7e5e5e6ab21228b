package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metcalfc/florida/internal/format"
	"github.com/metcalfc/florida/internal/reader"
	"github.com/metcalfc/florida/internal/store"
)

func newLibrary(t *testing.T) (*Library, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	lib := New(st, slog.New(slog.NewTextHandler(io.Discard, nil)))

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lib.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return lib, st
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestImport(t *testing.T) {
	lib, st := newLibrary(t)
	ctx := context.Background()

	path := writeFile(t, "chapter one.txt", "Alpha beta.\n\nGamma")
	doc, existing, err := lib.Import(ctx, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if existing {
		t.Error("first import reported existing")
	}
	if doc.Title != "chapter one" || doc.Type != "txt" {
		t.Errorf("doc = %q (%s)", doc.Title, doc.Type)
	}
	if len(doc.Tokens) != 4 || !doc.Tokens[2].Flags.ParagraphBreak {
		t.Errorf("tokens = %+v", doc.Tokens)
	}
	if doc.RawText != "Alpha beta.\n\nGamma" {
		t.Errorf("raw text = %q", doc.RawText)
	}

	stored, err := st.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if stored.ContentHash != store.ContentHash(doc.RawText) {
		t.Errorf("hash = %q", stored.ContentHash)
	}
}

func TestImportDeduplicates(t *testing.T) {
	lib, _ := newLibrary(t)
	ctx := context.Background()

	first, _, err := lib.Import(ctx, writeFile(t, "a.txt", "same words"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	second, existing, err := lib.Import(ctx, writeFile(t, "b.md", "same words"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !existing || second.ID != first.ID {
		t.Errorf("second import = %s (existing %v), want %s", second.ID, existing, first.ID)
	}

	entries, err := lib.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("library has %d entries, want 1", len(entries))
	}
}

func TestImportNoContent(t *testing.T) {
	lib, _ := newLibrary(t)
	ctx := context.Background()

	for _, content := range []string{"", "   \n\n  ", "-- *** --", "***\n\n---"} {
		_, _, err := lib.Import(ctx, writeFile(t, "empty.txt", content))
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("Import(%q) err = %v, want ErrNoContent", content, err)
		}
	}

	entries, err := lib.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("empty imports persisted %d documents", len(entries))
	}
}

func TestImportExtractionFailure(t *testing.T) {
	lib, _ := newLibrary(t)
	_, _, err := lib.Import(context.Background(), writeFile(t, "bad.pdf", "%PDF-1.4 garbage"))

	var xerr *format.ExtractError
	if !errors.As(err, &xerr) || xerr.Type != "PDF" {
		t.Fatalf("err = %v, want PDF *ExtractError", err)
	}
	entries, _ := lib.List(context.Background(), false)
	if len(entries) != 0 {
		t.Error("failed import persisted a document")
	}
}

func TestImportReader(t *testing.T) {
	lib, _ := newLibrary(t)
	ctx := context.Background()

	doc, _, err := lib.ImportReader(ctx, strings.NewReader("The quick brown fox jumps over the lazy dog again and again"), "")
	if err != nil {
		t.Fatalf("ImportReader: %v", err)
	}
	if doc.Title != "The quick brown fox jumps over the lazy" {
		t.Errorf("title = %q", doc.Title)
	}

	doc, _, err = lib.ImportReader(ctx, strings.NewReader("other"), "  Named  ")
	if err != nil {
		t.Fatalf("ImportReader: %v", err)
	}
	if doc.Title != "Named" {
		t.Errorf("title = %q, want Named", doc.Title)
	}
}

func TestListProgressAndFavorites(t *testing.T) {
	lib, st := newLibrary(t)
	ctx := context.Background()

	older, _, _ := lib.ImportReader(ctx, strings.NewReader("one two three four"), "older")
	newer, _, _ := lib.ImportReader(ctx, strings.NewReader("five six"), "newer")

	if err := st.PutReadingState(ctx, store.ReadingState{DocumentID: older.ID, Index: 2, WPM: 300}); err != nil {
		t.Fatalf("PutReadingState: %v", err)
	}
	if _, err := lib.ToggleFavorite(ctx, older.ID); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}

	entries, err := lib.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != newer.ID {
		t.Fatalf("entries not newest first: %+v", entries)
	}
	if entries[1].Progress != 50 || entries[1].Words != 4 {
		t.Errorf("older progress = %v of %d", entries[1].Progress, entries[1].Words)
	}
	if entries[0].Progress != 0 {
		t.Errorf("unread progress = %v", entries[0].Progress)
	}

	favs, err := lib.List(ctx, true)
	if err != nil {
		t.Fatalf("List favorites: %v", err)
	}
	if len(favs) != 1 || favs[0].ID != older.ID {
		t.Errorf("favorites = %+v", favs)
	}
}

func TestRename(t *testing.T) {
	lib, _ := newLibrary(t)
	ctx := context.Background()
	doc, _, _ := lib.ImportReader(ctx, strings.NewReader("words here"), "old")

	if err := lib.Rename(ctx, doc.ID[:8], "  New Title "); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := lib.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "New Title" {
		t.Errorf("title = %q", got.Title)
	}

	if err := lib.Rename(ctx, doc.ID, "   "); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("blank rename err = %v", err)
	}
	if err := lib.Rename(ctx, "nope", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing rename err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	lib, st := newLibrary(t)
	ctx := context.Background()
	doc, _, _ := lib.ImportReader(ctx, strings.NewReader("to be removed"), "gone")
	if err := st.PutReadingState(ctx, store.ReadingState{DocumentID: doc.ID, Index: 1, WPM: 300}); err != nil {
		t.Fatalf("PutReadingState: %v", err)
	}

	if _, err := lib.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := lib.Get(ctx, doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if _, err := st.GetReadingState(ctx, doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("reading state survived delete: %v", err)
	}
}

func TestOpenResumes(t *testing.T) {
	lib, st := newLibrary(t)
	ctx := context.Background()
	doc, _, _ := lib.ImportReader(ctx, strings.NewReader("a b c d e f"), "six")
	if err := st.PutReadingState(ctx, store.ReadingState{DocumentID: doc.ID, Index: 4, WPM: 2000}); err != nil {
		t.Fatalf("PutReadingState: %v", err)
	}

	e, _, err := lib.Open(ctx, doc.ID, SessionOptions{Settings: reader.Settings{WPM: 250}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st0 := e.State()
	if st0.Index != 4 || st0.WPM != reader.MaxWPM || st0.Status != reader.Idle {
		t.Errorf("resumed state = %+v", st0)
	}

	e.Jump(-3)
	e.Pause()
	saved, err := st.GetReadingState(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetReadingState: %v", err)
	}
	if saved.Index != 1 || saved.WPM != reader.MaxWPM {
		t.Errorf("checkpoint = %+v", saved)
	}
	e.Close()
}

func TestOpenFresh(t *testing.T) {
	lib, st := newLibrary(t)
	ctx := context.Background()
	doc, _, _ := lib.ImportReader(ctx, strings.NewReader("a b c d"), "four")
	if err := st.PutReadingState(ctx, store.ReadingState{DocumentID: doc.ID, Index: 3, WPM: 500}); err != nil {
		t.Fatalf("PutReadingState: %v", err)
	}

	e, _, err := lib.Open(ctx, doc.ID, SessionOptions{Settings: reader.Settings{WPM: 250}, Fresh: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	if got := e.State(); got.Index != 0 || got.WPM != 250 {
		t.Errorf("fresh state = %+v", got)
	}
}

func TestTitleFromText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "Untitled"},
		{"  short  text ", "short text"},
		{strings.Repeat("x", 60), "Untitled"},
	}
	for _, tt := range tests {
		if got := titleFromText(tt.in); got != tt.want {
			t.Errorf("titleFromText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenRateOverride(t *testing.T) {
	lib, st := newLibrary(t)
	ctx := context.Background()
	doc, _, _ := lib.ImportReader(ctx, strings.NewReader("a b c d e f"), "six")
	if err := st.PutReadingState(ctx, store.ReadingState{DocumentID: doc.ID, Index: 2, WPM: 300}); err != nil {
		t.Fatalf("PutReadingState: %v", err)
	}

	e, _, err := lib.Open(ctx, doc.ID, SessionOptions{Settings: reader.Settings{WPM: 250}, WPM: 500})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	if got := e.State(); got.Index != 2 || got.WPM != 500 {
		t.Errorf("state = %+v, want index 2 at 500 wpm", got)
	}
}
