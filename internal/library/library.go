// Package library imports documents into the store and opens reading
// sessions over them.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/metcalfc/florida/internal/format"
	"github.com/metcalfc/florida/internal/reader"
	"github.com/metcalfc/florida/internal/store"
	"github.com/metcalfc/florida/internal/text"
)

var (
	// ErrNoContent is returned when a document yields no words.
	ErrNoContent = errors.New("no text content found in document")
	// ErrEmptyTitle is returned when renaming to a blank title.
	ErrEmptyTitle = errors.New("title cannot be empty")
)

// Library is the set of imported documents.
type Library struct {
	store *store.Store
	log   *slog.Logger
	now   func() time.Time
}

// New returns a Library backed by st.
func New(st *store.Store, log *slog.Logger) *Library {
	if log == nil {
		log = slog.Default()
	}
	return &Library{store: st, log: log, now: time.Now}
}

// Entry is a document with its reading progress.
type Entry struct {
	store.Document
	// Words is the number of display tokens.
	Words int
	// Index is the saved position, 0 if never read.
	Index int
	// Progress is the percentage read.
	Progress float64
}

// Import extracts, tokenizes and stores the file at path. Importing
// content that is already in the library returns the existing document
// with existing set.
func (l *Library) Import(ctx context.Context, path string) (doc store.Document, existing bool, err error) {
	raw, f, err := format.ExtractText(path)
	if err != nil {
		return store.Document{}, false, err
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.add(ctx, raw, title, f.Type())
}

// ImportReader stores plain text read from r. An empty title is derived
// from the first words of the text.
func (l *Library) ImportReader(ctx context.Context, r io.Reader, title string) (store.Document, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return store.Document{}, false, fmt.Errorf("read input: %w", err)
	}
	raw := string(data)
	if strings.TrimSpace(title) == "" {
		title = titleFromText(raw)
	}
	return l.add(ctx, raw, title, "txt")
}

func (l *Library) add(ctx context.Context, raw, title, typ string) (store.Document, bool, error) {
	tokens := text.Tokenize(text.Normalize(raw))
	if len(text.DisplayWords(tokens)) == 0 {
		return store.Document{}, false, ErrNoContent
	}

	hash := store.ContentHash(raw)
	if doc, err := l.store.FindByHash(ctx, hash); err == nil {
		l.log.Info("document already imported", "doc", doc.ID, "title", doc.Title)
		return doc, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Document{}, false, err
	}

	doc := store.Document{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Type:        typ,
		RawText:     raw,
		Tokens:      tokens,
		ContentHash: hash,
		CreatedAt:   l.now(),
	}
	if doc.Title == "" {
		doc.Title = "Untitled"
	}
	if err := l.store.PutDocument(ctx, doc); err != nil {
		return store.Document{}, false, err
	}
	l.log.Info("document imported", "doc", doc.ID, "title", doc.Title, "type", typ, "tokens", len(tokens))
	return doc, false, nil
}

const maxDerivedTitle = 40

func titleFromText(raw string) string {
	var b strings.Builder
	for _, w := range strings.Fields(raw) {
		if b.Len()+len(w)+1 > maxDerivedTitle {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return "Untitled"
	}
	return b.String()
}

// List returns documents newest first with their progress. With
// favoritesOnly set, only favorites are returned.
func (l *Library) List(ctx context.Context, favoritesOnly bool) ([]Entry, error) {
	docs, err := l.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		if favoritesOnly && !doc.Favorite {
			continue
		}
		e := Entry{Document: doc, Words: len(text.DisplayWords(doc.Tokens))}
		st, err := l.store.GetReadingState(ctx, doc.ID)
		switch {
		case err == nil:
			e.Index = st.Index
			if e.Words > 0 {
				e.Progress = float64(min(st.Index, e.Words-1)) / float64(e.Words) * 100
			}
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Get returns the document with the given id or unique id prefix.
func (l *Library) Get(ctx context.Context, idOrPrefix string) (store.Document, error) {
	id, err := l.store.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return store.Document{}, err
	}
	return l.store.GetDocument(ctx, id)
}

// Rename changes a document's title. Surrounding whitespace is trimmed.
func (l *Library) Rename(ctx context.Context, idOrPrefix, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	id, err := l.store.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return err
	}
	return l.store.RenameDocument(ctx, id, title)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (l *Library) ToggleFavorite(ctx context.Context, idOrPrefix string) (bool, error) {
	id, err := l.store.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return false, err
	}
	return l.store.ToggleFavorite(ctx, id)
}

// Delete removes a document and its reading state.
func (l *Library) Delete(ctx context.Context, idOrPrefix string) (store.Document, error) {
	doc, err := l.Get(ctx, idOrPrefix)
	if err != nil {
		return store.Document{}, err
	}
	if err := l.store.DeleteDocument(ctx, doc.ID); err != nil {
		return store.Document{}, err
	}
	l.log.Info("document deleted", "doc", doc.ID)
	return doc, nil
}

// SessionOptions configures Open.
type SessionOptions struct {
	Settings  reader.Settings
	// Fresh ignores any saved position.
	Fresh     bool
	// WPM, when non-zero, replaces the saved rate of a resumed session.
	WPM       int
	Scheduler reader.Scheduler
	Cues      reader.CuePlayer
}

// Open starts a reading session over a document, resuming its saved
// position unless opts.Fresh is set. The engine checkpoints to the store.
func (l *Library) Open(ctx context.Context, idOrPrefix string, opts SessionOptions) (*reader.Engine, store.Document, error) {
	doc, err := l.Get(ctx, idOrPrefix)
	if err != nil {
		return nil, store.Document{}, err
	}

	var resume *store.ReadingState
	if !opts.Fresh {
		st, err := l.store.GetReadingState(ctx, doc.ID)
		switch {
		case err == nil:
			resume = &st
		case !errors.Is(err, store.ErrNotFound):
			return nil, store.Document{}, err
		}
	}

	if opts.WPM > 0 {
		opts.Settings.WPM = opts.WPM
		if resume != nil {
			resume.WPM = opts.WPM
		}
	}

	e := reader.New(doc.Tokens, resume, opts.Settings, reader.Options{
		DocumentID: doc.ID,
		Scheduler:  opts.Scheduler,
		States:     l.store,
		Cues:       opts.Cues,
		Logger:     l.log,
	})
	l.log.Debug("session opened", "doc", doc.ID, "index", e.State().Index, "wpm", e.State().WPM)
	return e, doc, nil
}
