package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/metcalfc/florida/internal/text"
)

// Document is an imported text and its stored tokens. Only Title and
// Favorite change after creation.
type Document struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Type        string       `json:"type"`
	RawText     string       `json:"rawText"`
	Tokens      []text.Token `json:"words"`
	ContentHash string       `json:"contentHash"`
	CreatedAt   time.Time    `json:"createdAt"`
	Favorite    bool         `json:"isFavorite"`
}

const documentColumns = `id, title, type, raw_text, tokens, content_hash, created_at, favorite`

// PutDocument inserts or replaces a document.
func (s *Store) PutDocument(ctx context.Context, doc Document) error {
	tokens, err := json.Marshal(doc.Tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	const stmt = `
INSERT INTO documents (` + documentColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  title=excluded.title,
  type=excluded.type,
  raw_text=excluded.raw_text,
  tokens=excluded.tokens,
  content_hash=excluded.content_hash,
  created_at=excluded.created_at,
  favorite=excluded.favorite;
`
	_, err = s.db.ExecContext(ctx, stmt,
		doc.ID,
		doc.Title,
		doc.Type,
		doc.RawText,
		string(tokens),
		doc.ContentHash,
		formatTime(doc.CreatedAt),
		doc.Favorite,
	)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// GetDocument returns the document with id, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// FindByHash returns a document with the given content hash, or ErrNotFound.
func (s *Store) FindByHash(ctx context.Context, hash string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE content_hash = ? ORDER BY created_at LIMIT 1`, hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// ResolveID expands a unique id prefix to a full document id.
func (s *Store) ResolveID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("empty id: %w", ErrNotFound)
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return "", fmt.Errorf("resolve id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve id: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("document %s: %w", prefix, ErrNotFound)
	case 1:
		return ids[0], nil
	}
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
	}
	return "", fmt.Errorf("document %s: %w", prefix, ErrAmbiguousID)
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// RenameDocument replaces a document's title.
func (s *Store) RenameDocument(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	return requireRow(res, id)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE documents SET favorite = NOT favorite WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return false, err
	}
	var fav bool
	if err := tx.QueryRowContext(ctx, `SELECT favorite FROM documents WHERE id = ?`, id).Scan(&fav); err != nil {
		return false, fmt.Errorf("read favorite: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return fav, nil
}

// DeleteDocument removes a document together with its reading state.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reading_states WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete reading state: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		doc       Document
		tokens    string
		createdAt string
	)
	err := row.Scan(&doc.ID, &doc.Title, &doc.Type, &doc.RawText, &tokens, &doc.ContentHash, &createdAt, &doc.Favorite)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("scan document: %w", err)
	}
	if err := json.Unmarshal([]byte(tokens), &doc.Tokens); err != nil {
		return Document{}, fmt.Errorf("decode tokens of %s: %w", doc.ID, err)
	}
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return Document{}, fmt.Errorf("parse created_at of %s: %w", doc.ID, err)
	}
	return doc, nil
}
