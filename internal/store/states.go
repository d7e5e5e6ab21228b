package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReadingState is the saved playback position of one document.
type ReadingState struct {
	DocumentID string    `json:"documentId"`
	Index      int       `json:"currentWordIndex"`
	WPM        int       `json:"wpm"`
	UpdatedAt  time.Time `json:"lastUpdated"`
}

// PutReadingState replaces the reading state of a document. A zero
// UpdatedAt is stamped with the current time.
func (s *Store) PutReadingState(ctx context.Context, st ReadingState) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	const stmt = `
INSERT INTO reading_states (document_id, word_index, wpm, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(document_id) DO UPDATE SET
  word_index=excluded.word_index,
  wpm=excluded.wpm,
  updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, st.DocumentID, st.Index, st.WPM, formatTime(st.UpdatedAt)); err != nil {
		return fmt.Errorf("put reading state: %w", err)
	}
	return nil
}

// GetReadingState returns the reading state of a document, or ErrNotFound.
func (s *Store) GetReadingState(ctx context.Context, documentID string) (ReadingState, error) {
	var (
		st        ReadingState
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, word_index, wpm, updated_at FROM reading_states WHERE document_id = ?`,
		documentID,
	).Scan(&st.DocumentID, &st.Index, &st.WPM, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ReadingState{}, fmt.Errorf("reading state %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return ReadingState{}, fmt.Errorf("get reading state: %w", err)
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ReadingState{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return st, nil
}

// ClearReadingState forgets the position of a document.
func (s *Store) ClearReadingState(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reading_states WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clear reading state: %w", err)
	}
	return nil
}
