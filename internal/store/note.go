package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/marknotes/internal/model"
)

type NoteStore struct {
	db *sql.DB
}

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

// Timestamps are stored as unix nanoseconds so ordering and the
// conditional update in Update compare exact values.
func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func scanNote(scanner interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	var createdAt, updatedAt int64

	err := scanner.Scan(&n.ID, &n.Title, &n.MarkdownContent, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	n.CreatedAt = fromNanos(createdAt)
	n.UpdatedAt = fromNanos(updatedAt)
	return &n, nil
}

const noteCols = `id, title, markdown_content, created_at, updated_at`

// wrapErr annotates err with op and maps a missing notes table onto
// model.ErrStorageMissing.
func wrapErr(op string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%s: %w: %v", op, model.ErrStorageMissing, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Create inserts n and returns the stored row. The id on n is ignored.
func (s *NoteStore) Create(n model.Note) (*model.Note, error) {
	result, err := s.db.Exec(
		`INSERT INTO notes (title, markdown_content, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		n.Title, n.MarkdownContent, toNanos(n.CreatedAt), toNanos(n.UpdatedAt),
	)
	if err != nil {
		return nil, wrapErr("insert note", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID returns model.ErrNotFound when no note has the given id.
func (s *NoteStore) GetByID(id int64) (*model.Note, error) {
	row := s.db.QueryRow(`SELECT `+noteCols+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get note", err)
	}
	return n, nil
}

// GetAll returns every note, most recently updated first. Notes sharing an
// updated_at keep insertion order.
func (s *NoteStore) GetAll() ([]model.Note, error) {
	rows, err := s.db.Query(`SELECT ` + noteCols + ` FROM notes ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, wrapErr("list notes", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// Exists reports whether a note with the given id is stored.
func (s *NoteStore) Exists(id int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM notes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("note exists", err)
	}
	return true, nil
}

// Update reads the note, lets mutate edit a copy and writes the copy back
// only if the row still carries the updated_at that was read. A row that
// changed or vanished in between yields model.ErrConflict; nothing is
// retried. id and created_at are never changed, and updated_at always moves
// forward even when the clock has not.
func (s *NoteStore) Update(id int64, mutate func(*model.Note) error) (*model.Note, error) {
	current, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	next := *current
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	if !next.UpdatedAt.After(current.UpdatedAt) {
		next.UpdatedAt = current.UpdatedAt.Add(time.Nanosecond)
	}
	next.UpdatedAt = fromNanos(toNanos(next.UpdatedAt))

	result, err := s.db.Exec(
		`UPDATE notes SET title = ?, markdown_content = ?, updated_at = ? WHERE id = ? AND updated_at = ?`,
		next.Title, next.MarkdownContent, toNanos(next.UpdatedAt), id, toNanos(current.UpdatedAt),
	)
	if err != nil {
		return nil, wrapErr("update note", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("update note %d: %w", id, model.ErrConflict)
	}
	return &next, nil
}

// Delete removes the note permanently. It returns model.ErrNotFound when
// there was nothing to delete.
func (s *NoteStore) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return wrapErr("delete note", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return model.ErrNotFound
	}
	return nil
}
