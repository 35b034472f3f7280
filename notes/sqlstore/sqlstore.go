// Package sqlstore keeps notes in a SQLite database using the pure Go
// modernc.org/sqlite driver.
package sqlstore

import (
	"context"
	"database/sql"

	"github.com/muir/napi/notes"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers "sqlite"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS notes (id INTEGER PRIMARY KEY, content TEXT UNIQUE)`
	insertNote  = `INSERT INTO notes (content) VALUES (?)`
	selectAll   = `SELECT id, content FROM notes ORDER BY id`
	selectOne   = `SELECT id, content FROM notes WHERE id = ?`
	deleteAll   = `DELETE FROM notes`
	deleteOne   = `DELETE FROM notes WHERE id = ?`
)

// Store is a notes.Repository backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ notes.Repository = (*Store)(nil)

// Open opens (creating if needed) the database at dsn.  ":memory:"
// works; the pool is limited to one connection so every query sees
// the same in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", dsn)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "open sqlite %s", dsn)
	}
	return &Store{db: db}, nil
}

// CreateTable creates the notes table if it does not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createTable)
	return errors.Wrap(err, "create notes table")
}

// Insert stores content as a new note.
func (s *Store) Insert(ctx context.Context, content string) (notes.Note, error) {
	res, err := s.db.ExecContext(ctx, insertNote, content)
	if err != nil {
		return notes.Note{}, errors.Wrap(err, "insert note")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return notes.Note{}, errors.Wrap(err, "insert note")
	}
	return notes.Note{ID: id, Content: content}, nil
}

// FindAll lists notes by id.
func (s *Store) FindAll(ctx context.Context) ([]notes.Note, error) {
	rows, err := s.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, errors.Wrap(err, "select notes")
	}
	defer rows.Close()
	all := []notes.Note{}
	for rows.Next() {
		var n notes.Note
		if err := rows.Scan(&n.ID, &n.Content); err != nil {
			return nil, errors.Wrap(err, "scan note")
		}
		all = append(all, n)
	}
	return all, errors.Wrap(rows.Err(), "select notes")
}

// DeleteAll removes every note.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, deleteAll)
	return errors.Wrap(err, "delete notes")
}

// FindByID reports false when no note has id.
func (s *Store) FindByID(ctx context.Context, id int64) (notes.Note, bool, error) {
	var n notes.Note
	err := s.db.QueryRowContext(ctx, selectOne, id).Scan(&n.ID, &n.Content)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notes.Note{}, false, nil
	case err != nil:
		return notes.Note{}, false, errors.Wrapf(err, "select note %d", id)
	}
	return n, true, nil
}

// DeleteByID removes the note with id, if any.
func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, deleteOne, id)
	return errors.Wrapf(err, "delete note %d", id)
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
