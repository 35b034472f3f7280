// Package pgstore keeps notes in PostgreSQL through a pgx pool.
package pgstore

import (
	"context"

	"github.com/muir/napi/notes"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS notes (id SERIAL PRIMARY KEY, content TEXT UNIQUE)`
	insertNote  = `INSERT INTO notes (content) VALUES ($1) RETURNING id, content`
	selectAll   = `SELECT id, content FROM notes ORDER BY id`
	selectOne   = `SELECT id, content FROM notes WHERE id = $1`
	deleteAll   = `DELETE FROM notes`
	deleteOne   = `DELETE FROM notes WHERE id = $1`
)

// Store is a notes.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ notes.Repository = (*Store)(nil)

// Open connects to dsn, a postgres:// URL or key=value string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &Store{pool: pool}, nil
}

// CreateTable creates the notes table if it does not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createTable)
	return errors.Wrap(err, "create notes table")
}

// Insert stores content as a new note.
func (s *Store) Insert(ctx context.Context, content string) (notes.Note, error) {
	var n notes.Note
	err := s.pool.QueryRow(ctx, insertNote, content).Scan(&n.ID, &n.Content)
	return n, errors.Wrap(err, "insert note")
}

// FindAll lists notes by id.
func (s *Store) FindAll(ctx context.Context) ([]notes.Note, error) {
	rows, err := s.pool.Query(ctx, selectAll)
	if err != nil {
		return nil, errors.Wrap(err, "select notes")
	}
	all, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notes.Note, error) {
		var n notes.Note
		err := row.Scan(&n.ID, &n.Content)
		return n, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "select notes")
	}
	if all == nil {
		all = []notes.Note{}
	}
	return all, nil
}

// DeleteAll removes every note.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, deleteAll)
	return errors.Wrap(err, "delete notes")
}

// FindByID reports false when no note has id.
func (s *Store) FindByID(ctx context.Context, id int64) (notes.Note, bool, error) {
	var n notes.Note
	err := s.pool.QueryRow(ctx, selectOne, id).Scan(&n.ID, &n.Content)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return notes.Note{}, false, nil
	case err != nil:
		return notes.Note{}, false, errors.Wrapf(err, "select note %d", id)
	}
	return n, true, nil
}

// DeleteByID removes the note with id, if any.
func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, deleteOne, id)
	return errors.Wrapf(err, "delete note %d", id)
}

// Close releases the database.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
