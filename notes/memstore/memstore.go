// Package memstore keeps notes in memory.  It follows the same rules
// as the SQL stores: content is unique and a new note gets one more
// than the largest id in use.
package memstore

import (
	"context"
	"sync"

	"github.com/muir/napi/notes"

	"github.com/pkg/errors"
)

// ErrDuplicate is returned by Insert when the content is already stored.
var ErrDuplicate = errors.New("UNIQUE constraint failed: notes.content")

// Store is a notes.Repository guarded by a mutex.
type Store struct {
	lock  sync.Mutex
	notes []notes.Note
}

var _ notes.Repository = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// CreateTable has nothing to create.
func (s *Store) CreateTable(context.Context) error { return nil }

// Insert stores content as a new note.
func (s *Store) Insert(_ context.Context, content string) (notes.Note, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	var max int64
	for _, n := range s.notes {
		if n.Content == content {
			return notes.Note{}, errors.WithStack(ErrDuplicate)
		}
		if n.ID > max {
			max = n.ID
		}
	}
	n := notes.Note{ID: max + 1, Content: content}
	s.notes = append(s.notes, n)
	return n, nil
}

// FindAll lists notes in insertion order.
func (s *Store) FindAll(context.Context) ([]notes.Note, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	all := make([]notes.Note, len(s.notes))
	copy(all, s.notes)
	return all, nil
}

// DeleteAll removes every note.
func (s *Store) DeleteAll(context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.notes = nil
	return nil
}

// FindByID reports false when no note has id.
func (s *Store) FindByID(_ context.Context, id int64) (notes.Note, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n, true, nil
		}
	}
	return notes.Note{}, false, nil
}

// DeleteByID removes the note with id, if any.
func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i:i], s.notes[i+1:]...)
			return nil
		}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
