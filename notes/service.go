package notes

import (
	"context"
	"fmt"

	"github.com/muir/napi/npoint"
	"github.com/muir/napi/nvelope"
)

// Service implements the notes contract on top of a Repository.
type Service struct {
	repo Repository
	log  nvelope.BasicLogger
}

// NewService creates a Service.  log may be nil.
func NewService(repo Repository, log nvelope.BasicLogger) *Service {
	if log == nil {
		log = nvelope.NoLogger()
	}
	return &Service{repo: repo, log: log}
}

// Bind registers every handler.
func (s *Service) Bind(b *npoint.Binding) *npoint.Binding {
	return b.
		Handle(OpCreateNote, npoint.Typed(s.CreateNote)).
		Handle(OpGetNotes, npoint.Typed(s.GetNotes)).
		Handle(OpDeleteNotes, npoint.Typed(s.DeleteNotes)).
		Handle(OpGetNote, npoint.Typed(s.GetNote)).
		Handle(OpDeleteNote, npoint.Typed(s.DeleteNote))
}

// Dispatcher binds the handlers to API() and builds the dispatcher.
func (s *Service) Dispatcher(opts ...npoint.Option) (*npoint.Dispatcher, error) {
	return s.Bind(npoint.Bind(API(), opts...)).Build()
}

// appError reports a repository failure as a declared 500.
func appError(message string, err error) error {
	return npoint.Fail(500, APIError{Message: message, Details: err.Error()}, err)
}

// CreateNote inserts a note and returns all notes.
func (s *Service) CreateNote(ctx context.Context, _ struct{}, body Content) ([]Note, error) {
	note, err := s.repo.Insert(ctx, body.Content)
	if err != nil {
		return nil, appError("could not create note", err)
	}
	s.log.Debug("created note", map[string]interface{}{"note.id": note.ID})
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, appError("could not create note", err)
	}
	return all, nil
}

// GetNotes lists all notes.
func (s *Service) GetNotes(ctx context.Context, _ struct{}, _ struct{}) ([]Note, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, appError("could not get notes", err)
	}
	return all, nil
}

// DeleteNotes removes all notes.
func (s *Service) DeleteNotes(ctx context.Context, _ struct{}, _ struct{}) (string, error) {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return "", appError("could not delete notes", err)
	}
	return "Deleted all notes", nil
}

// GetNote fetches one note.
func (s *Service) GetNote(ctx context.Context, p IDPath, _ struct{}) (Note, error) {
	note, found, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return Note{}, appError("could not get note", err)
	}
	if !found {
		return Note{}, npoint.Fail(404, APIError{
			Message: "could not get note",
			Details: fmt.Sprintf("note %d does not exist", p.ID),
		}, nil)
	}
	return note, nil
}

// DeleteNote removes one note.
func (s *Service) DeleteNote(ctx context.Context, p IDPath, _ struct{}) (string, error) {
	if err := s.repo.DeleteByID(ctx, p.ID); err != nil {
		return "", appError("could not delete note", err)
	}
	return "Deleted note", nil
}
