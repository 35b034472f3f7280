// Package notes is the notes service: its data types, its contract,
// the handlers that implement the contract, and a typed client.
package notes

import (
	"context"

	"github.com/muir/napi/ncontract"
	"github.com/muir/napi/nshape"
)

// Note is one stored note.
type Note struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Content is the body of createNote.
type Content struct {
	Content string `json:"content" nshape:"nonempty"`
}

// IDPath holds the id path parameter, carried as a decimal string.
type IDPath struct {
	ID int64 `json:"id" nshape:"fromstring"`
}

// APIError is the payload of every declared failure.
type APIError struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

// Operation names.
const (
	OpCreateNote  = "createNote"
	OpGetNotes    = "getNotes"
	OpDeleteNotes = "deleteNotes"
	OpGetNote     = "getNote"
	OpDeleteNote  = "deleteNote"
)

// Error tags.
const (
	TagAPIError = "NoteApiError"
	TagNotFound = "NoteNotFound"
)

var (
	noteShape     = nshape.MustFor[Note]()
	notesShape    = nshape.MustFor[[]Note]()
	contentShape  = nshape.MustFor[Content]()
	idPathShape   = nshape.MustFor[IDPath]()
	apiErrorShape = nshape.MustFor[APIError]()
)

// API is the notes contract.
func API() *ncontract.Contract {
	return ncontract.New("Notes API").
		AddEndpoint(ncontract.Post(OpCreateNote, "/notes").
			Describe("Create a note and return every note").
			Body(contentShape).
			Response(201, notesShape).
			Error(500, TagAPIError, apiErrorShape)).
		AddEndpoint(ncontract.Get(OpGetNotes, "/notes").
			Describe("List notes").
			Response(200, notesShape).
			Error(500, TagAPIError, apiErrorShape)).
		AddEndpoint(ncontract.Delete(OpDeleteNotes, "/notes").
			Describe("Delete every note").
			Response(200, nshape.String()).
			Error(500, TagAPIError, apiErrorShape)).
		AddEndpoint(ncontract.Get(OpGetNote, "/notes/:id").
			Describe("Fetch one note").
			Path(idPathShape).
			Response(200, noteShape).
			Error(404, TagNotFound, apiErrorShape).
			Error(500, TagAPIError, apiErrorShape).
			SpanAttribute("id", "note.id")).
		AddEndpoint(ncontract.Delete(OpDeleteNote, "/notes/:id").
			Describe("Delete one note").
			Path(idPathShape).
			Response(200, nshape.String()).
			Error(500, TagAPIError, apiErrorShape).
			SpanAttribute("id", "note.id"))
}

// Repository stores notes.  Every method may fail; the handlers turn
// failures into NoteApiError responses.
type Repository interface {
	// CreateTable prepares storage.  It is called once before
	// serving and must be idempotent.
	CreateTable(ctx context.Context) error
	// Insert adds a note.  Content is unique.
	Insert(ctx context.Context, content string) (Note, error)
	// FindAll lists notes in insertion order.
	FindAll(ctx context.Context) ([]Note, error)
	DeleteAll(ctx context.Context) error
	// FindByID reports false when there is no such note.
	FindByID(ctx context.Context, id int64) (Note, bool, error)
	// DeleteByID does nothing when there is no such note.
	DeleteByID(ctx context.Context, id int64) error
	Close() error
}
