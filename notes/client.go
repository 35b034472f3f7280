package notes

import (
	"context"

	"github.com/muir/napi/nclient"

	"github.com/pkg/errors"
)

// Client is the typed notes client.  Declared failures come back as
// *nclient.DeclaredError; use APIErrorOf to read the payload.
type Client struct {
	c *nclient.Client
}

// NewClient builds a client for API().
func NewClient(cfg nclient.Config, opts ...nclient.Option) (*Client, error) {
	c, err := nclient.New(API(), cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

// Generic returns the untyped client.
func (c *Client) Generic() *nclient.Client { return c.c }

// CreateNote adds a note and returns every note.
func (c *Client) CreateNote(ctx context.Context, content string) ([]Note, error) {
	return nclient.Invoke[[]Note](ctx, c.c, OpCreateNote, nclient.Args{Body: Content{Content: content}})
}

// GetNotes lists every note.
func (c *Client) GetNotes(ctx context.Context) ([]Note, error) {
	return nclient.Invoke[[]Note](ctx, c.c, OpGetNotes, nclient.Args{})
}

// DeleteNotes removes every note.
func (c *Client) DeleteNotes(ctx context.Context) (string, error) {
	return nclient.Invoke[string](ctx, c.c, OpDeleteNotes, nclient.Args{})
}

// GetNote fetches one note.  A missing note is a declared
// NoteNotFound failure.
func (c *Client) GetNote(ctx context.Context, id int64) (Note, error) {
	return nclient.Invoke[Note](ctx, c.c, OpGetNote, nclient.Args{Path: IDPath{ID: id}})
}

// DeleteNote removes one note.
func (c *Client) DeleteNote(ctx context.Context, id int64) (string, error) {
	return nclient.Invoke[string](ctx, c.c, OpDeleteNote, nclient.Args{Path: IDPath{ID: id}})
}

// APIErrorOf extracts the APIError carried by a declared failure.
func APIErrorOf(err error) (APIError, *nclient.DeclaredError, bool) {
	var declared *nclient.DeclaredError
	if err == nil || !errors.As(err, &declared) {
		return APIError{}, nil, false
	}
	var payload APIError
	if declared.As(&payload) != nil {
		return APIError{}, declared, false
	}
	return payload, declared, true
}
