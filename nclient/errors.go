package nclient

import (
	"fmt"

	"github.com/muir/napi/nshape"
)

// DeclaredError is a failure the endpoint declares in its contract.
// Payload has been decoded with the declared Shape.
type DeclaredError struct {
	Operation string
	Status    int
	Tag       string
	Payload   interface{}
}

func (e *DeclaredError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Operation, e.Tag, e.Status)
}

// As stores the payload into the Go value dst points to.
func (e *DeclaredError) As(dst interface{}) error {
	return nshape.ToGo(e.Payload, dst)
}

// UnexpectedError is any response that the contract does not
// describe: an undeclared status, or a body that does not decode.
// Message and Details are filled in when the body has that form.
type UnexpectedError struct {
	Operation string
	Status    int
	RequestID string
	Message   string
	Details   string
	cause     error
}

func (e *UnexpectedError) Error() string {
	msg := fmt.Sprintf("%s: unexpected response %d", e.Operation, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *UnexpectedError) Unwrap() error { return e.cause }
