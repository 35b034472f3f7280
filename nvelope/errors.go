package nvelope

import (
	"github.com/pkg/errors"
)

// ReturnCode associates an HTTP return code with a error.
// if err is nil, then nil is returned.
func ReturnCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return returnCode{
		cause: err,
		code:  code,
	}
}

type returnCode struct {
	cause error
	code  int
}

func (err returnCode) Cause() error {
	return err.cause
}

func (err returnCode) Unwrap() error {
	return err.cause
}

func (err returnCode) Error() string {
	return err.cause.Error()
}

// NotFound annotates an error has giving 404 HTTP return code
func NotFound(err error) error {
	return ReturnCode(err, 404)
}

// BadRequest annotates an error has giving 400 HTTP return code
func BadRequest(err error) error {
	return ReturnCode(err, 400)
}

// RequestTooLarge annotates an error has giving 413 HTTP return code
func RequestTooLarge(err error) error {
	return ReturnCode(err, 413)
}

// UnsupportedMediaType annotates an error has giving 415 HTTP return code
func UnsupportedMediaType(err error) error {
	return ReturnCode(err, 415)
}

// GetReturnCode finds the code attached with ReturnCode.  Errors
// without one are 500.
func GetReturnCode(err error) int {
	var rc returnCode
	if errors.As(err, &rc) {
		return rc.code
	}
	return 500
}
