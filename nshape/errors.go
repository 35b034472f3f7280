package nshape

import (
	"fmt"
	"strconv"
)

// ValidationError reports a domain value that does not conform to
// a Shape.  Field is a dotted path to the offending element, empty
// for the root.
type ValidationError struct {
	Field  string
	Reason string
}

func (err *ValidationError) Error() string {
	if err.Field == "" {
		return "invalid value: " + err.Reason
	}
	return fmt.Sprintf("invalid value at %s: %s", err.Field, err.Reason)
}

// DecodeError reports a wire value that cannot be turned into a
// domain value.
type DecodeError struct {
	Field  string
	Reason string
}

func (err *DecodeError) Error() string {
	if err.Field == "" {
		return "cannot decode: " + err.Reason
	}
	return fmt.Sprintf("cannot decode %s: %s", err.Field, err.Reason)
}

func invalid(path string, format string, args ...interface{}) error {
	return &ValidationError{Field: path, Reason: fmt.Sprintf(format, args...)}
}

func undecodable(path string, format string, args ...interface{}) error {
	return &DecodeError{Field: path, Reason: fmt.Sprintf(format, args...)}
}

func fieldPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
