package nshape

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"
)

// Kind names the structural category of a Shape.
type Kind string

const (
	KindString  Kind = "string"
	KindInt     Kind = "integer"
	KindNumber  Kind = "number"
	KindBool    Kind = "boolean"
	KindLiteral Kind = "literal"
	KindStruct  Kind = "struct"
	KindArray   Kind = "array"
	KindUnion   Kind = "union"
)

// Shape is a declarative description of a value.  The set of
// implementations is closed: use the constructors in this package.
type Shape interface {
	Kind() Kind
	// JSONSchema describes the wire form of the Shape.  Every call
	// returns a new tree that the caller may modify.
	JSONSchema() *openapi3.Schema

	validate(path string, v interface{}) error
	decode(path string, w interface{}) (interface{}, error)
	encode(path string, v interface{}) (interface{}, error)
}

// Validate checks that a domain value conforms to s.
func Validate(s Shape, v interface{}) error {
	return s.validate("", v)
}

// Decode converts a wire value into a domain value.  Refinements are
// checked on the result so a nil error means the value is valid.
func Decode(s Shape, w interface{}) (interface{}, error) {
	return s.decode("", w)
}

// Encode converts a domain value into a wire value.  The value
// is validated first: nothing that fails validation gets encoded.
func Encode(s Shape, v interface{}) (interface{}, error) {
	if err := s.validate("", v); err != nil {
		return nil, err
	}
	return s.encode("", v)
}

type stringShape struct{}

// String matches any string.
func String() Shape { return stringShape{} }

func (stringShape) Kind() Kind { return KindString }

func (stringShape) JSONSchema() *openapi3.Schema {
	return openapi3.NewStringSchema()
}

// Strings must be valid UTF-8: the JSON format would replace bad
// bytes and the value would not survive a round trip.
func (stringShape) validate(path string, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return invalid(path, "expected string, got %s", describe(v))
	}
	if !utf8.ValidString(s) {
		return invalid(path, "not valid UTF-8")
	}
	return nil
}

func (stringShape) decode(path string, w interface{}) (interface{}, error) {
	s, ok := w.(string)
	if !ok {
		return nil, undecodable(path, "expected string, got %s", describe(w))
	}
	if !utf8.ValidString(s) {
		return nil, undecodable(path, "not valid UTF-8")
	}
	return s, nil
}

func (stringShape) encode(_ string, v interface{}) (interface{}, error) { return v, nil }

type intShape struct{}

// Int matches integers.  The domain representation is int64.
func Int() Shape { return intShape{} }

func (intShape) Kind() Kind { return KindInt }

func (intShape) JSONSchema() *openapi3.Schema {
	return openapi3.NewInt64Schema()
}

func (intShape) validate(path string, v interface{}) error {
	if _, ok := v.(int64); !ok {
		return invalid(path, "expected integer, got %s", describe(v))
	}
	return nil
}

func (intShape) decode(path string, w interface{}) (interface{}, error) {
	i, ok := wireInt(w)
	if !ok {
		return nil, undecodable(path, "expected integer, got %s", describe(w))
	}
	return i, nil
}

func (intShape) encode(_ string, v interface{}) (interface{}, error) { return v, nil }

type numberShape struct{}

// Number matches finite numbers.  The domain representation is float64.
func Number() Shape { return numberShape{} }

func (numberShape) Kind() Kind { return KindNumber }

func (numberShape) JSONSchema() *openapi3.Schema {
	return openapi3.NewFloat64Schema()
}

func (numberShape) validate(path string, v interface{}) error {
	f, ok := v.(float64)
	if !ok {
		return invalid(path, "expected number, got %s", describe(v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return invalid(path, "not a finite number")
	}
	return nil
}

func (s numberShape) decode(path string, w interface{}) (interface{}, error) {
	f, ok := wireFloat(w)
	if !ok {
		return nil, undecodable(path, "expected number, got %s", describe(w))
	}
	if err := s.validate(path, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (numberShape) encode(_ string, v interface{}) (interface{}, error) { return v, nil }

type boolShape struct{}

// Bool matches true and false.
func Bool() Shape { return boolShape{} }

func (boolShape) Kind() Kind { return KindBool }

func (boolShape) JSONSchema() *openapi3.Schema {
	return openapi3.NewBoolSchema()
}

func (boolShape) validate(path string, v interface{}) error {
	if _, ok := v.(bool); !ok {
		return invalid(path, "expected boolean, got %s", describe(v))
	}
	return nil
}

func (boolShape) decode(path string, w interface{}) (interface{}, error) {
	b, ok := w.(bool)
	if !ok {
		return nil, undecodable(path, "expected boolean, got %s", describe(w))
	}
	return b, nil
}

func (boolShape) encode(_ string, v interface{}) (interface{}, error) { return v, nil }

type intFromString struct{}

// IntFromString is an integer carried on the wire as a decimal string.
// It is used for path parameters.  The domain representation is int64.
func IntFromString() Shape { return intFromString{} }

func (intFromString) Kind() Kind { return KindInt }

func (intFromString) JSONSchema() *openapi3.Schema {
	return openapi3.NewStringSchema().WithPattern(`^[-+]?[0-9]+$`)
}

func (intFromString) validate(path string, v interface{}) error {
	return intShape{}.validate(path, v)
}

func (intFromString) decode(path string, w interface{}) (interface{}, error) {
	s, ok := w.(string)
	if !ok {
		return nil, undecodable(path, "expected string, got %s", describe(w))
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, undecodable(path, "not a number")
	}
	return i, nil
}

func (intFromString) encode(_ string, v interface{}) (interface{}, error) {
	return strconv.FormatInt(v.(int64), 10), nil
}

type numberFromString struct{}

// NumberFromString is a finite number carried on the wire as a string.
// The domain representation is float64.
func NumberFromString() Shape { return numberFromString{} }

func (numberFromString) Kind() Kind { return KindNumber }

func (numberFromString) JSONSchema() *openapi3.Schema {
	return openapi3.NewStringSchema().WithPattern(`^[-+]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?$`)
}

func (numberFromString) validate(path string, v interface{}) error {
	return numberShape{}.validate(path, v)
}

func (numberFromString) decode(path string, w interface{}) (interface{}, error) {
	s, ok := w.(string)
	if !ok {
		return nil, undecodable(path, "expected string, got %s", describe(w))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, undecodable(path, "not a number")
	}
	return f, nil
}

func (numberFromString) encode(_ string, v interface{}) (interface{}, error) {
	return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
}

type literalShape struct {
	value string
}

// Literal matches exactly one string.  It is most often used as the
// discriminating field of a Union variant.
func Literal(value string) Shape { return literalShape{value: value} }

func (literalShape) Kind() Kind { return KindLiteral }

func (s literalShape) JSONSchema() *openapi3.Schema {
	return openapi3.NewStringSchema().WithEnum(s.value)
}

func (s literalShape) validate(path string, v interface{}) error {
	if v != s.value {
		return invalid(path, "expected %q, got %s", s.value, describe(v))
	}
	return nil
}

func (s literalShape) decode(path string, w interface{}) (interface{}, error) {
	if w != s.value {
		return nil, undecodable(path, "expected %q, got %s", s.value, describe(w))
	}
	return s.value, nil
}

func (literalShape) encode(_ string, v interface{}) (interface{}, error) { return v, nil }

// wireInt accepts every integer representation the wire formats
// produce, and floats that carry an exact integer.
func wireInt(w interface{}) (int64, bool) {
	switch n := w.(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	}
	v := reflect.ValueOf(w)
	// nolint:exhaustive
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func wireFloat(w interface{}) (float64, bool) {
	switch n := w.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := wireInt(w); ok {
		return float64(i), true
	}
	return 0, false
}

func describe(v interface{}) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float32, float64:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}, map[interface{}]interface{}:
		return "object"
	}
	return reflect.TypeOf(v).String()
}
