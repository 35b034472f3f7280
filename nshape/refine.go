package nshape

import (
	"fmt"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"
)

// Check is a refinement predicate over a domain value that already
// matches the base shape.
type Check func(v interface{}) error

type refinement struct {
	name  string
	check Check
	// schema adds the constraint to the wire schema when the wire
	// form can express it.  Nil for Refine.
	schema func(*openapi3.Schema)
}

type refined struct {
	base   Shape
	checks []refinement
}

// Refine attaches a named constraint to a Shape.  The constraint is
// checked by Validate, by Encode, and on the result of Decode.
func Refine(s Shape, name string, check Check) Shape {
	return refine(s, refinement{name: name, check: check})
}

func refine(s Shape, r refinement) Shape {
	if existing, ok := s.(refined); ok {
		checks := make([]refinement, len(existing.checks), len(existing.checks)+1)
		copy(checks, existing.checks)
		return refined{base: existing.base, checks: append(checks, r)}
	}
	return refined{base: s, checks: []refinement{r}}
}

// rebase keeps the refinements but swaps the underlying shape.
func (s refined) rebase(base Shape) Shape {
	return refined{base: base, checks: s.checks}
}

// NonEmpty requires a string or array to have at least one element.
func NonEmpty(s Shape) Shape {
	return MinLength(s, 1)
}

// MinLength requires a string (counted in runes) or an array to
// have at least n elements.
func MinLength(s Shape, n int) Shape {
	return refine(s, refinement{
		name:   fmt.Sprintf("minLength(%d)", n),
		schema: func(schema *openapi3.Schema) {
			switch {
			case schema.Type.Is(openapi3.TypeArray):
				schema.WithMinItems(int64(n))
			case schema.Type.Is(openapi3.TypeObject):
				schema.WithMinProperties(int64(n))
			case schema.Type.Is(openapi3.TypeString):
				schema.WithMinLength(int64(n))
			}
		},
		check: func(v interface{}) error {
			if l := length(v); l < n {
				if n == 1 {
					return fmt.Errorf("must not be empty")
				}
				return fmt.Errorf("length %d is less than %d", l, n)
			}
			return nil
		},
	})
}

// MaxLength requires a string (counted in runes) or an array to
// have at most n elements.
func MaxLength(s Shape, n int) Shape {
	return refine(s, refinement{
		name:   fmt.Sprintf("maxLength(%d)", n),
		schema: func(schema *openapi3.Schema) {
			switch {
			case schema.Type.Is(openapi3.TypeArray):
				schema.WithMaxItems(int64(n))
			case schema.Type.Is(openapi3.TypeObject):
				schema.WithMaxProperties(int64(n))
			case schema.Type.Is(openapi3.TypeString):
				schema.WithMaxLength(int64(n))
			}
		},
		check: func(v interface{}) error {
			if l := length(v); l > n {
				return fmt.Errorf("length %d is more than %d", l, n)
			}
			return nil
		},
	})
}

// Min requires an integer or number to be at least min.
func Min(s Shape, min float64) Shape {
	return refine(s, refinement{
		name:   fmt.Sprintf("min(%g)", min),
		schema: func(schema *openapi3.Schema) {
			if numericSchema(schema) {
				schema.WithMin(min)
			}
		},
		check: func(v interface{}) error {
			if f := numeric(v); f < min {
				return fmt.Errorf("%g is less than %g", f, min)
			}
			return nil
		},
	})
}

// Max requires an integer or number to be at most max.
func Max(s Shape, max float64) Shape {
	return refine(s, refinement{
		name:   fmt.Sprintf("max(%g)", max),
		schema: func(schema *openapi3.Schema) {
			if numericSchema(schema) {
				schema.WithMax(max)
			}
		},
		check: func(v interface{}) error {
			if f := numeric(v); f > max {
				return fmt.Errorf("%g is more than %g", f, max)
			}
			return nil
		},
	})
}

func (s refined) Kind() Kind { return s.base.Kind() }

func (s refined) JSONSchema() *openapi3.Schema {
	schema := s.base.JSONSchema()
	for _, r := range s.checks {
		if r.schema != nil {
			r.schema(schema)
		}
	}
	return schema
}

func (s refined) validate(path string, v interface{}) error {
	if err := s.base.validate(path, v); err != nil {
		return err
	}
	return s.runChecks(path, v)
}

func (s refined) decode(path string, w interface{}) (interface{}, error) {
	v, err := s.base.decode(path, w)
	if err != nil {
		return nil, err
	}
	if err := s.runChecks(path, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s refined) encode(path string, v interface{}) (interface{}, error) {
	return s.base.encode(path, v)
}

func (s refined) runChecks(path string, v interface{}) error {
	for _, r := range s.checks {
		if err := r.check(v); err != nil {
			return &ValidationError{Field: path, Reason: err.Error()}
		}
	}
	return nil
}

func length(v interface{}) int {
	switch t := v.(type) {
	case string:
		return utf8.RuneCountInString(t)
	case []interface{}:
		return len(t)
	case map[string]interface{}:
		return len(t)
	}
	return 0
}

func numeric(v interface{}) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		return t
	}
	return 0
}

// numericSchema is false for numbers carried as strings: a bound on
// them has no JSON Schema form.
func numericSchema(schema *openapi3.Schema) bool {
	return schema.Type.Is(openapi3.TypeInteger) || schema.Type.Is(openapi3.TypeNumber)
}
