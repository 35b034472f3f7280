package nshape

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// Of compiles a Shape from a Go type.  The mapping is:
//
//	string                     String
//	int*, uint*                Int (uint* adds Min(0))
//	float*                     Number
//	bool                       Bool
//	slice, array               Array of the element
//	struct                     Struct; fields are named by their json tag
//	pointer                    the element; struct fields become Optional
//
// Struct fields can carry an `nshape` tag with comma separated options:
//
//	nonempty        NonEmpty
//	minlen=N        MinLength
//	maxlen=N        MaxLength
//	min=N           Min
//	max=N           Max
//	fromstring      IntFromString / NumberFromString
//	optional        Optional (also implied by json ",omitempty")
//
// Fields tagged json:"-" and unexported fields are skipped.  Embedded
// structs without a json name are flattened, as encoding/json does.
func Of(t reflect.Type) (Shape, error) {
	return derive(t, nil)
}

// For is Of for a type parameter.
func For[T any]() (Shape, error) {
	return Of(reflect.TypeOf((*T)(nil)).Elem())
}

// MustFor is For that panics.  It is meant for package-level
// declarations.
func MustFor[T any]() Shape {
	s, err := For[T]()
	if err != nil {
		panic(err.Error())
	}
	return s
}

func derive(t reflect.Type, seen map[reflect.Type]bool) (Shape, error) {
	// nolint:exhaustive
	switch t.Kind() {
	case reflect.Ptr:
		return derive(t.Elem(), seen)
	case reflect.String:
		return String(), nil
	case reflect.Bool:
		return Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Min(Int(), 0), nil
	case reflect.Float32, reflect.Float64:
		return Number(), nil
	case reflect.Slice, reflect.Array:
		elem, err := derive(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		return Array(elem), nil
	case reflect.Struct:
		if seen[t] {
			return nil, errors.Errorf("recursive type %s is not supported", t)
		}
		next := make(map[reflect.Type]bool, len(seen)+1)
		for k := range seen {
			next[k] = true
		}
		next[t] = true
		return deriveStruct(t, next)
	default:
		return nil, errors.Errorf("cannot derive a shape for %s", t)
	}
}

func deriveStruct(t reflect.Type, seen map[reflect.Type]bool) (Shape, error) {
	var fields []Field
	var anyErr error
	for _, gf := range goFields(t) {
		s, err := derive(gf.field.Type, seen)
		if err != nil {
			anyErr = errors.Wrapf(err, "field %s of %s", gf.field.Name, t)
			break
		}
		opts, err := parseShapeTag(gf.field.Tag.Get("nshape"))
		if err != nil {
			anyErr = errors.Wrapf(err, "field %s of %s", gf.field.Name, t)
			break
		}
		s, err = opts.apply(s)
		if err != nil {
			anyErr = errors.Wrapf(err, "field %s of %s", gf.field.Name, t)
			break
		}
		optional := gf.omitEmpty || opts.optional || gf.field.Type.Kind() == reflect.Ptr
		fields = append(fields, Field{Name: gf.name, Shape: s, Optional: optional})
	}
	if anyErr != nil {
		return nil, anyErr
	}
	return Struct(fields...), nil
}

type goField struct {
	name      string
	field     reflect.StructField
	omitEmpty bool
}

var fieldCache sync.Map

// goFields lists the fields of a struct type that participate in
// shapes, keyed by wire name.  The field Index is relative to t.
func goFields(t reflect.Type) []goField {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]goField)
	}
	var fields []goField
	reflectutils.WalkStructElements(t, func(field reflect.StructField) bool {
		name, omitEmpty, skip := jsonName(field)
		if skip {
			return false
		}
		if field.Anonymous && name == "" {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				return true
			}
		}
		if field.PkgPath != "" {
			return false
		}
		if name == "" {
			name = field.Name
		}
		fields = append(fields, goField{name: name, field: field, omitEmpty: omitEmpty})
		return false
	})
	fieldCache.Store(t, fields)
	return fields
}

func jsonName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return "", false, false
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

type shapeTag struct {
	optional   bool
	fromString bool
	nonEmpty   bool
	minLen     *int
	maxLen     *int
	min        *float64
	max        *float64
}

func parseShapeTag(tag string) (shapeTag, error) {
	var opts shapeTag
	if tag == "" {
		return opts, nil
	}
	for _, part := range strings.Split(tag, ",") {
		kv := strings.SplitN(part, "=", 2)
		k := strings.TrimSpace(kv[0])
		var val string
		if len(kv) == 2 {
			val = kv[1]
		}
		switch k {
		case "":
		case "optional":
			opts.optional = true
		case "fromstring":
			opts.fromString = true
		case "nonempty":
			opts.nonEmpty = true
		case "minlen", "maxlen":
			n, err := strconv.Atoi(val)
			if err != nil {
				return opts, errors.Wrapf(err, "nshape tag %s", k)
			}
			if k == "minlen" {
				opts.minLen = &n
			} else {
				opts.maxLen = &n
			}
		case "min", "max":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return opts, errors.Wrapf(err, "nshape tag %s", k)
			}
			if k == "min" {
				opts.min = &f
			} else {
				opts.max = &f
			}
		default:
			return opts, errors.Errorf("unknown nshape tag option '%s'", k)
		}
	}
	return opts, nil
}

func (opts shapeTag) apply(s Shape) (Shape, error) {
	if opts.fromString {
		switch t := s.(type) {
		case intShape:
			s = IntFromString()
		case numberShape:
			s = NumberFromString()
		case refined:
			// uint: keep the Min(0) refinement
			if _, ok := t.base.(intShape); !ok {
				return nil, errors.New("fromstring requires an integer or number")
			}
			s = t.rebase(IntFromString())
		default:
			return nil, errors.New("fromstring requires an integer or number")
		}
	}
	if opts.nonEmpty {
		s = NonEmpty(s)
	}
	if opts.minLen != nil {
		s = MinLength(s, *opts.minLen)
	}
	if opts.maxLen != nil {
		s = MaxLength(s, *opts.maxLen)
	}
	if opts.min != nil {
		s = Min(s, *opts.min)
	}
	if opts.max != nil {
		s = Max(s, *opts.max)
	}
	return s, nil
}
