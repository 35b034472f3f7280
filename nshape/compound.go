package nshape

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// Field is one member of a Struct shape.
type Field struct {
	Name     string
	Shape    Shape
	Optional bool
}

// Required declares a field that must be present.
func Required(name string, s Shape) Field {
	return Field{Name: name, Shape: s}
}

// Optional declares a field that may be absent.  Absence is
// represented by a missing key, never by a nil value.
func Optional(name string, s Shape) Field {
	return Field{Name: name, Shape: s, Optional: true}
}

type structShape struct {
	fields []Field
	byName map[string]int
}

// Struct describes an object with named fields.  Validation visits
// the fields in declaration order and stops at the first failure.
// Decoding ignores keys that are not declared; validation rejects
// them because they could not survive a round trip.
//
// Struct panics if two fields share a name.
func Struct(fields ...Field) Shape {
	s := structShape{
		fields: make([]Field, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	copy(s.fields, fields)
	for i, f := range fields {
		if f.Shape == nil {
			panic(fmt.Sprintf("nshape: field %s has no shape", f.Name))
		}
		if _, dup := s.byName[f.Name]; dup {
			panic(fmt.Sprintf("nshape: duplicate field %s", f.Name))
		}
		s.byName[f.Name] = i
	}
	return s
}

// Fields returns the fields of a Struct shape (looking through
// refinements), or nil if s is not a Struct.
func Fields(s Shape) []Field {
	st, ok := asStruct(s)
	if !ok {
		return nil
	}
	fields := make([]Field, len(st.fields))
	copy(fields, st.fields)
	return fields
}

func asStruct(s Shape) (structShape, bool) {
	for {
		switch t := s.(type) {
		case structShape:
			return t, true
		case refined:
			s = t.base
		default:
			return structShape{}, false
		}
	}
}

func (structShape) Kind() Kind { return KindStruct }

func (s structShape) JSONSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	var required []string
	for _, f := range s.fields {
		schema.WithProperty(f.Name, f.Shape.JSONSchema())
		if !f.Optional {
			required = append(required, f.Name)
		}
	}
	if len(required) > 0 {
		schema.WithRequired(required)
	}
	return schema
}

func (s structShape) validate(path string, v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return invalid(path, "expected object, got %s", describe(v))
	}
	for _, f := range s.fields {
		fv, present := m[f.Name]
		if !present {
			if f.Optional {
				continue
			}
			return invalid(fieldPath(path, f.Name), "is missing")
		}
		if err := f.Shape.validate(fieldPath(path, f.Name), fv); err != nil {
			return err
		}
	}
	for k := range m {
		if _, ok := s.byName[k]; ok {
			continue
		}
		// report the same key every time
		for _, k := range sortedKeys(m) {
			if _, ok := s.byName[k]; !ok {
				return invalid(fieldPath(path, k), "is not a declared field")
			}
		}
	}
	return nil
}

func (s structShape) decode(path string, w interface{}) (interface{}, error) {
	m, ok := wireObject(w)
	if !ok {
		return nil, undecodable(path, "expected object, got %s", describe(w))
	}
	out := make(map[string]interface{}, len(s.fields))
	for _, f := range s.fields {
		fw, present := m[f.Name]
		if !present || fw == nil {
			if f.Optional {
				continue
			}
			return nil, undecodable(fieldPath(path, f.Name), "is missing")
		}
		fv, err := f.Shape.decode(fieldPath(path, f.Name), fw)
		if err != nil {
			return nil, err
		}
		out[f.Name] = fv
	}
	return out, nil
}

func (s structShape) encode(path string, v interface{}) (interface{}, error) {
	m := v.(map[string]interface{})
	out := make(map[string]interface{}, len(m))
	for _, f := range s.fields {
		fv, present := m[f.Name]
		if !present {
			continue
		}
		fw, err := f.Shape.encode(fieldPath(path, f.Name), fv)
		if err != nil {
			return nil, err
		}
		out[f.Name] = fw
	}
	return out, nil
}

type arrayShape struct {
	elem Shape
}

// Array describes a list whose elements all match elem.
func Array(elem Shape) Shape {
	if elem == nil {
		panic("nshape: array element has no shape")
	}
	return arrayShape{elem: elem}
}

func (arrayShape) Kind() Kind { return KindArray }

func (s arrayShape) JSONSchema() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(s.elem.JSONSchema())
}

func (s arrayShape) validate(path string, v interface{}) error {
	a, ok := v.([]interface{})
	if !ok {
		return invalid(path, "expected array, got %s", describe(v))
	}
	for i, ev := range a {
		if err := s.elem.validate(indexPath(path, i), ev); err != nil {
			return err
		}
	}
	return nil
}

func (s arrayShape) decode(path string, w interface{}) (interface{}, error) {
	a, ok := w.([]interface{})
	if !ok {
		return nil, undecodable(path, "expected array, got %s", describe(w))
	}
	out := make([]interface{}, len(a))
	for i, ew := range a {
		ev, err := s.elem.decode(indexPath(path, i), ew)
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

func (s arrayShape) encode(path string, v interface{}) (interface{}, error) {
	a := v.([]interface{})
	out := make([]interface{}, len(a))
	for i, ev := range a {
		ew, err := s.elem.encode(indexPath(path, i), ev)
		if err != nil {
			return nil, err
		}
		out[i] = ew
	}
	return out, nil
}

// VariantSpec is one alternative of a Union.
type VariantSpec struct {
	Tag   string
	Shape Shape
}

// Variant declares a Union alternative.  s must be a Struct shape; the
// discriminating field is added to it by Union.
func Variant(tag string, s Shape) VariantSpec {
	return VariantSpec{Tag: tag, Shape: s}
}

type unionShape struct {
	tagField string
	order    []string
	variants map[string]Shape
}

// Union describes a tagged union.  Every domain value is an object
// whose tagField holds the tag of one variant; the rest of the object
// must match that variant.
//
// Union panics on duplicate tags or non-struct variants.
func Union(tagField string, variants ...VariantSpec) Shape {
	u := unionShape{
		tagField: tagField,
		variants: make(map[string]Shape, len(variants)),
	}
	for _, v := range variants {
		st, ok := asStruct(v.Shape)
		if !ok {
			panic(fmt.Sprintf("nshape: union variant %s is not a struct", v.Tag))
		}
		if _, dup := u.variants[v.Tag]; dup {
			panic(fmt.Sprintf("nshape: duplicate union tag %s", v.Tag))
		}
		if _, clash := st.byName[tagField]; clash {
			panic(fmt.Sprintf("nshape: union variant %s already declares %s", v.Tag, tagField))
		}
		fields := append([]Field{Required(tagField, Literal(v.Tag))}, st.fields...)
		var full Shape = Struct(fields...)
		if r, ok := v.Shape.(refined); ok {
			full = r.rebase(full)
		}
		u.variants[v.Tag] = full
		u.order = append(u.order, v.Tag)
	}
	return u
}

// Tags lists the variant tags of a Union in declaration order.
func Tags(s Shape) []string {
	u, ok := s.(unionShape)
	if !ok {
		return nil
	}
	tags := make([]string, len(u.order))
	copy(tags, u.order)
	return tags
}

func (unionShape) Kind() Kind { return KindUnion }

func (u unionShape) JSONSchema() *openapi3.Schema {
	variants := make([]*openapi3.Schema, 0, len(u.order))
	for _, tag := range u.order {
		variants = append(variants, u.variants[tag].JSONSchema())
	}
	schema := openapi3.NewOneOfSchema(variants...)
	schema.Discriminator = &openapi3.Discriminator{PropertyName: u.tagField}
	return schema
}

func (u unionShape) pick(path string, m map[string]interface{}) (Shape, string, bool) {
	tag, ok := m[u.tagField].(string)
	if !ok {
		return nil, fmt.Sprintf("%s is missing", fieldPath(path, u.tagField)), false
	}
	s, ok := u.variants[tag]
	if !ok {
		return nil, fmt.Sprintf("unknown tag %q", tag), false
	}
	return s, "", true
}

func (u unionShape) validate(path string, v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return invalid(path, "expected object, got %s", describe(v))
	}
	s, reason, ok := u.pick(path, m)
	if !ok {
		return invalid(path, "%s", reason)
	}
	return s.validate(path, v)
}

func (u unionShape) decode(path string, w interface{}) (interface{}, error) {
	m, ok := wireObject(w)
	if !ok {
		return nil, undecodable(path, "expected object, got %s", describe(w))
	}
	s, reason, ok := u.pick(path, m)
	if !ok {
		return nil, undecodable(path, "%s", reason)
	}
	return s.decode(path, m)
}

func (u unionShape) encode(path string, v interface{}) (interface{}, error) {
	s, _, _ := u.pick(path, v.(map[string]interface{}))
	return s.encode(path, v)
}

// wireObject normalises the map types produced by the wire formats.
func wireObject(w interface{}) (map[string]interface{}, bool) {
	switch m := w.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
