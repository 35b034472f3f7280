package nshape

import (
	"math"
	"reflect"

	"github.com/pkg/errors"
)

var (
	anyType         = reflect.TypeOf((*interface{})(nil)).Elem()
	stringAnyMapTyp = reflect.TypeOf(map[string]interface{}{})
)

// FromGo converts a Go value into a domain value using the same field
// naming rules as Of.  Nil slices become empty arrays and nil pointers
// become absent fields.  FromGo does not validate; Encode does.
func FromGo(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	return fromGo("", reflect.ValueOf(v))
}

func fromGo(path string, v reflect.Value) (interface{}, error) {
	// nolint:exhaustive
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil, nil
		}
		return fromGo(path, v.Elem())
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, errors.Errorf("%s: %d overflows int64", pathOrRoot(path), u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, v.Len())
		for i := range out {
			ev, err := fromGo(indexPath(path, i), v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, errors.Errorf("%s: map keys must be strings, not %s", pathOrRoot(path), v.Type().Key())
		}
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			ev, err := fromGo(fieldPath(path, k), iter.Value())
			if err != nil {
				return nil, err
			}
			if ev != nil {
				out[k] = ev
			}
		}
		return out, nil
	case reflect.Struct:
		out := make(map[string]interface{})
		for _, gf := range goFields(v.Type()) {
			f, ok := fieldByIndex(v, gf.field.Index)
			if !ok {
				continue
			}
			if gf.omitEmpty && f.IsZero() {
				continue
			}
			ev, err := fromGo(fieldPath(path, gf.name), f)
			if err != nil {
				return nil, err
			}
			if ev != nil {
				out[gf.name] = ev
			}
		}
		return out, nil
	default:
		return nil, errors.Errorf("%s: cannot convert %s", pathOrRoot(path), v.Type())
	}
}

// fieldByIndex is reflect.Value.FieldByIndex that reports a nil
// embedded pointer rather than panicking.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// ToGo stores a domain value into the Go value that dst points to.
// It is the inverse of FromGo.
func ToGo(v interface{}, dst interface{}) error {
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Ptr || target.IsNil() {
		return errors.Errorf("ToGo requires a non-nil pointer, got %T", dst)
	}
	return toGo("", v, target.Elem())
}

func toGo(path string, v interface{}, target reflect.Value) error {
	if v == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	if target.Type() == anyType {
		target.Set(reflect.ValueOf(v))
		return nil
	}
	mismatch := func() error {
		return errors.Errorf("%s: cannot store %s into %s", pathOrRoot(path), describe(v), target.Type())
	}
	// nolint:exhaustive
	switch target.Kind() {
	case reflect.Ptr:
		p := reflect.New(target.Type().Elem())
		if err := toGo(path, v, p.Elem()); err != nil {
			return err
		}
		target.Set(p)
		return nil
	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return mismatch()
		}
		target.SetString(s)
	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return mismatch()
		}
		target.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.(int64)
		if !ok {
			return mismatch()
		}
		if target.OverflowInt(i) {
			return errors.Errorf("%s: %d overflows %s", pathOrRoot(path), i, target.Type())
		}
		target.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		i, ok := v.(int64)
		if !ok {
			return mismatch()
		}
		if i < 0 || target.OverflowUint(uint64(i)) {
			return errors.Errorf("%s: %d overflows %s", pathOrRoot(path), i, target.Type())
		}
		target.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		switch n := v.(type) {
		case float64:
			target.SetFloat(n)
		case int64:
			target.SetFloat(float64(n))
		default:
			return mismatch()
		}
	case reflect.Slice:
		a, ok := v.([]interface{})
		if !ok {
			return mismatch()
		}
		s := reflect.MakeSlice(target.Type(), len(a), len(a))
		for i, ev := range a {
			if err := toGo(indexPath(path, i), ev, s.Index(i)); err != nil {
				return err
			}
		}
		target.Set(s)
	case reflect.Array:
		a, ok := v.([]interface{})
		if !ok || len(a) != target.Len() {
			return mismatch()
		}
		for i, ev := range a {
			if err := toGo(indexPath(path, i), ev, target.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		m, ok := v.(map[string]interface{})
		if !ok || target.Type().Key().Kind() != reflect.String {
			return mismatch()
		}
		if target.Type() == stringAnyMapTyp {
			target.Set(reflect.ValueOf(m))
			return nil
		}
		out := reflect.MakeMapWithSize(target.Type(), len(m))
		for k, ev := range m {
			ep := reflect.New(target.Type().Elem())
			if err := toGo(fieldPath(path, k), ev, ep.Elem()); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(target.Type().Key()), ep.Elem())
		}
		target.Set(out)
	case reflect.Struct:
		m, ok := v.(map[string]interface{})
		if !ok {
			return mismatch()
		}
		target.Set(reflect.Zero(target.Type()))
		for _, gf := range goFields(target.Type()) {
			ev, present := m[gf.name]
			if !present {
				continue
			}
			f := fieldByIndexAlloc(target, gf.field.Index)
			if err := toGo(fieldPath(path, gf.name), ev, f); err != nil {
				return err
			}
		}
	default:
		return mismatch()
	}
	return nil
}

// fieldByIndexAlloc walks to a field allocating nil embedded pointers
// on the way.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

func pathOrRoot(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
