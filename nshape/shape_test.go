package nshape_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/muir/napi/nshape"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noteShape = nshape.Struct(
	nshape.Required("id", nshape.Int()),
	nshape.Required("content", nshape.String()),
)

func TestIntFromStringRejectsText(t *testing.T) {
	path := nshape.Struct(nshape.Required("id", nshape.IntFromString()))
	_, err := nshape.Decode(path, map[string]interface{}{"id": "abc"})
	require.Error(t, err)
	var de *nshape.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "id", de.Field)
	assert.Equal(t, "not a number", de.Reason)

	v, err := nshape.Decode(path, map[string]interface{}{"id": "-42"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": int64(-42)}, v)
}

func TestNumberFromString(t *testing.T) {
	s := nshape.NumberFromString()
	v, err := nshape.Decode(s, "3.25")
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)
	for _, bad := range []string{"", "x1", "NaN", "Inf"} {
		_, err := nshape.Decode(s, bad)
		assert.Error(t, err, bad)
	}
}

func TestStructFailsOnFirstField(t *testing.T) {
	outer := nshape.Struct(
		nshape.Required("items", nshape.Array(noteShape)),
		nshape.Required("title", nshape.String()),
	)
	err := nshape.Validate(outer, map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"id": int64(1), "content": "a"},
			map[string]interface{}{"id": int64(2)},
		},
	})
	var ve *nshape.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items[1].content", ve.Field)
	assert.Equal(t, "is missing", ve.Reason)

	err = nshape.Validate(noteShape, map[string]interface{}{"id": "1", "content": 7})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field, "declaration order decides which field is reported")
}

func TestStructUnknownKeys(t *testing.T) {
	v, err := nshape.Decode(noteShape, map[string]interface{}{
		"id": json.Number("3"), "content": "x", "extra": true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": int64(3), "content": "x"}, v)

	err = nshape.Validate(noteShape, map[string]interface{}{"id": int64(3), "content": "x", "extra": true})
	var ve *nshape.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "extra", ve.Field)
}

func TestOptionalFields(t *testing.T) {
	s := nshape.Struct(
		nshape.Required("name", nshape.String()),
		nshape.Optional("nick", nshape.String()),
	)
	assert.NoError(t, nshape.Validate(s, map[string]interface{}{"name": "a"}))
	v, err := nshape.Decode(s, map[string]interface{}{"name": "a", "nick": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "a"}, v)
}

func TestDecodeWireForms(t *testing.T) {
	cases := []struct {
		name string
		wire interface{}
	}{
		{"json", map[string]interface{}{"id": json.Number("7"), "content": "c"}},
		{"float", map[string]interface{}{"id": float64(7), "content": "c"}},
		{"yaml", map[interface{}]interface{}{"id": 7, "content": "c"}},
		{"cbor", map[interface{}]interface{}{"id": uint64(7), "content": "c"}},
	}
	for _, tc := range cases {
		v, err := nshape.Decode(noteShape, tc.wire)
		if assert.NoError(t, err, tc.name) {
			assert.Equal(t, map[string]interface{}{"id": int64(7), "content": "c"}, v, tc.name)
		}
	}

	_, err := nshape.Decode(nshape.Int(), 7.5)
	assert.Error(t, err)
	_, err = nshape.Decode(nshape.Int(), uint64(math.MaxUint64))
	assert.Error(t, err)
	_, err = nshape.Decode(nshape.Int(), "7")
	assert.Error(t, err)
}

func TestRefinements(t *testing.T) {
	s := nshape.NonEmpty(nshape.String())
	var ve *nshape.ValidationError
	require.ErrorAs(t, nshape.Validate(s, ""), &ve)
	assert.Equal(t, "must not be empty", ve.Reason)
	_, err := nshape.Decode(s, "")
	assert.ErrorAs(t, err, &ve)
	_, err = nshape.Encode(s, "")
	assert.Error(t, err, "encode validates first")

	limited := nshape.MaxLength(nshape.MinLength(nshape.String(), 2), 3)
	assert.Error(t, nshape.Validate(limited, "a"))
	assert.NoError(t, nshape.Validate(limited, "ab"))
	assert.NoError(t, nshape.Validate(limited, "äöü"), "length counts runes")
	assert.Error(t, nshape.Validate(limited, "abcd"))

	ranged := nshape.Max(nshape.Min(nshape.Int(), 1), 10)
	assert.Error(t, nshape.Validate(ranged, int64(0)))
	assert.NoError(t, nshape.Validate(ranged, int64(10)))
	assert.Error(t, nshape.Validate(ranged, int64(11)))

	even := nshape.Refine(nshape.Int(), "even", func(v interface{}) error {
		if v.(int64)%2 != 0 {
			return assert.AnError
		}
		return nil
	})
	assert.NoError(t, nshape.Validate(even, int64(4)))
	assert.Error(t, nshape.Validate(even, int64(5)))
	assert.Equal(t, nshape.KindInt, even.Kind())
}

func TestUnion(t *testing.T) {
	u := nshape.Union("_tag",
		nshape.Variant("NotFound", nshape.Struct(nshape.Required("id", nshape.Int()))),
		nshape.Variant("Failed", nshape.Struct(nshape.Required("message", nshape.String()))),
	)
	assert.Equal(t, []string{"NotFound", "Failed"}, nshape.Tags(u))

	v, err := nshape.Decode(u, map[string]interface{}{"_tag": "Failed", "message": "boom"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"_tag": "Failed", "message": "boom"}, v)

	_, err = nshape.Decode(u, map[string]interface{}{"_tag": "Other"})
	assert.Error(t, err)
	_, err = nshape.Decode(u, map[string]interface{}{"id": 1})
	assert.Error(t, err)
	assert.Error(t, nshape.Validate(u, map[string]interface{}{"_tag": "NotFound", "message": "x"}))

	assert.Panics(t, func() {
		nshape.Union("_tag", nshape.Variant("A", nshape.String()))
	})
}

func TestStructPanicsOnDuplicateField(t *testing.T) {
	assert.Panics(t, func() {
		nshape.Struct(nshape.Required("a", nshape.Int()), nshape.Optional("a", nshape.String()))
	})
}

func TestJSONSchema(t *testing.T) {
	schema := nshape.Array(nshape.Struct(
		nshape.Required("id", nshape.Int()),
		nshape.Optional("content", nshape.NonEmpty(nshape.String())),
	)).JSONSchema()
	assert.True(t, schema.Type.Is(openapi3.TypeArray))
	items := schema.Items.Value
	assert.Equal(t, []string{"id"}, items.Required)
	assert.Equal(t, "int64", items.Properties["id"].Value.Format)
	assert.Equal(t, uint64(1), items.Properties["content"].Value.MinLength)
	require.NoError(t, schema.Validate(context.Background()))

	wire, err := nshape.Encode(nshape.Array(noteShape), []interface{}{
		map[string]interface{}{"id": int64(1), "content": "a"},
	})
	require.NoError(t, err)
	assert.NoError(t, nshape.Array(noteShape).JSONSchema().VisitJSON(wire))
}

func TestJSONSchemaStringCarriedBounds(t *testing.T) {
	id := nshape.Min(nshape.IntFromString(), 1)
	schema := id.JSONSchema()
	assert.True(t, schema.Type.Is(openapi3.TypeString))
	assert.Nil(t, schema.Min, "minimum does not apply to a string")
	assert.NotEmpty(t, schema.Pattern)
	assert.NoError(t, schema.VisitJSON("12"))
	assert.Error(t, schema.VisitJSON("twelve"))

	count := nshape.Max(nshape.Min(nshape.Int(), 1), 5).JSONSchema()
	require.NotNil(t, count.Min)
	require.NotNil(t, count.Max)
	assert.Equal(t, 1.0, *count.Min)
	assert.Equal(t, 5.0, *count.Max)

	tagged := nshape.Union("_tag",
		nshape.Variant("A", nshape.Struct(nshape.Required("n", nshape.Number()))),
		nshape.Variant("B", nshape.Struct()),
	).JSONSchema()
	require.Len(t, tagged.OneOf, 2)
	assert.Equal(t, "_tag", tagged.Discriminator.PropertyName)
	assert.NoError(t, tagged.VisitJSON(map[string]interface{}{"_tag": "B"}))
}

func TestStringsMustBeUTF8(t *testing.T) {
	assert.NoError(t, nshape.Validate(nshape.String(), "ünï"))
	assert.Error(t, nshape.Validate(nshape.String(), "a\xffb"))
	_, err := nshape.Decode(nshape.String(), "a\xffb")
	assert.Error(t, err)
	_, err = nshape.Encode(noteShape, map[string]interface{}{"id": int64(1), "content": "a\xffb"})
	assert.Error(t, err, "cannot be sent as JSON intact")
}
