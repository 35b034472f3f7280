/*

Package nshape describes the structure of values that cross an API
boundary and derives validation, decoding, and encoding from that
description.

A Shape is immutable.  The same Shape is used by the server to decode
requests and encode responses and by the client to encode requests and
decode responses, so both sides agree by construction.

Values come in two forms.  Wire values are whatever a wire format
produced: json.Number, float64, uint64, map[interface{}]interface{} and
the like.  Domain values are a canonical tree: string, int64, float64,
bool, []any, and map[string]any.  Decode turns wire values into domain
values, Encode turns domain values back into wire values, and Validate
checks that a domain value conforms.  For any value accepted by
Validate, Decode(Encode(v)) returns a value equal to v.

Shapes can be built directly:

	note := nshape.Struct(
		nshape.Required("id", nshape.Int()),
		nshape.Required("content", nshape.NonEmpty(nshape.String())),
	)

or derived from a Go type with Of or For.  ToGo and FromGo move domain
values in and out of Go types.

*/
package nshape
