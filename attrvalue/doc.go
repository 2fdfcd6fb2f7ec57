/*
Package attrvalue converts between native Go values and the tagged-union
attribute values a DynamoDB-style store expects on the wire.

Every encoded value carries exactly one of seven tags:

	S     string
	N     decimal text (decoded as json.Number, never as float64)
	B     bytes
	BOOL  bool
	NULL  explicit absence of a value
	L     ordered list of values
	M     string-keyed map of values

The package works on the SDK's sealed union types.AttributeValue and on the
equivalent JSON form ({"S": "abc"}), so callers can hand either ergonomic
native maps or pre-encoded items to the same write path:

	av, err := attrvalue.Normalize(map[string]any{"N": "42"}) // already wire encoded
	av, err := attrvalue.Normalize(42)                        // native

Round trips are exact: Decode(Encode(x)) == x for canonical native values and
Encode(Decode(v)) == v for every well-formed attribute value. Values with no
representation (NaN, functions, structs, cycles) are rejected with an
UnsupportedValueError instead of being coerced.
*/
package attrvalue
