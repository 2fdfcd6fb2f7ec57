/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attrvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/errors"
)

// MaxDepth is the deepest List/Map nesting the codec will encode or decode.
// DynamoDB rejects documents nested deeper than 32 levels; the bound also
// stops cyclic maps and slices.
const MaxDepth = 32

// Encode converts a native Go value into its tagged attribute value.
//
// Strings, booleans and nil map to S, BOOL and NULL. json.Number and every Go
// integer and float kind map to N. []byte maps to B. Slices and arrays map to
// L and maps with string keys map to M, both recursively. A value that already
// is a types.AttributeValue is returned unchanged.
//
// Anything else, including NaN and infinities, fails with an
// *errors.UnsupportedValueError.
func Encode(v any) (types.AttributeValue, error) {
	return encode(v, 0)
}

// EncodeMap encodes every value of m and returns the M payload.
func EncodeMap(m map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := encode(v, 1)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func encode(v any, depth int) (types.AttributeValue, error) {
	if depth > MaxDepth {
		return nil, errors.NewUnsupportedValueError(v, fmt.Sprintf("nesting deeper than %d levels", MaxDepth))
	}

	switch tv := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case types.AttributeValue:
		return tv, nil
	case string:
		return &types.AttributeValueMemberS{Value: tv}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: tv}, nil
	case json.Number:
		if !isDecimal(string(tv)) {
			return nil, errors.NewUnsupportedValueError(v, "not a decimal number")
		}
		return &types.AttributeValueMemberN{Value: string(tv)}, nil
	case []byte:
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return &types.AttributeValueMemberB{Value: tv}, nil
	case int:
		return number(strconv.FormatInt(int64(tv), 10)), nil
	case int8:
		return number(strconv.FormatInt(int64(tv), 10)), nil
	case int16:
		return number(strconv.FormatInt(int64(tv), 10)), nil
	case int32:
		return number(strconv.FormatInt(int64(tv), 10)), nil
	case int64:
		return number(strconv.FormatInt(tv, 10)), nil
	case uint:
		return number(strconv.FormatUint(uint64(tv), 10)), nil
	case uint8:
		return number(strconv.FormatUint(uint64(tv), 10)), nil
	case uint16:
		return number(strconv.FormatUint(uint64(tv), 10)), nil
	case uint32:
		return number(strconv.FormatUint(uint64(tv), 10)), nil
	case uint64:
		return number(strconv.FormatUint(tv, 10)), nil
	case float32:
		return encodeFloat(v, float64(tv), 32)
	case float64:
		return encodeFloat(v, tv, 64)
	case []any:
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		list := make([]types.AttributeValue, len(tv))
		for i, elem := range tv {
			av, err := encode(elem, depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case map[string]any:
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		m := make(map[string]types.AttributeValue, len(tv))
		for k, elem := range tv {
			av, err := encode(elem, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}

	return encodeReflect(v, depth)
}

// encodeReflect handles named and element-typed slices, maps and pointers
// that the fast path in encode does not list.
func encodeReflect(v any, depth int) (types.AttributeValue, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return encode(rv.Elem().Interface(), depth+1)
	case reflect.String:
		return &types.AttributeValueMemberS{Value: rv.String()}, nil
	case reflect.Bool:
		return &types.AttributeValueMemberBOOL{Value: rv.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32:
		return encodeFloat(v, rv.Float(), 32)
	case reflect.Float64:
		return encodeFloat(v, rv.Float(), 64)
	case reflect.Slice:
		if rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return &types.AttributeValueMemberB{Value: rv.Bytes()}, nil
		}
		fallthrough
	case reflect.Array:
		list := make([]types.AttributeValue, rv.Len())
		for i := range list {
			av, err := encode(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.NewUnsupportedValueError(v, "map keys must be strings")
		}
		if rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		m := make(map[string]types.AttributeValue, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			av, err := encode(iter.Value().Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			m[iter.Key().String()] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}

	return nil, errors.NewUnsupportedValueError(v, "no attribute value representation")
}

func encodeFloat(orig any, f float64, bitSize int) (types.AttributeValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.NewUnsupportedValueError(orig, "number is not finite")
	}
	return number(strconv.FormatFloat(f, 'f', -1, bitSize)), nil
}

func number(s string) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: s}
}

// isDecimal reports whether s is a finite decimal number as DynamoDB accepts it.
func isDecimal(s string) bool {
	if s == "" || hasWordForm(s) {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		// Out-of-range magnitudes still carry valid decimal text.
		ne, ok := err.(*strconv.NumError)
		return ok && ne.Err == strconv.ErrRange
	}
	return true
}

// hasWordForm rejects spellings such as "Inf", "NaN" or "0x1p-2" that ParseFloat accepts.
func hasWordForm(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return true
		}
	}
	return false
}

// Decode converts an attribute value into its native Go value.
//
// N decodes to json.Number so the decimal text is preserved exactly. L and M
// decode recursively to []any and map[string]any. Set members and unknown
// union members fail with an *errors.UnrecognizedAttributeTagError.
func Decode(av types.AttributeValue) (any, error) {
	return decode(av, 0)
}

// DecodeMap decodes an item into a native map.
func DecodeMap(item map[string]types.AttributeValue) (map[string]any, error) {
	out := make(map[string]any, len(item))
	for k, av := range item {
		v, err := decode(av, 1)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func decode(av types.AttributeValue, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, errors.NewUnsupportedValueError(av, fmt.Sprintf("nesting deeper than %d levels", MaxDepth))
	}

	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, nil
	case *types.AttributeValueMemberN:
		return json.Number(tv.Value), nil
	case *types.AttributeValueMemberB:
		return tv.Value, nil
	case *types.AttributeValueMemberBOOL:
		return tv.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberL:
		list := make([]any, len(tv.Value))
		for i, elem := range tv.Value {
			v, err := decode(elem, depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return list, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(tv.Value))
		for k, elem := range tv.Value {
			v, err := decode(elem, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		return m, nil
	case *types.AttributeValueMemberSS:
		return nil, errors.NewUnrecognizedAttributeTagError(TagStringSet)
	case *types.AttributeValueMemberNS:
		return nil, errors.NewUnrecognizedAttributeTagError(TagNumberSet)
	case *types.AttributeValueMemberBS:
		return nil, errors.NewUnrecognizedAttributeTagError(TagBinarySet)
	case *types.UnknownUnionMember:
		return nil, errors.NewUnrecognizedAttributeTagError(tv.Tag)
	case nil:
		return nil, errors.NewUnrecognizedAttributeTagError("")
	}

	return nil, errors.NewUnrecognizedAttributeTagError(fmt.Sprintf("%T", av))
}
