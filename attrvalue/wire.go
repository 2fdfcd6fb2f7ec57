/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attrvalue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/errors"
)

// Type tags of the JSON wire form, e.g. {"S": "abc"}.
const (
	TagString = "S"
	TagNumber = "N"
	TagBinary = "B"
	TagBool   = "BOOL"
	TagNull   = "NULL"
	TagList   = "L"
	TagMap    = "M"

	// Set tags exist on the wire but are not part of the recognized union.
	TagStringSet = "SS"
	TagNumberSet = "NS"
	TagBinarySet = "BS"
)

// IsWireEncoded reports whether v already has the tagged-union shape: either a
// types.AttributeValue, or a single-key map whose key is one of the seven
// recognized tags and whose payload has the matching Go shape.
//
// L and M payloads match only when every element is itself wire encoded, so
// {"L": []any{1, 2}} is a native map. It is a shape heuristic. A native map
// that happens to look like {"S": "x"} is reported as wire encoded.
func IsWireEncoded(v any) bool {
	return isWireEncoded(v, 0)
}

func isWireEncoded(v any, depth int) bool {
	if depth > MaxDepth {
		return false
	}
	switch tv := v.(type) {
	case types.AttributeValue:
		return tv != nil
	case map[string]any:
		if len(tv) != 1 {
			return false
		}
		for tag, payload := range tv {
			return payloadMatches(tag, payload, depth)
		}
	}
	return false
}

func payloadMatches(tag string, payload any, depth int) bool {
	switch tag {
	case TagString:
		_, ok := payload.(string)
		return ok
	case TagNumber:
		switch p := payload.(type) {
		case string:
			return isDecimal(p)
		case json.Number:
			return isDecimal(string(p))
		}
		return false
	case TagBinary:
		switch p := payload.(type) {
		case []byte:
			return true
		case string:
			_, err := base64.StdEncoding.DecodeString(p)
			return err == nil
		}
		return false
	case TagBool:
		_, ok := payload.(bool)
		return ok
	case TagNull:
		b, ok := payload.(bool)
		return ok && b
	case TagList:
		list, ok := payload.([]any)
		if !ok {
			return false
		}
		for _, elem := range list {
			if !isWireEncoded(elem, depth+1) {
				return false
			}
		}
		return true
	case TagMap:
		m, ok := payload.(map[string]any)
		if !ok {
			return false
		}
		for _, elem := range m {
			if !isWireEncoded(elem, depth+1) {
				return false
			}
		}
		return true
	}
	return false
}

// FromWire parses the JSON wire form into an attribute value. Binary payloads
// may be raw bytes or standard base64 text, as the store's JSON protocol
// carries them.
func FromWire(v any) (types.AttributeValue, error) {
	return fromWire(v, 0)
}

// FromWireMap parses a wire-encoded item.
func FromWireMap(item map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		av, err := fromWire(v, 1)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func fromWire(v any, depth int) (types.AttributeValue, error) {
	if depth > MaxDepth {
		return nil, errors.NewUnsupportedValueError(v, fmt.Sprintf("nesting deeper than %d levels", MaxDepth))
	}
	if av, ok := v.(types.AttributeValue); ok && av != nil {
		return av, nil
	}

	obj, ok := v.(map[string]any)
	if !ok || len(obj) != 1 {
		return nil, errors.NewUnrecognizedAttributeTagError(fmt.Sprintf("%T", v))
	}

	var tag string
	var payload any
	for k, p := range obj {
		tag, payload = k, p
	}

	malformed := func() error {
		return errors.NewUnsupportedValueError(payload, fmt.Sprintf("malformed %s payload", tag))
	}

	switch tag {
	case TagString:
		s, ok := payload.(string)
		if !ok {
			return nil, malformed()
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case TagNumber:
		var s string
		switch p := payload.(type) {
		case string:
			s = p
		case json.Number:
			s = string(p)
		default:
			return nil, malformed()
		}
		if !isDecimal(s) {
			return nil, malformed()
		}
		return &types.AttributeValueMemberN{Value: s}, nil
	case TagBinary:
		switch p := payload.(type) {
		case []byte:
			return &types.AttributeValueMemberB{Value: p}, nil
		case string:
			b, err := base64.StdEncoding.DecodeString(p)
			if err != nil {
				return nil, malformed()
			}
			return &types.AttributeValueMemberB{Value: b}, nil
		}
		return nil, malformed()
	case TagBool:
		b, ok := payload.(bool)
		if !ok {
			return nil, malformed()
		}
		return &types.AttributeValueMemberBOOL{Value: b}, nil
	case TagNull:
		if b, ok := payload.(bool); !ok || !b {
			return nil, malformed()
		}
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case TagList:
		elems, ok := payload.([]any)
		if !ok {
			return nil, malformed()
		}
		list := make([]types.AttributeValue, len(elems))
		for i, elem := range elems {
			av, err := fromWire(elem, depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case TagMap:
		fields, ok := payload.(map[string]any)
		if !ok {
			return nil, malformed()
		}
		m := make(map[string]types.AttributeValue, len(fields))
		for k, elem := range fields {
			av, err := fromWire(elem, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}

	return nil, errors.NewUnrecognizedAttributeTagError(tag)
}

// ToWire renders an attribute value in the JSON wire form. Binary payloads are
// kept as []byte; encoding/json renders them as base64 text.
func ToWire(av types.AttributeValue) (map[string]any, error) {
	return toWire(av, 0)
}

// ToWireMap renders an item in the JSON wire form.
func ToWireMap(item map[string]types.AttributeValue) (map[string]any, error) {
	out := make(map[string]any, len(item))
	for k, av := range item {
		w, err := toWire(av, 1)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = w
	}
	return out, nil
}

func toWire(av types.AttributeValue, depth int) (map[string]any, error) {
	if depth > MaxDepth {
		return nil, errors.NewUnsupportedValueError(av, fmt.Sprintf("nesting deeper than %d levels", MaxDepth))
	}

	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{TagString: tv.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]any{TagNumber: tv.Value}, nil
	case *types.AttributeValueMemberB:
		return map[string]any{TagBinary: tv.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{TagBool: tv.Value}, nil
	case *types.AttributeValueMemberNULL:
		return map[string]any{TagNull: true}, nil
	case *types.AttributeValueMemberL:
		list := make([]any, len(tv.Value))
		for i, elem := range tv.Value {
			w, err := toWire(elem, depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = w
		}
		return map[string]any{TagList: list}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(tv.Value))
		for k, elem := range tv.Value {
			w, err := toWire(elem, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = w
		}
		return map[string]any{TagMap: m}, nil
	case *types.AttributeValueMemberSS:
		return nil, errors.NewUnrecognizedAttributeTagError(TagStringSet)
	case *types.AttributeValueMemberNS:
		return nil, errors.NewUnrecognizedAttributeTagError(TagNumberSet)
	case *types.AttributeValueMemberBS:
		return nil, errors.NewUnrecognizedAttributeTagError(TagBinarySet)
	case *types.UnknownUnionMember:
		return nil, errors.NewUnrecognizedAttributeTagError(tv.Tag)
	}

	return nil, errors.NewUnrecognizedAttributeTagError(fmt.Sprintf("%T", av))
}

// Normalize accepts a native value, a JSON wire-form value or an SDK attribute
// value and returns the attribute value. It lets write and compile paths take
// either ergonomic native values or pre-encoded ones.
func Normalize(v any) (types.AttributeValue, error) {
	if IsWireEncoded(v) {
		return FromWire(v)
	}
	return Encode(v)
}

// NormalizeMap applies Normalize to every value of m.
func NormalizeMap(m map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}
