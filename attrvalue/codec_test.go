/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attrvalue

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/ddbquery/errors"
)

func TestEncodeScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want types.AttributeValue
	}{
		{"string", "pending", &types.AttributeValueMemberS{Value: "pending"}},
		{"empty string", "", &types.AttributeValueMemberS{Value: ""}},
		{"int zero", 0, &types.AttributeValueMemberN{Value: "0"}},
		{"negative int64", int64(-42), &types.AttributeValueMemberN{Value: "-42"}},
		{"uint8", uint8(255), &types.AttributeValueMemberN{Value: "255"}},
		{"float", 1.5, &types.AttributeValueMemberN{Value: "1.5"}},
		{"large float", 1e21, &types.AttributeValueMemberN{Value: "1000000000000000000000"}},
		{"float32", float32(0.25), &types.AttributeValueMemberN{Value: "0.25"}},
		{"json number", json.Number("12.50"), &types.AttributeValueMemberN{Value: "12.50"}},
		{"true", true, &types.AttributeValueMemberBOOL{Value: true}},
		{"nil", nil, &types.AttributeValueMemberNULL{Value: true}},
		{"bytes", []byte{1, 2}, &types.AttributeValueMemberB{Value: []byte{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeComposite(t *testing.T) {
	got, err := Encode(map[string]any{
		"name": "Geo",
		"tags": []string{"a", "b"},
		"nested": map[string]int{
			"n": 1,
		},
		"ptr": (*string)(nil),
	})
	require.NoError(t, err)

	want := &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"name": &types.AttributeValueMemberS{Value: "Geo"},
		"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "a"},
			&types.AttributeValueMemberS{Value: "b"},
		}},
		"nested": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"n": &types.AttributeValueMemberN{Value: "1"},
		}},
		"ptr": &types.AttributeValueMemberNULL{Value: true},
	}}
	assert.Equal(t, want, got)
}

func TestEncodeUnsupported(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	tests := []struct {
		name string
		in   any
	}{
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"function", func() {}},
		{"channel", make(chan int)},
		{"struct", struct{ A int }{A: 1}},
		{"int keyed map", map[int]string{1: "a"}},
		{"bad json number", json.Number("NaN")},
		{"hex json number", json.Number("0x10")},
		{"cyclic map", cyclic},
		{"nested NaN", []any{1, math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.in)
			require.Error(t, err)
			assert.True(t, errors.IsUnsupportedValue(err), "got %v", err)
		})
	}
}

func TestEncodeMapSelfReferencingValue(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	_, err := EncodeMap(map[string]any{"x": cyclic})
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedValue(err))
	assert.Equal(t, `attribute "x": unsupported value of type map[string]interface {}: nesting deeper than 32 levels`, err.Error())

	_, err = NormalizeMap(map[string]any{"x": cyclic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting deeper than")
}

func TestDecode(t *testing.T) {
	got, err := Decode(&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"s":    &types.AttributeValueMemberS{Value: "x"},
		"n":    &types.AttributeValueMemberN{Value: "1.50"},
		"b":    &types.AttributeValueMemberB{Value: []byte("raw")},
		"bool": &types.AttributeValueMemberBOOL{Value: false},
		"null": &types.AttributeValueMemberNULL{Value: true},
		"l": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberN{Value: "0"},
		}},
	}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"s":    "x",
		"n":    json.Number("1.50"),
		"b":    []byte("raw"),
		"bool": false,
		"null": nil,
		"l":    []any{json.Number("0")},
	}, got)
}

func TestDecodeRejectsUnrecognizedTags(t *testing.T) {
	tests := []struct {
		name string
		in   types.AttributeValue
		tag  string
	}{
		{"string set", &types.AttributeValueMemberSS{Value: []string{"a"}}, "SS"},
		{"number set", &types.AttributeValueMemberNS{Value: []string{"1"}}, "NS"},
		{"binary set", &types.AttributeValueMemberBS{Value: [][]byte{{1}}}, "BS"},
		{"unknown member", &types.UnknownUnionMember{Tag: "X"}, "X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			var tagErr *errors.UnrecognizedAttributeTagError
			require.ErrorAs(t, err, &tagErr)
			assert.Equal(t, tt.tag, tagErr.Tag)
		})
	}

	t.Run("nested inside list", func(t *testing.T) {
		_, err := Decode(&types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "ok"},
			&types.UnknownUnionMember{Tag: "Z"},
		}})
		assert.True(t, errors.IsUnrecognizedAttributeTag(err))
	})
}

func TestRoundTripNative(t *testing.T) {
	values := []any{
		"text",
		"",
		json.Number("0"),
		json.Number("-3.25"),
		json.Number("12345678901234567890123456789012345678"),
		true,
		false,
		nil,
		[]byte{0, 1, 2},
		[]any{},
		[]any{"a", json.Number("1"), nil, []any{true}},
		map[string]any{},
		map[string]any{
			"status": "pending",
			"time":   json.Number("0"),
			"items": []any{
				map[string]any{"sku": "A-1", "qty": json.Number("2")},
			},
		},
	}

	for _, x := range values {
		av, err := Encode(x)
		require.NoError(t, err, "encode %#v", x)
		back, err := Decode(av)
		require.NoError(t, err, "decode %#v", x)
		assert.Equal(t, x, back)
	}
}

func TestRoundTripWire(t *testing.T) {
	values := []types.AttributeValue{
		&types.AttributeValueMemberS{Value: "x"},
		&types.AttributeValueMemberN{Value: "1.50"},
		&types.AttributeValueMemberN{Value: "1E+3"},
		&types.AttributeValueMemberB{Value: []byte("b")},
		&types.AttributeValueMemberBOOL{Value: true},
		&types.AttributeValueMemberNULL{Value: true},
		&types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "y"},
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
		}},
		&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"k": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		}},
	}

	for _, v := range values {
		native, err := Decode(v)
		require.NoError(t, err)
		again, err := Encode(native)
		require.NoError(t, err)
		assert.Equal(t, v, again)
	}
}

func TestEncodeMapAndDecodeMap(t *testing.T) {
	item, err := EncodeMap(map[string]any{"pk": "USER#1", "age": 30})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "USER#1"}, item["pk"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "30"}, item["age"])

	native, err := DecodeMap(item)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"pk": "USER#1", "age": json.Number("30")}, native)

	_, err = EncodeMap(map[string]any{"bad": math.Inf(-1)})
	assert.ErrorContains(t, err, `attribute "bad"`)
}
