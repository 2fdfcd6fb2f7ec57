/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attrvalue

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/ddbquery/errors"
)

func TestIsWireEncoded(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"sdk value", &types.AttributeValueMemberS{Value: "x"}, true},
		{"string tag", map[string]any{"S": "x"}, true},
		{"number tag", map[string]any{"N": "10"}, true},
		{"number tag with json.Number", map[string]any{"N": json.Number("10")}, true},
		{"binary base64", map[string]any{"B": "AQI="}, true},
		{"null tag", map[string]any{"NULL": true}, true},
		{"list tag", map[string]any{"L": []any{}}, true},
		{"map tag", map[string]any{"M": map[string]any{}}, true},
		{"bool tag", map[string]any{"BOOL": false}, true},
		{"nested list tag", map[string]any{"L": []any{map[string]any{"N": "1"}, &types.AttributeValueMemberS{Value: "x"}}}, true},
		{"nested map tag", map[string]any{"M": map[string]any{"a": map[string]any{"S": "x"}}}, true},
		{"list of natives", map[string]any{"L": []any{1, 2}}, false},
		{"map of natives", map[string]any{"M": map[string]any{"a": "x"}}, false},
		{"deep native leaf", map[string]any{"L": []any{map[string]any{"M": map[string]any{"a": 1}}}}, false},
		{"number tag with garbage", map[string]any{"N": "ten"}, false},
		{"null false", map[string]any{"NULL": false}, false},
		{"wrong payload shape", map[string]any{"S": 1}, false},
		{"two keys", map[string]any{"S": "x", "N": "1"}, false},
		{"unknown tag", map[string]any{"SS": []any{"a"}}, false},
		{"plain string", "S", false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWireEncoded(tt.in))
		})
	}
}

func TestFromWire(t *testing.T) {
	av, err := FromWire(map[string]any{"M": map[string]any{
		"name": map[string]any{"S": "Geo"},
		"n":    map[string]any{"N": "7"},
		"bin":  map[string]any{"B": "AQI="},
		"list": map[string]any{"L": []any{map[string]any{"BOOL": true}, map[string]any{"NULL": true}}},
	}})
	require.NoError(t, err)

	assert.Equal(t, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"name": &types.AttributeValueMemberS{Value: "Geo"},
		"n":    &types.AttributeValueMemberN{Value: "7"},
		"bin":  &types.AttributeValueMemberB{Value: []byte{1, 2}},
		"list": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberBOOL{Value: true},
			&types.AttributeValueMemberNULL{Value: true},
		}},
	}}, av)
}

func TestFromWireErrors(t *testing.T) {
	_, err := FromWire(map[string]any{"SS": []any{"a"}})
	var tagErr *errors.UnrecognizedAttributeTagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "SS", tagErr.Tag)

	_, err = FromWire(map[string]any{"L": []any{map[string]any{"Q": "x"}}})
	assert.True(t, errors.IsUnrecognizedAttributeTag(err))

	_, err = FromWire(map[string]any{"N": "abc"})
	assert.True(t, errors.IsUnsupportedValue(err))

	_, err = FromWire("plain")
	assert.True(t, errors.IsUnrecognizedAttributeTag(err))
}

func TestToWireRoundTrip(t *testing.T) {
	item := map[string]types.AttributeValue{
		"pk":   &types.AttributeValueMemberS{Value: "USER#1"},
		"age":  &types.AttributeValueMemberN{Value: "30"},
		"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: "a"}}},
	}

	wire, err := ToWireMap(item)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"S": "USER#1"}, wire["pk"])

	back, err := FromWireMap(wire)
	require.NoError(t, err)
	assert.Equal(t, item, back)

	_, err = ToWire(&types.AttributeValueMemberNS{Value: []string{"1"}})
	assert.True(t, errors.IsUnrecognizedAttributeTag(err))
}

func TestToWireSurvivesJSON(t *testing.T) {
	wire, err := ToWire(&types.AttributeValueMemberB{Value: []byte{1, 2}})
	require.NoError(t, err)

	data, err := json.Marshal(wire)
	require.NoError(t, err)
	assert.JSONEq(t, `{"B":"AQI="}`, string(data))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	av, err := FromWire(decoded)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberB{Value: []byte{1, 2}}, av)
}

func TestNormalize(t *testing.T) {
	native, err := Normalize("pending")
	require.NoError(t, err)
	wire, err := Normalize(map[string]any{"S": "pending"})
	require.NoError(t, err)
	sdk, err := Normalize(&types.AttributeValueMemberS{Value: "pending"})
	require.NoError(t, err)

	assert.Equal(t, native, wire)
	assert.Equal(t, native, sdk)

	m, err := NormalizeMap(map[string]any{"a": 1, "b": map[string]any{"N": "1"}})
	require.NoError(t, err)
	assert.Equal(t, m["a"], m["b"])
}

func TestNormalizeNativeMapWithTagKey(t *testing.T) {
	av, err := Normalize(map[string]any{"L": []any{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"L": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberN{Value: "1"},
			&types.AttributeValueMemberN{Value: "2"},
		}},
	}}, av)
}
