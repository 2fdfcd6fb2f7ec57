/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cursor

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/ddbquery/errors"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeDecode(t *testing.T) {
	key := map[string]types.AttributeValue{
		"PK":   &types.AttributeValueMemberS{Value: "USER#1"},
		"SK":   &types.AttributeValueMemberN{Value: "1700000000.25"},
		"blob": &types.AttributeValueMemberB{Value: []byte{0, 1, 2, 255}},
		"meta": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberBOOL{Value: true},
				&types.AttributeValueMemberNULL{Value: true},
			}},
		}},
	}

	token, err := Encode(key)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, strings.ContainsAny(token, "+/="), "token must be URL safe: %s", token)

	got, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestEmpty(t *testing.T) {
	token, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "", token)

	key, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode("not base64!")
	assert.True(t, errors.IsValidationError(err))

	_, err = Decode(encoding.EncodeToString([]byte{0xc1}))
	assert.True(t, errors.IsValidationError(err))

	data, err := msgpack.Marshal(map[string]any{"PK": map[string]any{"SS": []any{"a"}}})
	require.NoError(t, err)
	_, err = Decode(encoding.EncodeToString(data))
	assert.True(t, errors.IsUnrecognizedAttributeTag(err))
}
