/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cursor

import (
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/attrvalue"
	"github.com/suparena/ddbquery/errors"
	"github.com/vmihailenco/msgpack/v5"
)

var encoding = base64.RawURLEncoding

// Encode renders a continuation key as an opaque, URL-safe token. An empty
// key produces the empty token.
func Encode(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	wire, err := attrvalue.ToWireMap(key)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	data, err := msgpack.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return encoding.EncodeToString(data), nil
}

// Decode parses a token produced by Encode. The empty token yields a nil key.
func Decode(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}

	data, err := encoding.DecodeString(token)
	if err != nil {
		return nil, errors.NewValidationError("cursor", "malformed token encoding")
	}

	var wire map[string]any
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, errors.NewValidationError("cursor", "malformed token payload")
	}
	if len(wire) == 0 {
		return nil, errors.NewValidationError("cursor", "empty token payload")
	}

	key, err := attrvalue.FromWireMap(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}
	return key, nil
}
