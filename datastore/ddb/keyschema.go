/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/attrvalue"
	"github.com/suparena/ddbquery/errors"
)

// ParseAttributeType normalizes a key attribute type code. Accepted codes are
// "string", "number" and "binary" in any case, or exactly the wire tags S, N
// and B.
func ParseAttributeType(code string) (types.ScalarAttributeType, error) {
	code = strings.TrimSpace(code)
	switch code {
	case string(types.ScalarAttributeTypeS), string(types.ScalarAttributeTypeN), string(types.ScalarAttributeTypeB):
		return types.ScalarAttributeType(code), nil
	}
	switch strings.ToLower(code) {
	case "string":
		return types.ScalarAttributeTypeS, nil
	case "number":
		return types.ScalarAttributeTypeN, nil
	case "binary":
		return types.ScalarAttributeTypeB, nil
	}
	return "", errors.NewValidationError("type", fmt.Sprintf("unknown attribute type code %q", code))
}

// KeyElement is one key attribute and its scalar type.
type KeyElement struct {
	Name string
	Type types.ScalarAttributeType
}

// KeySchema is the primary key of a table or secondary index: a HASH element
// and an optional RANGE element.
type KeySchema struct {
	Hash  KeyElement
	Range *KeyElement
}

// NewKeySchema builds a schema from single-field maps of attribute name to
// type code, e.g. {"PK": "string"} and {"SK": "number"}. rng may be nil.
func NewKeySchema(hash, rng map[string]string) (KeySchema, error) {
	h, err := keyElement("hash", hash)
	if err != nil {
		return KeySchema{}, err
	}
	schema := KeySchema{Hash: h}

	if len(rng) > 0 {
		r, err := keyElement("range", rng)
		if err != nil {
			return KeySchema{}, err
		}
		if r.Name == h.Name {
			return KeySchema{}, errors.NewValidationError("range", "range key must differ from hash key")
		}
		schema.Range = &r
	}
	return schema, nil
}

func keyElement(role string, decl map[string]string) (KeyElement, error) {
	if len(decl) != 1 {
		return KeyElement{}, errors.NewValidationError(role, fmt.Sprintf("expected exactly one field, got %d", len(decl)))
	}
	for name, code := range decl {
		if name == "" {
			return KeyElement{}, errors.NewValidationError(role, "field name is empty")
		}
		t, err := ParseAttributeType(code)
		if err != nil {
			return KeyElement{}, err
		}
		return KeyElement{Name: name, Type: t}, nil
	}
	return KeyElement{}, errors.NewValidationError(role, "no field")
}

// Names returns the key attribute names, hash first.
func (s KeySchema) Names() []string {
	if s.Range == nil {
		return []string{s.Hash.Name}
	}
	return []string{s.Hash.Name, s.Range.Name}
}

// Elements renders the schema in the shape CreateTable and DescribeTable use.
func (s KeySchema) Elements() []types.KeySchemaElement {
	out := []types.KeySchemaElement{{
		AttributeName: &s.Hash.Name,
		KeyType:       types.KeyTypeHash,
	}}
	if s.Range != nil {
		out = append(out, types.KeySchemaElement{
			AttributeName: &s.Range.Name,
			KeyType:       types.KeyTypeRange,
		})
	}
	return out
}

// AttributeDefinitions renders the key attribute types.
func (s KeySchema) AttributeDefinitions() []types.AttributeDefinition {
	out := []types.AttributeDefinition{{
		AttributeName: &s.Hash.Name,
		AttributeType: s.Hash.Type,
	}}
	if s.Range != nil {
		out = append(out, types.AttributeDefinition{
			AttributeName: &s.Range.Name,
			AttributeType: s.Range.Type,
		})
	}
	return out
}

// Key extracts the key attributes from item. A missing attribute or one whose
// type does not match the schema is a ValidationError.
func (s KeySchema) Key(item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	key := make(map[string]types.AttributeValue, 2)
	elements := []KeyElement{s.Hash}
	if s.Range != nil {
		elements = append(elements, *s.Range)
	}
	for _, e := range elements {
		av, ok := item[e.Name]
		if !ok || av == nil {
			return nil, errors.NewValidationError(e.Name, "missing key attribute")
		}
		if !matchesType(av, e.Type) {
			return nil, errors.NewValidationError(e.Name, fmt.Sprintf("key attribute must be of type %s", e.Type))
		}
		key[e.Name] = av
	}
	return key, nil
}

// KeyOf is Key for native or wire-encoded values.
func (s KeySchema) KeyOf(item map[string]any) (map[string]types.AttributeValue, error) {
	encoded, err := attrvalue.NormalizeMap(item)
	if err != nil {
		return nil, err
	}
	return s.Key(encoded)
}

func matchesType(av types.AttributeValue, t types.ScalarAttributeType) bool {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return t == types.ScalarAttributeTypeS
	case *types.AttributeValueMemberN:
		return t == types.ScalarAttributeTypeN
	case *types.AttributeValueMemberB:
		return t == types.ScalarAttributeTypeB
	}
	return false
}
