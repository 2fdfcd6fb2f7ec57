/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cespare/xxhash/v2"
	"github.com/suparena/ddbquery/attrvalue"
	"github.com/suparena/ddbquery/errors"
)

var valueNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Placeholders is the per-expression arena of attribute name aliases and
// value placeholders. The same field name always receives the same alias and
// the same literal value always receives the same token, so repeated
// references collapse into one map entry.
//
// A Placeholders value must not be shared between unrelated expressions.
type Placeholders struct {
	names    map[string]string // "#alias" -> field name
	aliases  map[string]string // field name -> "#alias"
	values   map[string]types.AttributeValue
	literals map[string]string // canonical encoding -> ":token"
	encoded  map[string]string // ":token" -> canonical encoding
}

// NewPlaceholders returns an empty arena.
func NewPlaceholders() *Placeholders {
	return &Placeholders{
		names:    make(map[string]string),
		aliases:  make(map[string]string),
		values:   make(map[string]types.AttributeValue),
		literals: make(map[string]string),
		encoded:  make(map[string]string),
	}
}

// Allocate builds an arena holding an alias for every field and a ":name"
// placeholder for every entry of values. Values may be native or wire encoded.
func Allocate(fields []string, values map[string]any) (*Placeholders, error) {
	p := NewPlaceholders()

	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	for _, field := range sorted {
		p.Name(field)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := p.NamedValue(name, values[name]); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Name returns the alias for field, allocating one on first use. The alias is
// "#f" followed by the low 32 bits of the field's xxhash in hex; on a collision
// with another field the full 64-bit hash, then a numeric suffix, is used.
func (p *Placeholders) Name(field string) string {
	if alias, ok := p.aliases[field]; ok {
		return alias
	}

	h := xxhash.Sum64String(field)
	alias := p.freeName(fmt.Sprintf("#f%08x", uint32(h)), fmt.Sprintf("#f%016x", h), field)

	p.names[alias] = field
	p.aliases[field] = alias
	return alias
}

func (p *Placeholders) freeName(short, long, field string) string {
	for _, candidate := range []string{short, long} {
		if owner, taken := p.names[candidate]; !taken || owner == field {
			return candidate
		}
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", long, i)
		if _, taken := p.names[candidate]; !taken {
			return candidate
		}
	}
}

// Alias reports the alias already allocated for field.
func (p *Placeholders) Alias(field string) (string, bool) {
	alias, ok := p.aliases[field]
	return alias, ok
}

// NamedValue registers v under the caller-chosen name and returns its
// placeholder, ":" + name. A leading ":" on name is accepted.
func (p *Placeholders) NamedValue(name string, v any) (string, error) {
	name = strings.TrimPrefix(name, ":")
	if !valueNamePattern.MatchString(name) {
		return "", errors.NewValidationError(name, "value placeholder names may only contain letters, digits and underscores")
	}

	av, err := attrvalue.Normalize(v)
	if err != nil {
		return "", fmt.Errorf("value %s: %w", name, err)
	}
	canonical, err := canonicalize(av)
	if err != nil {
		return "", fmt.Errorf("value %s: %w", name, err)
	}

	token := ":" + name
	if existing, ok := p.encoded[token]; ok && existing != canonical {
		return "", errors.NewValidationError(name, "placeholder already bound to a different value")
	}

	p.values[token] = av
	p.encoded[token] = canonical
	return token, nil
}

// Literal registers v under a token derived from the hash of its encoded
// form and returns the token. Equal values share one token.
func (p *Placeholders) Literal(v any) (string, error) {
	av, err := attrvalue.Normalize(v)
	if err != nil {
		return "", err
	}
	canonical, err := canonicalize(av)
	if err != nil {
		return "", err
	}
	if token, ok := p.literals[canonical]; ok {
		return token, nil
	}

	h := xxhash.Sum64String(canonical)
	token := fmt.Sprintf(":v%08x", uint32(h))
	if owner, taken := p.encoded[token]; taken && owner != canonical {
		token = fmt.Sprintf(":v%016x", h)
		for i := 1; ; i++ {
			if owner, taken := p.encoded[token]; !taken || owner == canonical {
				break
			}
			token = fmt.Sprintf(":v%016x_%d", h, i)
		}
	}

	p.values[token] = av
	p.encoded[token] = canonical
	p.literals[canonical] = token
	return token, nil
}

// HasValue reports whether token is bound.
func (p *Placeholders) HasValue(token string) bool {
	_, ok := p.values[token]
	return ok
}

// Names returns a copy of the alias map ("#alias" -> field name).
func (p *Placeholders) Names() map[string]string {
	out := make(map[string]string, len(p.names))
	for k, v := range p.names {
		out[k] = v
	}
	return out
}

// Values returns a copy of the value map (":token" -> attribute value).
func (p *Placeholders) Values() map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// ValuesFor returns a copy of the value map restricted to the given tokens.
// Requests must not carry values their expressions never reference.
func (p *Placeholders) ValuesFor(tokens map[string]struct{}) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(tokens))
	for k := range tokens {
		if v, ok := p.values[k]; ok {
			out[k] = v
		}
	}
	return out
}

// canonicalize renders av as JSON wire text; encoding/json sorts map keys,
// so equal values produce equal text.
func canonicalize(av types.AttributeValue) (string, error) {
	wire, err := attrvalue.ToWire(av)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
