/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/errors"
)

var projectionFieldPattern = regexp.MustCompile(`^[^\s=<>(),:]+$`)

// Expression is a compiled, parameterized expression ready to be copied into a
// Query or Scan request. Filter and Projection are empty when absent.
type Expression struct {
	KeyCondition string
	Filter       string
	Projection   string
	Names        map[string]string
	Values       map[string]types.AttributeValue
}

// KeyConditionExpression returns the key condition for a request, or nil.
func (e *Expression) KeyConditionExpression() *string {
	return optional(e.KeyCondition)
}

// FilterExpression returns the filter for a request, or nil.
func (e *Expression) FilterExpression() *string {
	return optional(e.Filter)
}

// ProjectionExpression returns the projection for a request, or nil.
func (e *Expression) ProjectionExpression() *string {
	return optional(e.Projection)
}

// AttributeNames returns the alias map, or nil when empty. The store rejects
// empty ExpressionAttributeNames maps.
func (e *Expression) AttributeNames() map[string]string {
	if len(e.Names) == 0 {
		return nil
	}
	return e.Names
}

// AttributeValues returns the value map, or nil when empty.
func (e *Expression) AttributeValues() map[string]types.AttributeValue {
	if len(e.Values) == 0 {
		return nil
	}
	return e.Values
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Option configures a compile call.
type Option func(*compileOptions)

type compileOptions struct {
	projection string
}

// WithProjection restricts returned attributes to a comma-separated field
// list. The fields are aliased through the same name map as the predicates.
func WithProjection(fields string) Option {
	return func(o *compileOptions) {
		o.projection = fields
	}
}

// Compile turns a key condition, an optional filter and the values they
// reference into a parameterized Expression.
//
//	expr, err := expression.Compile("status = :status AND time > :time", "",
//	    map[string]any{"status": "pending", "time": 0})
//	// expr.KeyCondition: "#f… = :status AND #f… > :time"
//
// Every field is replaced by a generated alias so reserved words never reach
// the store. Values are bound under their own names: the entry "status" becomes
// ":status". Values may be native or already wire encoded. Every value is
// validated, but only those the expressions reference are returned.
func Compile(keyCondition, filter string, values map[string]any, opts ...Option) (*Expression, error) {
	if strings.TrimSpace(keyCondition) == "" {
		return nil, errors.ErrEmptyKeyCondition
	}
	return compile(keyCondition, filter, values, opts)
}

// CompileFilter compiles an expression with no key condition, as used by
// scans. The filter may be empty when only a projection is wanted.
func CompileFilter(filter string, values map[string]any, opts ...Option) (*Expression, error) {
	return compile("", filter, values, opts)
}

func compile(keyCondition, filter string, values map[string]any, opts []Option) (*Expression, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}

	keyStatements, err := parseAll(keyCondition)
	if err != nil {
		return nil, fmt.Errorf("key condition: %w", err)
	}
	filterStatements, err := parseAll(filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	projection, err := splitProjection(o.projection)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(keyStatements)+len(filterStatements)+len(projection))
	for _, s := range keyStatements {
		fields = append(fields, s.Field)
	}
	for _, s := range filterStatements {
		fields = append(fields, s.Field)
	}
	fields = append(fields, projection...)

	p, err := Allocate(fields, values)
	if err != nil {
		return nil, err
	}

	used := make(map[string]struct{}, len(values))
	keyText, err := render(p, keyStatements, used)
	if err != nil {
		return nil, err
	}
	filterText, err := render(p, filterStatements, used)
	if err != nil {
		return nil, err
	}

	aliased := make([]string, len(projection))
	for i, field := range projection {
		aliased[i] = p.Name(field)
	}

	return &Expression{
		KeyCondition: keyText,
		Filter:       filterText,
		Projection:   strings.Join(aliased, ", "),
		Names:        p.Names(),
		Values:       p.ValuesFor(used),
	}, nil
}

func parseAll(text string) ([]Statement, error) {
	raw := Parse(text)
	statements := make([]Statement, 0, len(raw))
	for _, r := range raw {
		s, err := ParseStatement(r)
		if err != nil {
			return nil, err
		}
		statements = append(statements, s)
	}
	return statements, nil
}

// render aliases each statement's field and records the value tokens it
// references in used.
func render(p *Placeholders, statements []Statement, used map[string]struct{}) (string, error) {
	parts := make([]string, len(statements))
	for i, s := range statements {
		for _, operand := range s.Operands {
			if !p.HasValue(operand) {
				return "", errors.NewMissingValueError(operand)
			}
			used[operand] = struct{}{}
		}
		parts[i] = s.Render(p.Name(s.Field))
	}
	return strings.Join(parts, " "+Conjunction+" "), nil
}

func splitProjection(fields string) ([]string, error) {
	if strings.TrimSpace(fields) == "" {
		return nil, nil
	}
	var out []string
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !projectionFieldPattern.MatchString(f) {
			return nil, errors.NewValidationError("projection", fmt.Sprintf("invalid field %q", f))
		}
		out = append(out, f)
	}
	return out, nil
}
