/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/errors"
)

// UpdateExpression is a compiled SET update with an optional condition.
type UpdateExpression struct {
	Set       string
	Condition string
	Names     map[string]string
	Values    map[string]types.AttributeValue
}

// ConditionExpression returns the condition for a request, or nil.
func (u *UpdateExpression) ConditionExpression() *string {
	return optional(u.Condition)
}

// CompileUpdate builds "SET #a = :v…, #b = :v…" from updates. Update values
// are bound under hashed literal tokens so they never clash with the
// caller-named values referenced by condition.
func CompileUpdate(updates map[string]any, condition string, values map[string]any) (*UpdateExpression, error) {
	if len(updates) == 0 {
		return nil, errors.NewValidationError("updates", "no updates provided")
	}

	statements, err := parseAll(condition)
	if err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		if !projectionFieldPattern.MatchString(field) {
			return nil, errors.NewValidationError("updates", fmt.Sprintf("invalid field %q", field))
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	all := append([]string(nil), fields...)
	for _, s := range statements {
		all = append(all, s.Field)
	}

	p, err := Allocate(all, values)
	if err != nil {
		return nil, err
	}

	used := make(map[string]struct{}, len(fields)+len(values))
	clauses := make([]string, len(fields))
	for i, field := range fields {
		token, err := p.Literal(updates[field])
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", field, err)
		}
		used[token] = struct{}{}
		clauses[i] = p.Name(field) + " = " + token
	}

	cond, err := render(p, statements, used)
	if err != nil {
		return nil, err
	}

	return &UpdateExpression{
		Set:       "SET " + strings.Join(clauses, ", "),
		Condition: cond,
		Names:     p.Names(),
		Values:    p.ValuesFor(used),
	}, nil
}
