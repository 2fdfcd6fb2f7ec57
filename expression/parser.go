/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"regexp"
	"strings"

	"github.com/suparena/ddbquery/errors"
)

// Conjunction is the only connective of the predicate language.
const Conjunction = "AND"

var (
	conjunctionPattern = regexp.MustCompile(`\s+` + Conjunction + `\s+`)
	betweenKeyword     = regexp.MustCompile(`(^|\s)BETWEEN(\s|$)`)

	beginsWithPattern = regexp.MustCompile(`^begins_with\s*\(\s*([^\s,()]+)\s*,\s*(:[A-Za-z0-9_]+)\s*\)$`)
	betweenPattern    = regexp.MustCompile(`^([^\s=<>(),:]+)\s+BETWEEN\s+(:[A-Za-z0-9_]+)\s+AND\s+(:[A-Za-z0-9_]+)$`)
	comparisonPattern = regexp.MustCompile(`^([^\s=<>(),:]+)\s*(<>|<=|>=|=|<|>)\s*(:[A-Za-z0-9_]+)$`)
)

// Parse splits a flat predicate into its statements.
//
// The text is split on whitespace-bounded AND. A range test is itself written
// "field BETWEEN :lo AND :hi", so any segment containing BETWEEN is re-joined
// with exactly the segment that follows it. Statements are returned trimmed;
// blank text yields no statements.
func Parse(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	segments := conjunctionPattern.Split(text, -1)
	statements := make([]string, 0, len(segments))
	for i := 0; i < len(segments); i++ {
		segment := segments[i]
		if betweenKeyword.MatchString(segment) && i+1 < len(segments) {
			segment = segment + " " + Conjunction + " " + segments[i+1]
			i++
		}
		statements = append(statements, strings.TrimSpace(segment))
	}
	return statements
}

// Operator is a comparison of the predicate language.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	LessThan
	LessOrEqual
	GreaterThan
	GreaterOrEqual
	BeginsWith
	Between
)

var operatorTokens = map[string]Operator{
	"=":  Equal,
	"<>": NotEqual,
	"<":  LessThan,
	"<=": LessOrEqual,
	">":  GreaterThan,
	">=": GreaterOrEqual,
}

func (o Operator) String() string {
	switch o {
	case Equal:
		return "="
	case NotEqual:
		return "<>"
	case LessThan:
		return "<"
	case LessOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterOrEqual:
		return ">="
	case BeginsWith:
		return "begins_with"
	case Between:
		return "BETWEEN"
	}
	return "?"
}

// Statement is one parsed comparison. Between has two operands; every other
// operator has one. Operands are value placeholders such as ":status".
type Statement struct {
	Field    string
	Operator Operator
	Operands []string
}

// ParseStatement classifies a single statement returned by Parse.
func ParseStatement(raw string) (Statement, error) {
	raw = strings.TrimSpace(raw)

	if m := beginsWithPattern.FindStringSubmatch(raw); m != nil {
		return Statement{Field: m[1], Operator: BeginsWith, Operands: []string{m[2]}}, nil
	}

	if m := betweenPattern.FindStringSubmatch(raw); m != nil {
		return Statement{Field: m[1], Operator: Between, Operands: []string{m[2], m[3]}}, nil
	}

	if m := comparisonPattern.FindStringSubmatch(raw); m != nil {
		return Statement{Field: m[1], Operator: operatorTokens[m[2]], Operands: []string{m[3]}}, nil
	}

	return Statement{}, errors.NewUnparsableStatementError(raw)
}

// Render writes the statement with its field replaced by alias.
func (s Statement) Render(alias string) string {
	switch s.Operator {
	case BeginsWith:
		return "begins_with(" + alias + ", " + s.Operands[0] + ")"
	case Between:
		return alias + " BETWEEN " + s.Operands[0] + " " + Conjunction + " " + s.Operands[1]
	}
	return alias + " " + s.Operator.String() + " " + s.Operands[0]
}
