/*
Package expression compiles the small predicate language used by table and
index queries into the store's parameterized expression format.

The language is a flat AND-conjunction of statements:

	field = :value        also <>, <, <=, >, >=
	field BETWEEN :lo AND :hi
	begins_with(field, :prefix)

There is no OR, NOT or nesting. Values are never written inline; statements
reference them through ":name" placeholders bound from a values map.

Compilation replaces every field with a generated "#f…" alias derived from a
hash of the field name, so reserved words ("status", "name", "time", ...) can
be used freely. The same field referenced from the key condition, the filter
and the projection shares a single alias:

	expr, err := expression.Compile(
	    "pk = :pk AND begins_with(sk, :prefix)",
	    "status = :status",
	    map[string]any{"pk": "USER#1", "prefix": "ORDER#", "status": "open"},
	    expression.WithProjection("sk, status, total"),
	)

Placeholders are allocated in a fresh arena per compile call and are never
shared between expressions. Everything in this package is pure and safe for
concurrent use.
*/
package expression
