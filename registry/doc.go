/*
Package registry binds Go entity types to table names.

Entity helpers resolve their table through the registry, so callers name the
type instead of the table:

	registry.RegisterTable[Order]("orders")

	orders, err := ddbquery.EntityTable[Order](catalog)

The registry is thread-safe and is usually populated during initialization.
*/
package registry
