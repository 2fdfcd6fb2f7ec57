/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/expression"
)

// Operation selects the read request a QueryParams describes.
type Operation string

const (
	OperationQuery Operation = "Query"
	OperationScan  Operation = "Scan"
)

// QueryParams describes a paginated read against a table or one of its
// secondary indexes. It is produced by the query builder and consumed by
// the table's fetch function, one page at a time.
type QueryParams struct {
	// Operation is Query or Scan.
	Operation Operation
	// TableName is the table name.
	TableName string
	// IndexName is optional if you wish to read a secondary index.
	IndexName *string
	// Expression holds the compiled key condition, filter and projection
	// together with their attribute name and value maps.
	Expression *expression.Expression
	// Limit caps the number of items yielded across all pages. Zero means
	// unbounded.
	Limit int64
	// BatchSize is the page size requested per call. Zero means the store's
	// default.
	BatchSize int32
	// ExclusiveStartKey resumes a previous iteration.
	ExclusiveStartKey map[string]types.AttributeValue
	// ScanIndexForward specifies the order for index traversal.
	// If true (default), traversal is in ascending order.
	// If false, traversal is in descending order. Ignored by scans.
	ScanIndexForward *bool
	// ConsistentRead requests strongly consistent reads.
	ConsistentRead *bool
}

// Descending reports whether the params request descending order.
func (p *QueryParams) Descending() bool {
	return p.ScanIndexForward != nil && !*p.ScanIndexForward
}
