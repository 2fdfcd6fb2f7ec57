/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/attrvalue"
	"github.com/suparena/ddbquery/cursor"
	"github.com/suparena/ddbquery/errors"
	"github.com/suparena/ddbquery/expression"
	"github.com/suparena/ddbquery/paginate"
	"github.com/suparena/ddbquery/storagemodels"
)

// Query provides a fluent interface for building table and index reads.
// Errors are deferred until a terminal method (Build, Iter, All, Page or
// Stream) is called.
//
//	items, err := table.Query("PK = :pk AND begins_with(SK, :prefix)").
//	    Values(map[string]any{"pk": "USER#1", "prefix": "ORDER#"}).
//	    Filter("status = :status").
//	    Values(map[string]any{"status": "open"}).
//	    Descending().
//	    Limit(20).
//	    All(ctx)
type Query struct {
	table        *Table
	op           storagemodels.Operation
	index        string
	keyCondition string
	filters      []string
	projection   []string
	values       map[string]any
	limit        int64
	batchSize    int32
	descending   bool
	consistent   bool
	startAfter   string
}

// Query starts a key-condition read against the table.
func (t *Table) Query(keyCondition string) *Query {
	return &Query{
		table:        t,
		op:           storagemodels.OperationQuery,
		keyCondition: keyCondition,
		values:       make(map[string]any),
	}
}

// Scan starts a full read of the table.
func (t *Table) Scan() *Query {
	return &Query{
		table:  t,
		op:     storagemodels.OperationScan,
		values: make(map[string]any),
	}
}

// IndexRef starts reads bound to a secondary index.
type IndexRef struct {
	table *Table
	name  string
}

// Index returns a builder factory for the named secondary index.
func (t *Table) Index(name string) *IndexRef {
	return &IndexRef{table: t, name: name}
}

// Query starts a key-condition read against the index.
func (r *IndexRef) Query(keyCondition string) *Query {
	return r.table.Query(keyCondition).Index(r.name)
}

// Scan starts a full read of the index.
func (r *IndexRef) Scan() *Query {
	return r.table.Scan().Index(r.name)
}

// Index targets a secondary index.
func (q *Query) Index(name string) *Query {
	q.index = name
	return q
}

// Filter adds a filter predicate. Repeated calls are joined with AND.
func (q *Query) Filter(predicate string) *Query {
	if strings.TrimSpace(predicate) != "" {
		q.filters = append(q.filters, predicate)
	}
	return q
}

// Values binds placeholder values. Keys may carry a leading ":". Values may
// be native or wire encoded. Repeated calls merge.
func (q *Query) Values(values map[string]any) *Query {
	for k, v := range values {
		q.values[k] = v
	}
	return q
}

// Value binds a single placeholder value.
func (q *Query) Value(name string, v any) *Query {
	q.values[name] = v
	return q
}

// Project restricts the returned attributes.
func (q *Query) Project(fields ...string) *Query {
	q.projection = append(q.projection, fields...)
	return q
}

// Limit caps the total number of items returned across pages.
func (q *Query) Limit(n int64) *Query {
	q.limit = n
	return q
}

// BatchSize sets the page size requested per call.
func (q *Query) BatchSize(n int32) *Query {
	q.batchSize = n
	return q
}

// Descending reverses the sort key order. Ignored by scans.
func (q *Query) Descending() *Query {
	q.descending = true
	return q
}

// ConsistentRead requests strongly consistent reads.
func (q *Query) ConsistentRead() *Query {
	q.consistent = true
	return q
}

// StartAfter resumes from a token returned by Page or cursor.Encode.
func (q *Query) StartAfter(token string) *Query {
	q.startAfter = token
	return q
}

// Build compiles the query into request parameters.
func (q *Query) Build() (*storagemodels.QueryParams, error) {
	if q.limit < 0 {
		return nil, errors.NewValidationError("limit", "must not be negative")
	}
	if q.batchSize < 0 {
		return nil, errors.NewValidationError("batchSize", "must not be negative")
	}

	filter := strings.Join(q.filters, " "+expression.Conjunction+" ")
	var opts []expression.Option
	if len(q.projection) > 0 {
		opts = append(opts, expression.WithProjection(strings.Join(q.projection, ",")))
	}

	var (
		expr *expression.Expression
		err  error
	)
	if q.op == storagemodels.OperationScan {
		expr, err = expression.CompileFilter(filter, q.values, opts...)
	} else {
		expr, err = expression.Compile(q.keyCondition, filter, q.values, opts...)
	}
	if err != nil {
		return nil, err
	}

	start, err := cursor.Decode(q.startAfter)
	if err != nil {
		return nil, err
	}

	params := &storagemodels.QueryParams{
		Operation:         q.op,
		TableName:         q.table.name,
		Expression:        expr,
		Limit:             q.limit,
		BatchSize:         q.batchSize,
		ExclusiveStartKey: start,
	}
	if q.index != "" {
		params.IndexName = aws.String(q.index)
	}
	if q.descending {
		params.ScanIndexForward = aws.Bool(false)
	}
	if q.consistent {
		params.ConsistentRead = aws.Bool(true)
	}
	return params, nil
}

// Iter returns a lazy iterator over the results. A build error surfaces
// through the iterator's Err on the first call to Next.
func (q *Query) Iter(ctx context.Context) *paginate.Iterator {
	params, err := q.Build()
	if err != nil {
		return paginate.New(func(context.Context, paginate.Request) (*paginate.Page, error) {
			return nil, err
		})
	}
	return q.table.Iterate(ctx, params)
}

// All drains every matching item, honoring Limit.
func (q *Query) All(ctx context.Context) ([]map[string]any, error) {
	return paginate.Collect(ctx, q.Iter(ctx))
}

// PageResult is a single page of results with the token for the next one.
type PageResult struct {
	Items        []map[string]any
	Raw          []map[string]types.AttributeValue
	Next         string
	Count        int32
	ScannedCount int32
}

// Page fetches exactly one page. Next is empty on the final page.
func (q *Query) Page(ctx context.Context) (*PageResult, error) {
	params, err := q.Build()
	if err != nil {
		return nil, err
	}

	batch := params.BatchSize
	if batch == 0 {
		batch = q.table.batchSize
	}
	if params.Limit > 0 && (batch == 0 || int64(batch) > params.Limit) {
		batch = int32(min(params.Limit, math.MaxInt32))
	}

	direction := paginate.Ascending
	if params.Descending() {
		direction = paginate.Descending
	}

	page, err := q.table.fetcher(params, q.table.maxRetries, q.table.retryBackoff)(ctx, paginate.Request{
		BatchSize: batch,
		Cursor:    params.ExclusiveStartKey,
		Direction: direction,
	})
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(page.Items))
	for _, raw := range page.Items {
		item, err := attrvalue.DecodeMap(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	next, err := cursor.Encode(page.Cursor)
	if err != nil {
		return nil, err
	}

	return &PageResult{
		Items:        items,
		Raw:          page.Items,
		Next:         next,
		Count:        page.Count,
		ScannedCount: page.ScannedCount,
	}, nil
}
