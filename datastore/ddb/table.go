/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/suparena/ddbquery/attrvalue"
	"github.com/suparena/ddbquery/datastore"
	"github.com/suparena/ddbquery/errors"
	"github.com/suparena/ddbquery/expression"
)

// Table implements datastore.Table on top of a DynamoDB API client. It is
// immutable after construction and safe for concurrent use.
type Table struct {
	api          API
	name         string
	schema       KeySchema
	indexes      map[string]KeySchema
	logger       zerolog.Logger
	maxRetries   int
	retryBackoff time.Duration
	batchSize    int32
}

var _ datastore.Table = (*Table)(nil)

// TableOption configures a Table.
type TableOption func(*Table)

// WithLogger sets the logger used for request-level debug output.
func WithLogger(logger zerolog.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithMaxRetries sets how many times a throttled page fetch is retried.
func WithMaxRetries(n int) TableOption {
	return func(t *Table) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base backoff between fetch retries. The n-th
// retry waits n times this duration.
func WithRetryBackoff(d time.Duration) TableOption {
	return func(t *Table) {
		t.retryBackoff = d
	}
}

// WithBatchSize sets the default page size for reads.
func WithBatchSize(n int32) TableOption {
	return func(t *Table) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithIndex declares a secondary index key schema. Declared indexes give
// exact resume cursors when an index read stops in the middle of a page.
func WithIndex(name string, schema KeySchema) TableOption {
	return func(t *Table) {
		t.indexes[name] = schema
	}
}

// NewTable returns a client for the named table.
func NewTable(api API, name string, schema KeySchema, opts ...TableOption) *Table {
	t := &Table{
		api:          api,
		name:         name,
		schema:       schema,
		indexes:      make(map[string]KeySchema),
		logger:       zerolog.Nop(),
		maxRetries:   3,
		retryBackoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With().Str("table", name).Logger()
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Schema returns the table's primary key schema.
func (t *Table) Schema() KeySchema {
	return t.schema
}

// Get retrieves a single item by its primary key.
func (t *Table) Get(ctx context.Context, key map[string]any) (map[string]any, error) {
	k, err := t.schema.KeyOf(key)
	if err != nil {
		return nil, err
	}

	out, err := t.api.GetItem(ctx, &sdk.GetItemInput{
		TableName: aws.String(t.name),
		Key:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, errors.NewNotFoundError(t.name, formatKey(k))
	}
	return attrvalue.DecodeMap(out.Item)
}

// Put stores item, replacing any existing item with the same key. Values may
// be native or wire encoded.
func (t *Table) Put(ctx context.Context, item map[string]any) error {
	encoded, err := attrvalue.NormalizeMap(item)
	if err != nil {
		return err
	}
	return t.putItem(ctx, encoded, false)
}

// Create stores item only if no item with the same key exists.
func (t *Table) Create(ctx context.Context, item map[string]any) error {
	encoded, err := attrvalue.NormalizeMap(item)
	if err != nil {
		return err
	}
	return t.putItem(ctx, encoded, true)
}

// PutEntity stores a struct through the SDK's attributevalue marshaller.
func PutEntity[T any](ctx context.Context, t *Table, entity T) error {
	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	return t.putItem(ctx, av, false)
}

// GetEntity retrieves a single item into a new T.
func GetEntity[T any](ctx context.Context, t *Table, key map[string]any) (*T, error) {
	k, err := t.schema.KeyOf(key)
	if err != nil {
		return nil, err
	}

	out, err := t.api.GetItem(ctx, &sdk.GetItemInput{
		TableName: aws.String(t.name),
		Key:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, errors.NewNotFoundError(t.name, formatKey(k))
	}

	result := new(T)
	if err := attributevalue.UnmarshalMap(out.Item, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return result, nil
}

func (t *Table) putItem(ctx context.Context, item map[string]types.AttributeValue, ifAbsent bool) error {
	k, err := t.schema.Key(item)
	if err != nil {
		return err
	}

	input := &sdk.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	}
	if ifAbsent {
		p := expression.NewPlaceholders()
		input.ConditionExpression = aws.String("attribute_not_exists(" + p.Name(t.schema.Hash.Name) + ")")
		input.ExpressionAttributeNames = p.Names()
	}

	if _, err := t.api.PutItem(ctx, input); err != nil {
		var cfe *types.ConditionalCheckFailedException
		if ifAbsent && stderrors.As(err, &cfe) {
			return errors.NewAlreadyExistsError(t.name, formatKey(k))
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Delete removes an item by its primary key. Deleting a missing item is not
// an error.
func (t *Table) Delete(ctx context.Context, key map[string]any) error {
	k, err := t.schema.KeyOf(key)
	if err != nil {
		return err
	}

	_, err = t.api.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       k,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}

// Update sets the given attributes on an existing or new item and returns
// the item as stored. condition is an optional predicate in the same
// language as filters, with its placeholders bound from values.
//
//	item, err := table.Update(ctx,
//	    map[string]any{"PK": "ORDER#1"},
//	    map[string]any{"status": "shipped"},
//	    "status = :expected", map[string]any{"expected": "paid"})
func (t *Table) Update(ctx context.Context, key map[string]any, updates map[string]any, condition string, values map[string]any) (map[string]any, error) {
	k, err := t.schema.KeyOf(key)
	if err != nil {
		return nil, err
	}
	for _, name := range t.schema.Names() {
		if _, ok := updates[name]; ok {
			return nil, errors.NewValidationError(name, "key attributes cannot be updated")
		}
	}

	u, err := expression.CompileUpdate(updates, condition, values)
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := t.api.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       k,
		UpdateExpression:          aws.String(u.Set),
		ConditionExpression:       u.ConditionExpression(),
		ExpressionAttributeNames:  u.Names,
		ExpressionAttributeValues: u.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return nil, errors.NewConditionFailedError("Update", condition)
		}
		return nil, fmt.Errorf("UpdateItem failed: %w", err)
	}
	return attrvalue.DecodeMap(out.Attributes)
}

// itemKey returns a function extracting the resume key of an item read from
// the table or from index, or nil when the index schema is unknown.
func (t *Table) itemKey(index *string) func(map[string]types.AttributeValue) map[string]types.AttributeValue {
	schemas := []KeySchema{t.schema}
	if index != nil {
		idx, ok := t.indexes[*index]
		if !ok {
			return nil
		}
		schemas = append(schemas, idx)
	}

	return func(item map[string]types.AttributeValue) map[string]types.AttributeValue {
		key := make(map[string]types.AttributeValue)
		for _, s := range schemas {
			k, err := s.Key(item)
			if err != nil {
				return nil
			}
			for name, av := range k {
				key[name] = av
			}
		}
		return key
	}
}

// formatKey renders a key as "name=value" pairs sorted by name.
func formatKey(key map[string]types.AttributeValue) string {
	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		v, err := attrvalue.Decode(key[name])
		if err != nil {
			v = "?"
		}
		parts[i] = fmt.Sprintf("%s=%v", name, v)
	}
	return strings.Join(parts, ", ")
}
