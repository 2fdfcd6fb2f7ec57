/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/ddbquery/datastore/mock"
	"github.com/suparena/ddbquery/errors"
)

type order struct {
	PK     string  `dynamodbav:"PK"`
	SK     int     `dynamodbav:"SK"`
	Status string  `dynamodbav:"status"`
	Total  float64 `dynamodbav:"total"`
}

func newOrdersTable(t *testing.T, opts ...TableOption) (*Table, *mock.Client) {
	t.Helper()
	schema, err := NewKeySchema(map[string]string{"PK": "string"}, map[string]string{"SK": "number"})
	require.NoError(t, err)

	api := mock.NewClient().
		CreateTable("orders", "PK", "SK").
		AddIndex("orders", "ByStatus", "status", "SK")

	statusIndex, err := NewKeySchema(map[string]string{"status": "string"}, map[string]string{"SK": "number"})
	require.NoError(t, err)

	opts = append([]TableOption{WithIndex("ByStatus", statusIndex), WithRetryBackoff(0)}, opts...)
	return NewTable(api, "orders", schema, opts...), api
}

func seedOrders(t *testing.T, table *Table, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		status := "open"
		if i%3 == 0 {
			status = "closed"
		}
		require.NoError(t, table.Put(ctx, map[string]any{
			"PK":     "USER#1",
			"SK":     i,
			"status": status,
			"total":  float64(i) * 1.5,
		}))
	}
}

func TestTablePutGetDelete(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)

	err := table.Put(ctx, map[string]any{
		"PK":    "USER#1",
		"SK":    map[string]any{"N": "1"},
		"tags":  []any{"a", "b"},
		"blob":  []byte{1, 2},
		"extra": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, api.Count("orders"))

	item, err := table.Get(ctx, map[string]any{"PK": "USER#1", "SK": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"PK":    "USER#1",
		"SK":    json.Number("1"),
		"tags":  []any{"a", "b"},
		"blob":  []byte{1, 2},
		"extra": nil,
	}, item)

	require.NoError(t, table.Delete(ctx, map[string]any{"PK": "USER#1", "SK": 1}))
	_, err = table.Get(ctx, map[string]any{"PK": "USER#1", "SK": 1})
	require.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "PK=USER#1, SK=1")
}

func TestTablePutRejectsBadItems(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)

	err := table.Put(ctx, map[string]any{"PK": "USER#1"})
	assert.True(t, errors.IsValidationError(err))

	err = table.Put(ctx, map[string]any{"PK": "USER#1", "SK": 1, "bad": func() {}})
	assert.True(t, errors.IsUnsupportedValue(err))

	assert.Equal(t, 0, api.Calls(mock.OpPutItem))
}

func TestTableCreate(t *testing.T) {
	ctx := context.Background()
	table, _ := newOrdersTable(t)

	item := map[string]any{"PK": "USER#1", "SK": 1}
	require.NoError(t, table.Create(ctx, item))

	err := table.Create(ctx, item)
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestTableUpdate(t *testing.T) {
	ctx := context.Background()
	table, _ := newOrdersTable(t)
	seedOrders(t, table, 1)

	key := map[string]any{"PK": "USER#1", "SK": 1}
	item, err := table.Update(ctx, key,
		map[string]any{"status": "shipped", "total": 99},
		"status = :expected", map[string]any{"expected": "open"})
	require.NoError(t, err)
	assert.Equal(t, "shipped", item["status"])
	assert.Equal(t, json.Number("99"), item["total"])

	_, err = table.Update(ctx, key,
		map[string]any{"status": "cancelled"},
		"status = :expected", map[string]any{"expected": "open"})
	var cfe *errors.ConditionFailedError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, "status = :expected", cfe.Condition)

	_, err = table.Update(ctx, key, map[string]any{"SK": 2}, "", nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = table.Update(ctx, key, nil, "", nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestTableEntities(t *testing.T) {
	ctx := context.Background()
	table, _ := newOrdersTable(t)

	require.NoError(t, PutEntity(ctx, table, order{PK: "USER#9", SK: 4, Status: "open", Total: 12.5}))

	got, err := GetEntity[order](ctx, table, map[string]any{"PK": "USER#9", "SK": 4})
	require.NoError(t, err)
	assert.Equal(t, &order{PK: "USER#9", SK: 4, Status: "open", Total: 12.5}, got)

	_, err = GetEntity[order](ctx, table, map[string]any{"PK": "USER#9", "SK": 5})
	assert.True(t, errors.IsNotFound(err))
}

func TestTableItemKey(t *testing.T) {
	table, _ := newOrdersTable(t)
	item := map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: "USER#1"},
		"SK":     &types.AttributeValueMemberN{Value: "3"},
		"status": &types.AttributeValueMemberS{Value: "open"},
		"total":  &types.AttributeValueMemberN{Value: "4.5"},
	}

	assert.Len(t, table.itemKey(nil)(item), 2)

	index := "ByStatus"
	assert.Len(t, table.itemKey(&index)(item), 3)

	unknown := "Unknown"
	assert.Nil(t, table.itemKey(&unknown))
}
