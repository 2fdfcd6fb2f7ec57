/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/ddbquery/datastore/mock"
	"github.com/suparena/ddbquery/errors"
	"github.com/suparena/ddbquery/storagemodels"
)

func drain[T any](ch <-chan storagemodels.StreamResult[T]) []storagemodels.StreamResult[T] {
	var out []storagemodels.StreamResult[T]
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func userOrders(table *Table) *Query {
	return table.Query("PK = :pk").Value("pk", "USER#1")
}

func TestStreamBasic(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)
	seedOrders(t, table, 5)

	var progress []storagemodels.StreamProgress
	results := drain(userOrders(table).Stream(ctx,
		storagemodels.WithPageSize(2),
		storagemodels.WithBufferSize(1),
		storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			progress = append(progress, p)
		}),
	))

	require.Len(t, results, 5)
	for i, r := range results {
		require.NoError(t, r.Error)
		assert.Equal(t, int64(i), r.Meta.Index)
		assert.Equal(t, i/2+1, r.Meta.PageNumber)
		assert.Equal(t, fmt.Sprint(i+1), fmt.Sprint(r.Item["SK"]), "items arrive in key order")
		assert.Contains(t, r.Raw, "status")
	}
	assert.Equal(t, 3, api.Calls(mock.OpQuery))

	require.Len(t, progress, 4)
	last := progress[len(progress)-1]
	assert.Equal(t, int64(5), last.ItemsProcessed)
	assert.Equal(t, 3, last.PagesProcessed)
	assert.Nil(t, last.LastKey)
	assert.Empty(t, last.Errors)
}

func TestStreamRetriesThrottling(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)
	seedOrders(t, table, 3)

	api.FailNext(mock.OpQuery,
		&types.ProvisionedThroughputExceededException{},
		&types.InternalServerError{},
	)

	results := drain(userOrders(table).Stream(ctx,
		storagemodels.WithMaxRetries(2),
		storagemodels.WithRetryBackoff(0),
	))
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Error)
	}
	assert.Equal(t, 3, api.Calls(mock.OpQuery))
}

func TestStreamTerminalError(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)
	seedOrders(t, table, 3)

	denied := &types.ResourceNotFoundException{Message: aws.String("gone")}
	api.FailNext(mock.OpQuery, denied)

	results := drain(userOrders(table).Stream(ctx, storagemodels.WithRetryBackoff(0)))
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, denied)
	assert.Contains(t, results[0].Error.Error(), "stream failed")
	assert.Equal(t, 1, api.Calls(mock.OpQuery))
}

func TestStreamErrorHandlerResumes(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)
	seedOrders(t, table, 5)

	denied := &types.ResourceNotFoundException{Message: aws.String("blip")}
	api.FailNext(mock.OpQuery, nil, denied)

	var handled []error
	var last storagemodels.StreamProgress
	results := drain(userOrders(table).Stream(ctx,
		storagemodels.WithPageSize(2),
		storagemodels.WithRetryBackoff(0),
		storagemodels.WithErrorHandler(func(err error) bool {
			handled = append(handled, err)
			return true
		}),
		storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			last = p
		}),
	))

	require.Len(t, results, 5)
	for i, r := range results {
		require.NoError(t, r.Error)
		assert.Equal(t, fmt.Sprint(i+1), fmt.Sprint(r.Item["SK"]), "no item is repeated or skipped")
	}
	require.Len(t, handled, 1)
	assert.Same(t, denied, handled[0])
	assert.Equal(t, 4, api.Calls(mock.OpQuery))

	// The resume cursor came from the item key, not a fresh start.
	inputs := api.QueryInputs()
	assert.NotNil(t, inputs[2].ExclusiveStartKey)
	assert.Len(t, last.Errors, 1)
}

func TestStreamResumeWithLimit(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)
	seedOrders(t, table, 6)

	api.FailNext(mock.OpQuery, nil, &types.ResourceNotFoundException{})

	results := drain(userOrders(table).Limit(3).Stream(ctx,
		storagemodels.WithPageSize(2),
		storagemodels.WithErrorHandler(func(error) bool { return true }),
	))
	require.Len(t, results, 3)
	assert.Equal(t, "3", fmt.Sprint(results[2].Item["SK"]))

	inputs := api.QueryInputs()
	require.Len(t, inputs, 3)
	assert.Equal(t, int32(1), aws.ToInt32(inputs[2].Limit), "the resumed read asks only for what is left")
}

func TestStreamGivesUpOnRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	table, api := newOrdersTable(t)
	seedOrders(t, table, 2)

	api.WithError(mock.OpQuery, &types.ResourceNotFoundException{})

	calls := 0
	results := drain(userOrders(table).Stream(ctx,
		storagemodels.WithMaxRetries(1),
		storagemodels.WithRetryBackoff(0),
		storagemodels.WithErrorHandler(func(error) bool {
			calls++
			return true
		}),
	))
	require.Len(t, results, 1)
	require.Error(t, results[0].Error)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, api.Calls(mock.OpQuery))
}

func TestStreamCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	table, _ := newOrdersTable(t)
	seedOrders(t, table, 10)

	ch := userOrders(table).Stream(ctx, storagemodels.WithBufferSize(0), storagemodels.WithPageSize(2))
	first := <-ch
	require.NoError(t, first.Error)
	cancel()

	remaining := drain(ch)
	assert.LessOrEqual(t, len(remaining), 1)
}

func TestStreamNegativeBufferSize(t *testing.T) {
	ctx := context.Background()
	table, _ := newOrdersTable(t)
	seedOrders(t, table, 2)

	results := drain(userOrders(table).Stream(ctx, storagemodels.WithBufferSize(-1)))
	assert.Len(t, results, 2)
}

func TestStreamBuildError(t *testing.T) {
	table, api := newOrdersTable(t)

	results := drain(table.Query("PK = :pk").Stream(context.Background()))
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, errors.ErrMissingValue)
	assert.Equal(t, 0, api.Calls(mock.OpQuery))
}

func TestTableStreamParams(t *testing.T) {
	ctx := context.Background()
	table, _ := newOrdersTable(t)
	seedOrders(t, table, 4)

	params, err := table.Scan().Filter("status = :s").Value("s", "open").Build()
	require.NoError(t, err)

	results := drain(table.Stream(ctx, params))
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "open", r.Item["status"])
	}
}

func TestStreamEntities(t *testing.T) {
	ctx := context.Background()
	table, _ := newOrdersTable(t)
	seedOrders(t, table, 3)
	require.NoError(t, table.Put(ctx, map[string]any{"PK": "USER#1", "SK": 4, "total": "not a number"}))

	results := drain(StreamEntities[order](ctx, userOrders(table)))
	require.Len(t, results, 4)

	for i, r := range results[:3] {
		require.NoError(t, r.Error)
		assert.Equal(t, i+1, r.Item.SK)
		assert.Equal(t, float64(i+1)*1.5, r.Item.Total)
	}
	assert.Error(t, results[3].Error, "a bad item is reported without stopping the stream")
	assert.NotNil(t, results[3].Raw)
}

type retryable bool

func (r retryable) Error() string     { return "retryable" }
func (r retryable) IsRetryable() bool { return bool(r) }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"throughput", &types.ProvisionedThroughputExceededException{}, true},
		{"request limit", &types.RequestLimitExceeded{}, true},
		{"internal", &types.InternalServerError{}, true},
		{"wrapped throughput", fmt.Errorf("query: %w", &types.ProvisionedThroughputExceededException{}), true},
		{"sdk retryable", retryable(true), true},
		{"sdk not retryable", retryable(false), false},
		{"condition", &types.ConditionalCheckFailedException{}, false},
		{"missing table", &types.ResourceNotFoundException{}, false},
		{"plain", stderrors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}
