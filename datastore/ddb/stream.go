/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/expression"
	"github.com/suparena/ddbquery/paginate"
	"github.com/suparena/ddbquery/storagemodels"
)

// Iterate returns a lazy iterator over params. Throttled fetches are retried
// with the table's retry settings; any other error fails the iterator.
func (t *Table) Iterate(ctx context.Context, params *storagemodels.QueryParams) *paginate.Iterator {
	return t.iterate(params, t.maxRetries, t.retryBackoff, 0)
}

func (t *Table) iterate(params *storagemodels.QueryParams, maxRetries int, backoff time.Duration, pageSize int32) *paginate.Iterator {
	batch := params.BatchSize
	if batch == 0 {
		batch = pageSize
	}
	if batch == 0 {
		batch = t.batchSize
	}

	opts := []paginate.Option{
		paginate.WithBatchSize(batch),
		paginate.WithLimit(params.Limit),
		paginate.WithStartCursor(params.ExclusiveStartKey),
		paginate.WithLogger(t.logger),
	}
	if params.Descending() {
		opts = append(opts, paginate.WithDirection(paginate.Descending))
	}
	if keyFn := t.itemKey(params.IndexName); keyFn != nil {
		opts = append(opts, paginate.WithItemKey(keyFn))
	}
	return paginate.New(t.fetcher(params, maxRetries, backoff), opts...)
}

// fetcher adapts params into a page fetch function for the iterator.
func (t *Table) fetcher(params *storagemodels.QueryParams, maxRetries int, backoff time.Duration) paginate.FetchFunc {
	expr := params.Expression
	if expr == nil {
		expr = &expression.Expression{}
	}

	return func(ctx context.Context, req paginate.Request) (*paginate.Page, error) {
		var limit *int32
		if req.BatchSize > 0 {
			limit = aws.Int32(req.BatchSize)
		}

		if params.Operation == storagemodels.OperationScan {
			out, err := t.scanWithRetry(ctx, &sdk.ScanInput{
				TableName:                 aws.String(params.TableName),
				IndexName:                 params.IndexName,
				FilterExpression:          expr.FilterExpression(),
				ProjectionExpression:      expr.ProjectionExpression(),
				ExpressionAttributeNames:  expr.AttributeNames(),
				ExpressionAttributeValues: expr.AttributeValues(),
				ExclusiveStartKey:         req.Cursor,
				ConsistentRead:            params.ConsistentRead,
				Limit:                     limit,
			}, maxRetries, backoff)
			if err != nil {
				return nil, err
			}
			return &paginate.Page{
				Items:        out.Items,
				Cursor:       out.LastEvaluatedKey,
				Count:        out.Count,
				ScannedCount: out.ScannedCount,
			}, nil
		}

		out, err := t.queryWithRetry(ctx, &sdk.QueryInput{
			TableName:                 aws.String(params.TableName),
			IndexName:                 params.IndexName,
			KeyConditionExpression:    expr.KeyConditionExpression(),
			FilterExpression:          expr.FilterExpression(),
			ProjectionExpression:      expr.ProjectionExpression(),
			ExpressionAttributeNames:  expr.AttributeNames(),
			ExpressionAttributeValues: expr.AttributeValues(),
			ExclusiveStartKey:         req.Cursor,
			ScanIndexForward:          aws.Bool(req.Direction.Forward()),
			ConsistentRead:            params.ConsistentRead,
			Limit:                     limit,
		}, maxRetries, backoff)
		if err != nil {
			return nil, err
		}
		return &paginate.Page{
			Items:        out.Items,
			Cursor:       out.LastEvaluatedKey,
			Count:        out.Count,
			ScannedCount: out.ScannedCount,
		}, nil
	}
}

// Stream performs a streaming read with configurable options. Items arrive
// in store order on a buffered channel that is closed when the read ends or
// ctx is cancelled.
func (t *Table) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[map[string]any] {
	return stream(ctx, t, params, decodedItem, opts)
}

// Stream runs the query through Table.Stream.
func (q *Query) Stream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[map[string]any] {
	params, err := q.Build()
	if err != nil {
		return failedStream[map[string]any](err)
	}
	return q.table.Stream(ctx, params, opts...)
}

// StreamEntities streams the query's results unmarshaled into T. An item
// that does not unmarshal is reported on its own result and the stream
// continues.
func StreamEntities[T any](ctx context.Context, q *Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	params, err := q.Build()
	if err != nil {
		return failedStream[T](err)
	}
	return stream(ctx, q.table, params, func(raw map[string]types.AttributeValue, _ map[string]any) (T, error) {
		var entity T
		if err := attributevalue.UnmarshalMap(raw, &entity); err != nil {
			return entity, fmt.Errorf("failed to unmarshal item to type %T: %w", entity, err)
		}
		return entity, nil
	}, opts)
}

func decodedItem(_ map[string]types.AttributeValue, item map[string]any) (map[string]any, error) {
	return item, nil
}

func failedStream[T any](err error) <-chan storagemodels.StreamResult[T] {
	ch := make(chan storagemodels.StreamResult[T], 1)
	ch <- storagemodels.StreamResult[T]{
		Error: err,
		Meta:  storagemodels.StreamMeta{Timestamp: time.Now()},
	}
	close(ch)
	return ch
}

func stream[T any](
	ctx context.Context,
	t *Table,
	params *storagemodels.QueryParams,
	convert func(map[string]types.AttributeValue, map[string]any) (T, error),
	opts []storagemodels.StreamOption,
) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.NewStreamOptions(opts...)

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	go streamWorker(ctx, t, params, convert, options, resultCh)
	return resultCh
}

// streamWorker drives one iterator at a time. When the error handler asks to
// continue after a failure, a fresh iterator resumes from the failed one's
// cursor with the remaining limit.
func streamWorker[T any](
	ctx context.Context,
	t *Table,
	params *storagemodels.QueryParams,
	convert func(map[string]types.AttributeValue, map[string]any) (T, error),
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[T],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	var errs []error
	startTime := time.Now()

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			LastKey:        lastKey,
			Errors:         errs,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(r storagemodels.StreamResult[T]) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case resultCh <- r:
			return true
		}
	}

	current := *params
	consecutiveFailures := 0
	for {
		it := t.iterate(&current, options.MaxRetries, options.RetryBackoff, options.PageSize)
		pagesSeen := 0

		for it.Next(ctx) {
			if it.Pages() != pagesSeen {
				pageNumber += it.Pages() - pagesSeen
				pagesSeen = it.Pages()
				consecutiveFailures = 0
				reportProgress(it.Cursor())
			}

			raw := it.Raw()
			rawCopy := make(map[string]types.AttributeValue, len(raw))
			for k, v := range raw {
				rawCopy[k] = v
			}

			result := storagemodels.StreamResult[T]{
				Raw: rawCopy,
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}
			result.Item, result.Error = convert(raw, it.Item())
			itemIndex++

			if !send(result) {
				return
			}
			if result.Error != nil {
				errs = append(errs, result.Error)
			}
		}
		if it.Pages() > pagesSeen {
			pageNumber += it.Pages() - pagesSeen
		}

		err := it.Err()
		if err == nil || ctx.Err() != nil {
			reportProgress(nil)
			return
		}

		consecutiveFailures++
		resume := options.ErrorHandler != nil && options.ErrorHandler(err) && consecutiveFailures <= options.MaxRetries+1
		if !resume {
			send(storagemodels.StreamResult[T]{
				Error: fmt.Errorf("stream failed: %w", err),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			})
			reportProgress(it.Cursor())
			return
		}

		t.logger.Warn().Err(err).Int64("items", itemIndex).Msg("resuming stream after error")
		errs = append(errs, err)
		current.ExclusiveStartKey = it.Cursor()
		if current.Limit > 0 {
			current.Limit -= it.Yielded()
			if current.Limit <= 0 {
				reportProgress(nil)
				return
			}
		}
	}
}

// queryWithRetry executes a query with configurable retry logic
func (t *Table) queryWithRetry(ctx context.Context, input *sdk.QueryInput, maxRetries int, backoff time.Duration) (*sdk.QueryOutput, error) {
	return withRetry(ctx, t, "Query", maxRetries, backoff, func() (*sdk.QueryOutput, error) {
		return t.api.Query(ctx, input)
	})
}

// scanWithRetry executes a scan with configurable retry logic
func (t *Table) scanWithRetry(ctx context.Context, input *sdk.ScanInput, maxRetries int, backoff time.Duration) (*sdk.ScanOutput, error) {
	return withRetry(ctx, t, "Scan", maxRetries, backoff, func() (*sdk.ScanOutput, error) {
		return t.api.Scan(ctx, input)
	})
}

func withRetry[O any](ctx context.Context, t *Table, op string, maxRetries int, backoff time.Duration, call func() (O, error)) (O, error) {
	var zero O
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Check context before retry
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		out, err := call()
		if err == nil {
			return out, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return zero, err
		}

		// Don't sleep after last attempt
		if attempt < maxRetries {
			wait := time.Duration(attempt+1) * backoff
			t.logger.Debug().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("backoff", wait).Msg("retrying")
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return zero, fmt.Errorf("%s failed after %d retries: %w", op, maxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	// Check for specific retryable DynamoDB errors
	var throughput *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	switch {
	case stderrors.As(err, &throughput), stderrors.As(err, &requestLimit), stderrors.As(err, &internal):
		return true
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}
