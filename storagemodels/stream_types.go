/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StreamResult is one delivery on a stream channel. An Error with Raw set is
// an item that failed to decode and the stream goes on. An Error without Raw
// is a failed read and the last result before the channel closes.
type StreamResult[T any] struct {
	Item  T
	Raw   map[string]types.AttributeValue
	Error error
	Meta  StreamMeta
}

// StreamMeta locates a result within the stream. Index counts delivered
// items from 0 and PageNumber counts fetched pages from 1, both across
// resumes.
type StreamMeta struct {
	Index      int64
	PageNumber int
	Timestamp  time.Time
}

// StreamProgress is passed to the progress handler as each page arrives and
// once more when the stream ends.
type StreamProgress struct {
	ItemsProcessed int64
	PagesProcessed int
	Errors         []error
	StartTime      time.Time
	CurrentRate    float64 // items per second since StartTime

	// LastKey resumes the read after the most recent page, nil once the
	// result set is exhausted.
	LastKey map[string]types.AttributeValue
}

// StreamOptions tunes a streaming read.
type StreamOptions struct {
	BufferSize   int
	MaxRetries   int // per page, for throttling and server errors
	RetryBackoff time.Duration
	PageSize     int32

	ProgressHandler func(StreamProgress)

	// ErrorHandler sees every read failure that survived retries. Returning
	// true resumes from the last delivered item, at most MaxRetries+1 times
	// in a row.
	ErrorHandler func(error) bool
}

// StreamOption mutates StreamOptions.
type StreamOption func(*StreamOptions)

// DefaultStreamOptions buffers 100 results, reads pages of 100 items and
// retries each page 3 times, one second apart.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize:   100,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		PageSize:     100,
	}
}

// NewStreamOptions applies opts over the defaults. Negative sizes, retry
// counts and backoffs are raised to zero: an unbuffered channel, no retries,
// no wait and the table's own page size.
func NewStreamOptions(opts ...StreamOption) StreamOptions {
	o := DefaultStreamOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.BufferSize = max(o.BufferSize, 0)
	o.MaxRetries = max(o.MaxRetries, 0)
	o.RetryBackoff = max(o.RetryBackoff, 0)
	o.PageSize = max(o.PageSize, 0)
	return o
}

func WithBufferSize(size int) StreamOption {
	return func(o *StreamOptions) { o.BufferSize = size }
}

func WithMaxRetries(retries int) StreamOption {
	return func(o *StreamOptions) { o.MaxRetries = retries }
}

func WithRetryBackoff(backoff time.Duration) StreamOption {
	return func(o *StreamOptions) { o.RetryBackoff = backoff }
}

// WithPageSize sets the Limit sent with each request. Zero leaves it to the
// table.
func WithPageSize(size int32) StreamOption {
	return func(o *StreamOptions) { o.PageSize = size }
}

func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(o *StreamOptions) { o.ProgressHandler = handler }
}

func WithErrorHandler(handler func(error) bool) StreamOption {
	return func(o *StreamOptions) { o.ErrorHandler = handler }
}
