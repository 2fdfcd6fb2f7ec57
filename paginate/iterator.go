/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package paginate

import (
	"context"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/suparena/ddbquery/attrvalue"
)

// State is the lifecycle position of an Iterator.
type State int

const (
	Ready State = iota
	Fetching
	Yielding
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Fetching:
		return "fetching"
	case Yielding:
		return "yielding"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Direction is the sort order requested from the store.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// Forward reports whether d maps to ScanIndexForward=true.
func (d Direction) Forward() bool {
	return d != Descending
}

// Cursor is the store's continuation key. A nil or empty Cursor marks the
// final page.
type Cursor = map[string]types.AttributeValue

// Request is what the iterator asks of a FetchFunc. BatchSize zero means the
// store's default page size.
type Request struct {
	BatchSize int32
	Cursor    Cursor
	Direction Direction
}

// Page is one bounded result page in wire form.
type Page struct {
	Items        []map[string]types.AttributeValue
	Cursor       Cursor
	Count        int32
	ScannedCount int32
}

// FetchFunc performs one page request. It is never called concurrently for
// the same iterator.
type FetchFunc func(ctx context.Context, req Request) (*Page, error)

// Option configures an Iterator.
type Option func(*Iterator)

// WithBatchSize sets the page size requested from the store.
func WithBatchSize(n int32) Option {
	return func(it *Iterator) {
		if n > 0 {
			it.batchSize = n
		}
	}
}

// WithLimit caps the number of items yielded. Zero means unbounded.
func WithLimit(n int64) Option {
	return func(it *Iterator) {
		if n > 0 {
			it.limit = n
		}
	}
}

// WithDirection sets the sort order passed to every fetch.
func WithDirection(d Direction) Option {
	return func(it *Iterator) {
		it.direction = d
	}
}

// WithStartCursor resumes iteration after a cursor from an earlier session.
func WithStartCursor(c Cursor) Option {
	return func(it *Iterator) {
		if len(c) > 0 {
			it.cursor = c
		}
	}
}

// WithItemKey supplies a function extracting the continuation key of a raw
// item. With it, Cursor can resume exactly after the last yielded item even
// when iteration stopped in the middle of a page. A function returning an
// empty key falls back to the page cursor.
func WithItemKey(fn func(map[string]types.AttributeValue) Cursor) Option {
	return func(it *Iterator) {
		it.itemKey = fn
	}
}

// WithLogger sets the logger used for page-level debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(it *Iterator) {
		it.logger = logger
	}
}

// Iterator lazily walks a paginated result, fetching the next page only when
// the current one is exhausted. It is single-pass and owned by one consumer.
//
//	it := paginate.New(fetch, paginate.WithLimit(10))
//	for it.Next(ctx) {
//	    use(it.Item())
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
type Iterator struct {
	fetch     FetchFunc
	batchSize int32
	limit     int64
	direction Direction
	itemKey   func(map[string]types.AttributeValue) Cursor
	logger    zerolog.Logger

	state   State
	cursor  Cursor
	fetched bool
	page    []map[string]types.AttributeValue
	pos     int
	yielded int64
	pages   int

	item map[string]any
	raw  map[string]types.AttributeValue
	err  error
}

// New returns an iterator in the Ready state. No fetch happens until the
// first call to Next.
func New(fetch FetchFunc, opts ...Option) *Iterator {
	it := &Iterator{
		fetch:  fetch,
		logger: zerolog.Nop(),
		state:  Ready,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Next advances to the next item, fetching pages as needed. It returns false
// once the result is exhausted, the limit is reached, or a fetch or decode
// fails; Err distinguishes the last case.
func (it *Iterator) Next(ctx context.Context) bool {
	for {
		if it.state == Done || it.state == Failed {
			return false
		}
		if it.limit > 0 && it.yielded >= it.limit {
			it.finish("limit reached")
			return false
		}

		if it.pos < len(it.page) {
			raw := it.page[it.pos]
			it.pos++
			item, err := attrvalue.DecodeMap(raw)
			if err != nil {
				it.fail(fmt.Errorf("decode item %d: %w", it.yielded, err))
				return false
			}
			it.item, it.raw = item, raw
			it.yielded++
			it.state = Yielding
			return true
		}

		if it.fetched && len(it.cursor) == 0 {
			it.finish("no continuation cursor")
			return false
		}
		if err := ctx.Err(); err != nil {
			it.fail(err)
			return false
		}
		if !it.fetchPage(ctx) {
			return false
		}
	}
}

func (it *Iterator) fetchPage(ctx context.Context) bool {
	it.state = Fetching
	req := Request{
		BatchSize: it.nextBatchSize(),
		Cursor:    it.cursor,
		Direction: it.direction,
	}

	page, err := it.fetch(ctx, req)
	if err != nil {
		it.fail(err)
		return false
	}
	if page == nil {
		page = &Page{}
	}

	it.pages++
	it.fetched = true
	it.page, it.pos = page.Items, 0
	it.cursor = nil
	if len(page.Cursor) > 0 {
		it.cursor = page.Cursor
	}

	it.logger.Debug().
		Int("page", it.pages).
		Int("items", len(page.Items)).
		Int32("count", page.Count).
		Int32("scanned", page.ScannedCount).
		Bool("more", it.cursor != nil).
		Msg("fetched page")
	return true
}

func (it *Iterator) nextBatchSize() int32 {
	if it.limit == 0 {
		return it.batchSize
	}
	remaining := min(it.limit-it.yielded, math.MaxInt32)
	if it.batchSize == 0 || int64(it.batchSize) > remaining {
		return int32(remaining)
	}
	return it.batchSize
}

func (it *Iterator) finish(reason string) {
	it.state = Done
	it.item, it.raw = nil, nil
	it.logger.Debug().Int64("yielded", it.yielded).Int("pages", it.pages).Msg(reason)
}

func (it *Iterator) fail(err error) {
	it.state = Failed
	it.err = err
	it.item, it.raw = nil, nil
	it.logger.Debug().Err(err).Int64("yielded", it.yielded).Msg("iteration failed")
}

// Item returns the decoded current item. It is nil before the first call to
// Next and after iteration ends.
func (it *Iterator) Item() map[string]any {
	return it.item
}

// Raw returns the current item in wire form.
func (it *Iterator) Raw() map[string]types.AttributeValue {
	return it.raw
}

// Err returns the error that moved the iterator to Failed. Fetch errors are
// returned unchanged.
func (it *Iterator) Err() error {
	return it.err
}

// State returns the current lifecycle state.
func (it *Iterator) State() State {
	return it.state
}

// Yielded returns the number of items produced so far.
func (it *Iterator) Yielded() int64 {
	return it.yielded
}

// Pages returns the number of fetch calls that succeeded.
func (it *Iterator) Pages() int {
	return it.pages
}

// Cursor returns the key to resume from in a later session, or nil when the
// result is exhausted. If iteration stopped with items of the current page
// still unread, the cursor points after the last yielded item when an item
// key function was configured, and at the end of the page otherwise.
func (it *Iterator) Cursor() Cursor {
	if it.itemKey != nil && it.pos > 0 && it.pos < len(it.page) {
		if key := it.itemKey(it.page[it.pos-1]); len(key) > 0 {
			return key
		}
	}
	return it.cursor
}

// Collect drains the iterator into a slice.
func Collect(ctx context.Context, it *Iterator) ([]map[string]any, error) {
	var items []map[string]any
	for it.Next(ctx) {
		items = append(items, it.Item())
	}
	return items, it.Err()
}
