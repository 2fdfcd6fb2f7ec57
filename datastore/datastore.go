/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/ddbquery/paginate"
	"github.com/suparena/ddbquery/storagemodels"
)

// Table is a key-value table addressed by its primary key attributes. Keys
// and items are native values or wire-encoded attribute values.
type Table interface {
	Name() string

	Get(ctx context.Context, key map[string]any) (map[string]any, error)

	Put(ctx context.Context, item map[string]any) error

	Delete(ctx context.Context, key map[string]any) error

	Update(ctx context.Context, key map[string]any, updates map[string]any, condition string, values map[string]any) (map[string]any, error)

	Iterate(ctx context.Context, params *storagemodels.QueryParams) *paginate.Iterator

	Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[map[string]any]
}
