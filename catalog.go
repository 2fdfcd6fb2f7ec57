/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddbquery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/suparena/ddbquery/config"
	"github.com/suparena/ddbquery/datastore"
	"github.com/suparena/ddbquery/datastore/ddb"
	"github.com/suparena/ddbquery/errors"
	"github.com/suparena/ddbquery/registry"
)

// Catalog is a thread-safe registry of tables keyed by table name.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]datastore.Table
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tables: make(map[string]datastore.Table),
	}
}

// Register adds a table under its name.
func (c *Catalog) Register(t datastore.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := t.Name()
	if _, exists := c.tables[name]; exists {
		return errors.NewAlreadyExistsError("catalog", name)
	}
	c.tables[name] = t
	return nil
}

// Table retrieves a table by name.
func (c *Catalog) Table(name string) (datastore.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, exists := c.tables[name]
	if !exists {
		return nil, errors.NewNotFoundError("catalog", name)
	}
	return t, nil
}

// Remove deletes a table by name.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; !exists {
		return errors.NewNotFoundError("catalog", name)
	}
	delete(c.tables, name)
	return nil
}

// List returns the registered table names in sorted order.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup retrieves a table and asserts its concrete type, for callers that
// need implementation-specific methods such as ddb.Table.Query.
func Lookup[T datastore.Table](c *Catalog, name string) (T, error) {
	var zero T
	t, err := c.Table(name)
	if err != nil {
		return zero, err
	}
	typed, ok := t.(T)
	if !ok {
		return zero, errors.NewValidationError(name, fmt.Sprintf("table is %T, not %T", t, zero))
	}
	return typed, nil
}

// EntityTable returns the DynamoDB table registered for entity type T with
// registry.RegisterTable.
func EntityTable[T any](c *Catalog) (*ddb.Table, error) {
	name, ok := registry.TableFor[T]()
	if !ok {
		var zero T
		return nil, errors.NewValidationError("entity", fmt.Sprintf("no table registered for %T", zero))
	}
	return Lookup[*ddb.Table](c, name)
}

// Open connects to DynamoDB and registers every table declared in cfg.
func Open(ctx context.Context, cfg *config.Config) (*Catalog, error) {
	logger := config.NewLogger(cfg.Logging)
	client, err := config.NewClient(ctx, cfg.AWS, logger)
	if err != nil {
		return nil, err
	}
	return NewCatalogFromConfig(client, cfg, logger)
}

// NewCatalogFromConfig registers every table declared in cfg against api.
func NewCatalogFromConfig(api ddb.API, cfg *config.Config, logger zerolog.Logger) (*Catalog, error) {
	tables, err := cfg.BuildTables(api, logger)
	if err != nil {
		return nil, err
	}

	c := NewCatalog()
	for _, t := range tables {
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}
	logger.Debug().Strs("tables", c.List()).Msg("catalog ready")
	return c, nil
}
