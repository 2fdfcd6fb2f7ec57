/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"context"
	"fmt"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/suparena/ddbquery/datastore/ddb"
)

// NewClient connects to DynamoDB with the configured region, credentials and
// endpoint.
func NewClient(ctx context.Context, cfg AWSConfig, logger zerolog.Logger) (*sdk.Client, error) {
	return ddb.NewDynamoDBClient(ctx, logger, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey, cfg.Endpoint)
}

// KeySchema converts the declaration into a ddb.KeySchema.
func (t TableConfig) KeySchema() (ddb.KeySchema, error) {
	return keySchema(t.HashKey, t.RangeKey)
}

// KeySchema converts the declaration into a ddb.KeySchema.
func (i IndexConfig) KeySchema() (ddb.KeySchema, error) {
	return keySchema(i.HashKey, i.RangeKey)
}

func keySchema(hash KeyConfig, rng *KeyConfig) (ddb.KeySchema, error) {
	hashMap := map[string]string{hash.Name: hash.Type}
	var rangeMap map[string]string
	if rng != nil {
		rangeMap = map[string]string{rng.Name: rng.Type}
	}
	return ddb.NewKeySchema(hashMap, rangeMap)
}

// BuildTable returns a table client for the declaration, carrying the
// configured retry policy and batch size.
func (c *Config) BuildTable(api ddb.API, tc TableConfig, logger zerolog.Logger) (*ddb.Table, error) {
	schema, err := tc.KeySchema()
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", tc.Name, err)
	}

	opts := []ddb.TableOption{
		ddb.WithLogger(logger),
		ddb.WithMaxRetries(c.Retry.MaxRetries),
		ddb.WithRetryBackoff(c.Retry.BackoffDuration()),
		ddb.WithBatchSize(c.BatchSize),
	}
	for _, ic := range tc.Indexes {
		indexSchema, err := ic.KeySchema()
		if err != nil {
			return nil, fmt.Errorf("table %s index %s: %w", tc.Name, ic.Name, err)
		}
		opts = append(opts, ddb.WithIndex(ic.Name, indexSchema))
	}
	return ddb.NewTable(api, tc.Name, schema, opts...), nil
}

// BuildTables returns a client for every declared table.
func (c *Config) BuildTables(api ddb.API, logger zerolog.Logger) ([]*ddb.Table, error) {
	tables := make([]*ddb.Table, 0, len(c.Tables))
	for _, tc := range c.Tables {
		t, err := c.BuildTable(api, tc, logger)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}
