/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command ddbquery compiles a key condition and filter into a DynamoDB
// request, prints it, and optionally runs it.
//
//	ddbquery -table orders -key 'PK = :pk AND SK BETWEEN :lo AND :hi' \
//	    -values '{"pk":"USER#1","lo":1,"hi":10}' -filter 'status = :s' ...
//
// Without -run the compiled request is printed as JSON. With -run the query
// is executed against the configured endpoint and matching items are
// printed as JSON lines.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"github.com/suparena/ddbquery"
	"github.com/suparena/ddbquery/attrvalue"
	"github.com/suparena/ddbquery/config"
	"github.com/suparena/ddbquery/cursor"
	"github.com/suparena/ddbquery/datastore/ddb"
	"github.com/suparena/ddbquery/storagemodels"
)

type options struct {
	configPath string
	table      string
	index      string
	key        string
	filter     string
	values     string
	projection string
	after      string
	limit      int64
	batch      int
	desc       bool
	run        bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("ddbquery", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to the YAML configuration file")
	fs.StringVar(&o.table, "table", "", "Table name")
	fs.StringVar(&o.index, "index", "", "Secondary index name")
	fs.StringVar(&o.key, "key", "", "Key condition; omit to scan")
	fs.StringVar(&o.filter, "filter", "", "Filter predicate")
	fs.StringVar(&o.values, "values", "{}", "Placeholder values as a JSON object")
	fs.StringVar(&o.projection, "projection", "", "Comma separated attributes to return")
	fs.StringVar(&o.after, "after", "", "Resume token from a previous run")
	fs.Int64Var(&o.limit, "limit", 0, "Maximum number of items (0 for all)")
	fs.IntVar(&o.batch, "batch", 0, "Items requested per page (0 for the store default)")
	fs.BoolVar(&o.desc, "desc", false, "Return items in descending sort key order")
	fs.BoolVar(&o.run, "run", false, "Execute the request and print the items")
	fs.BoolVar(&o.version, "version", false, "Show version information")
	fs.BoolVar(&o.version, "v", false, "Show version information (short)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !o.version && o.table == "" {
		return nil, fmt.Errorf("-table is required")
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "ddbquery: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if o.version {
		info := ddbquery.GetVersionInfo()
		fmt.Fprintf(stdout, "ddbquery version %s\n", info.Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(stdout, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return nil
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Logging)

	values, err := parseValues(o.values)
	if err != nil {
		return err
	}

	if !o.run {
		table, err := dryRunTable(cfg, o.table, logger)
		if err != nil {
			return err
		}
		params, err := buildQuery(table, o, values).Build()
		if err != nil {
			return err
		}
		return printRequest(stdout, params)
	}

	catalog, err := ddbquery.Open(ctx, cfg)
	if err != nil {
		return err
	}
	table, err := ddbquery.Lookup[*ddb.Table](catalog, o.table)
	if err != nil {
		return fmt.Errorf("table %s must be declared in the configuration: %w", o.table, err)
	}
	return runQuery(ctx, stdout, buildQuery(table, o, values), logger)
}

// parseValues decodes the -values object keeping numbers as json.Number.
func parseValues(raw string) (map[string]any, error) {
	values := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return values, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid -values: %w", err)
	}
	return values, nil
}

// dryRunTable returns a table client that is only used to build requests.
func dryRunTable(cfg *config.Config, name string, logger zerolog.Logger) (*ddb.Table, error) {
	if tc, ok := cfg.Table(name); ok {
		return cfg.BuildTable(nil, tc, logger)
	}
	return ddb.NewTable(nil, name, ddb.KeySchema{}, ddb.WithLogger(logger), ddb.WithBatchSize(cfg.BatchSize)), nil
}

func buildQuery(table *ddb.Table, o *options, values map[string]any) *ddb.Query {
	var q *ddb.Query
	switch {
	case o.index != "" && o.key != "":
		q = table.Index(o.index).Query(o.key)
	case o.index != "":
		q = table.Index(o.index).Scan()
	case o.key != "":
		q = table.Query(o.key)
	default:
		q = table.Scan()
	}

	q = q.Filter(o.filter).Values(values).Limit(o.limit).BatchSize(int32(o.batch)).StartAfter(o.after)
	if o.projection != "" {
		q = q.Project(strings.Split(o.projection, ",")...)
	}
	if o.desc {
		q = q.Descending()
	}
	return q
}

// request is the JSON rendering of a compiled read.
type request struct {
	Operation                 storagemodels.Operation `json:"Operation"`
	TableName                 string                  `json:"TableName"`
	IndexName                 *string                 `json:"IndexName,omitempty"`
	KeyConditionExpression    *string                 `json:"KeyConditionExpression,omitempty"`
	FilterExpression          *string                 `json:"FilterExpression,omitempty"`
	ProjectionExpression      *string                 `json:"ProjectionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string       `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues map[string]any          `json:"ExpressionAttributeValues,omitempty"`
	Limit                     *int32                  `json:"Limit,omitempty"`
	MaxItems                  int64                   `json:"MaxItems,omitempty"`
	ExclusiveStartKey         map[string]any          `json:"ExclusiveStartKey,omitempty"`
	ScanIndexForward          *bool                   `json:"ScanIndexForward,omitempty"`
	ConsistentRead            *bool                   `json:"ConsistentRead,omitempty"`
}

func printRequest(w io.Writer, params *storagemodels.QueryParams) error {
	expr := params.Expression
	values, err := attrvalue.ToWireMap(expr.AttributeValues())
	if err != nil {
		return err
	}
	start, err := attrvalue.ToWireMap(params.ExclusiveStartKey)
	if err != nil {
		return err
	}

	req := request{
		Operation:                 params.Operation,
		TableName:                 params.TableName,
		IndexName:                 params.IndexName,
		KeyConditionExpression:    expr.KeyConditionExpression(),
		FilterExpression:          expr.FilterExpression(),
		ProjectionExpression:      expr.ProjectionExpression(),
		ExpressionAttributeNames:  expr.AttributeNames(),
		ExpressionAttributeValues: values,
		MaxItems:                  params.Limit,
		ExclusiveStartKey:         start,
		ScanIndexForward:          params.ScanIndexForward,
		ConsistentRead:            params.ConsistentRead,
	}
	if batch := params.BatchSize; batch > 0 {
		req.Limit = &batch
	} else if params.Limit > 0 && params.Limit <= int64(^uint32(0)>>1) {
		first := int32(params.Limit)
		req.Limit = &first
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(req)
}

func runQuery(ctx context.Context, w io.Writer, q *ddb.Query, logger zerolog.Logger) error {
	it := q.Iter(ctx)
	enc := json.NewEncoder(w)
	for it.Next(ctx) {
		if err := enc.Encode(it.Item()); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	next, err := cursor.Encode(it.Cursor())
	if err != nil {
		return err
	}
	event := logger.Info().Int64("items", it.Yielded()).Int("pages", it.Pages())
	if next != "" {
		event = event.Str("next", next)
	}
	event.Msg("query complete")
	return nil
}
