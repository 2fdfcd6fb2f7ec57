/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dryRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	t.Setenv("DDBQUERY_LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), args, &stdout, &stderr), stderr.String())

	var req map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &req))
	return req
}

func TestDryRunQuery(t *testing.T) {
	req := dryRun(t,
		"-table", "orders",
		"-key", "PK = :pk AND SK BETWEEN :lo AND :hi",
		"-values", `{"pk": "USER#1", "lo": 1, "hi": 10, "s": {"S": "open"}}`,
		"-filter", "status = :s",
		"-projection", "SK,status",
		"-limit", "5",
		"-desc",
	)

	assert.Equal(t, "Query", req["Operation"])
	assert.Equal(t, "orders", req["TableName"])
	assert.Regexp(t, `^#f[0-9a-f]+ = :pk AND #f[0-9a-f]+ BETWEEN :lo AND :hi$`, req["KeyConditionExpression"])
	assert.Regexp(t, `^#f[0-9a-f]+ = :s$`, req["FilterExpression"])
	assert.Equal(t, false, req["ScanIndexForward"])
	assert.Equal(t, float64(5), req["Limit"])
	assert.Equal(t, float64(5), req["MaxItems"])
	assert.Len(t, req["ExpressionAttributeNames"], 3)
	assert.Equal(t, map[string]any{
		":pk": map[string]any{"S": "USER#1"},
		":lo": map[string]any{"N": "1"},
		":hi": map[string]any{"N": "10"},
		":s":  map[string]any{"S": "open"},
	}, req["ExpressionAttributeValues"])
}

func TestDryRunScan(t *testing.T) {
	req := dryRun(t, "-table", "orders", "-index", "ByStatus", "-batch", "25")

	assert.Equal(t, "Scan", req["Operation"])
	assert.Equal(t, "ByStatus", req["IndexName"])
	assert.Equal(t, float64(25), req["Limit"])
	assert.NotContains(t, req, "KeyConditionExpression")
	assert.NotContains(t, req, "ExpressionAttributeValues")
}

func TestRunErrors(t *testing.T) {
	t.Setenv("DDBQUERY_LOG_LEVEL", "error")
	ctx := context.Background()

	cases := map[string][]string{
		"missing table":  {"-key", "PK = :pk"},
		"bad values":     {"-table", "orders", "-key", "PK = :pk", "-values", "{"},
		"missing value":  {"-table", "orders", "-key", "PK = :pk"},
		"unparsable":     {"-table", "orders", "-key", "PK ~ :pk", "-values", `{"pk": 1}`},
		"bad token":      {"-table", "orders", "-after", "***"},
		"unknown flag":   {"-table", "orders", "-nope"},
		"missing config": {"-config", "does-not-exist.yaml", "-table", "orders"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, run(ctx, args, &stdout, &stderr))
			assert.Zero(t, stdout.Len())
		})
	}
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "ddbquery version")
}
