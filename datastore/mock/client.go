/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of the DynamoDB API
// used by the ddb table client, for testing without a live store.
package mock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/ddbquery/attrvalue"
	"github.com/suparena/ddbquery/expression"
)

// Operation names accepted by WithError and FailNext.
const (
	OpGetItem    = "GetItem"
	OpPutItem    = "PutItem"
	OpDeleteItem = "DeleteItem"
	OpUpdateItem = "UpdateItem"
	OpQuery      = "Query"
	OpScan       = "Scan"
)

var (
	existsPattern = regexp.MustCompile(`^(attribute_exists|attribute_not_exists)\(\s*([^\s()]+)\s*\)$`)
	setPattern    = regexp.MustCompile(`^([^\s=]+)\s*=\s*(:[A-Za-z0-9_]+)$`)
	tokenPattern  = regexp.MustCompile(`[#:][A-Za-z0-9_]+`)
)

type index struct {
	hash, rng string
}

type table struct {
	hash, rng string
	indexes   map[string]index
	items     map[string]map[string]types.AttributeValue
}

// Client is an in-memory DynamoDB. Key conditions, filters and conditions
// are evaluated with the same predicate grammar the expression package
// compiles, plus attribute_exists and attribute_not_exists.
//
// A page ends after Limit evaluated items; LastEvaluatedKey is set only
// when more items remain.
type Client struct {
	mu      sync.RWMutex
	tables  map[string]*table
	errs    map[string]error
	queued  map[string][]error
	calls   map[string]int
	queries []*sdk.QueryInput
	scans   []*sdk.ScanInput
}

// NewClient creates an empty mock store.
func NewClient() *Client {
	return &Client{
		tables: make(map[string]*table),
		errs:   make(map[string]error),
		queued: make(map[string][]error),
		calls:  make(map[string]int),
	}
}

// CreateTable registers a table keyed by hashKey and, if non-empty, rangeKey.
func (c *Client) CreateTable(name, hashKey, rangeKey string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = &table{
		hash:    hashKey,
		rng:     rangeKey,
		indexes: make(map[string]index),
		items:   make(map[string]map[string]types.AttributeValue),
	}
	return c
}

// AddIndex registers a secondary index on an existing table.
func (c *Client) AddIndex(tableName, indexName, hashKey, rangeKey string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[tableName]; ok {
		t.indexes[indexName] = index{hash: hashKey, rng: rangeKey}
	}
	return c
}

// WithError makes every call of op return err. A nil err clears it.
func (c *Client) WithError(op string, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
	} else {
		c.errs[op] = err
	}
	return c
}

// FailNext makes the next len(errs) calls of op return errs in order. A nil
// entry lets its call through.
func (c *Client) FailNext(op string, errs ...error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued[op] = append(c.queued[op], errs...)
	return c
}

// Helper methods for testing

// Calls returns how many times op was invoked, failed calls included.
func (c *Client) Calls(op string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

// QueryInputs returns every Query request received, in order.
func (c *Client) QueryInputs() []*sdk.QueryInput {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*sdk.QueryInput(nil), c.queries...)
}

// ScanInputs returns every Scan request received, in order.
func (c *Client) ScanInputs() []*sdk.ScanInput {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*sdk.ScanInput(nil), c.scans...)
}

// Count returns the number of items stored in a table.
func (c *Client) Count(tableName string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

// Seed stores items directly, bypassing error injection and call counts.
func (c *Client) Seed(tableName string, items ...map[string]types.AttributeValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.table(tableName)
	if err != nil {
		return err
	}
	for _, item := range items {
		k, err := t.keyString(item)
		if err != nil {
			return err
		}
		t.items[k] = copyItem(item)
	}
	return nil
}

// begin records a call and returns an injected error, if any. Callers hold
// the write lock.
func (c *Client) begin(op string) error {
	c.calls[op]++
	if q := c.queued[op]; len(q) > 0 {
		c.queued[op] = q[1:]
		return q[0]
	}
	return c.errs[op]
}

func (c *Client) table(name string) (*table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: Table: " + name + " not found")}
	}
	return t, nil
}

func (c *Client) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpGetItem); err != nil {
		return nil, err
	}
	t, err := c.table(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyString(in.Key)
	if err != nil {
		return nil, err
	}

	out := &sdk.GetItemOutput{}
	if item, ok := t.items[k]; ok {
		out.Item = copyItem(item)
	}
	return out, nil
}

func (c *Client) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpPutItem); err != nil {
		return nil, err
	}
	if err := checkReferences(in.ExpressionAttributeNames, in.ExpressionAttributeValues, in.ConditionExpression); err != nil {
		return nil, err
	}
	t, err := c.table(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyString(in.Item)
	if err != nil {
		return nil, err
	}

	ok, err := matches(aws.ToString(in.ConditionExpression), t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	t.items[k] = copyItem(in.Item)
	return &sdk.PutItemOutput{}, nil
}

func (c *Client) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpDeleteItem); err != nil {
		return nil, err
	}
	if err := checkReferences(in.ExpressionAttributeNames, in.ExpressionAttributeValues, in.ConditionExpression); err != nil {
		return nil, err
	}
	t, err := c.table(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyString(in.Key)
	if err != nil {
		return nil, err
	}

	ok, err := matches(aws.ToString(in.ConditionExpression), t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	delete(t.items, k)
	return &sdk.DeleteItemOutput{}, nil
}

// UpdateItem supports "SET a = :v, b = :w" update expressions.
func (c *Client) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpUpdateItem); err != nil {
		return nil, err
	}
	if err := checkReferences(in.ExpressionAttributeNames, in.ExpressionAttributeValues, in.UpdateExpression, in.ConditionExpression); err != nil {
		return nil, err
	}
	t, err := c.table(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyString(in.Key)
	if err != nil {
		return nil, err
	}

	current := t.items[k]
	ok, err := matches(aws.ToString(in.ConditionExpression), current, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	text := strings.TrimSpace(aws.ToString(in.UpdateExpression))
	if !strings.HasPrefix(text, "SET ") {
		return nil, validationException("unsupported update expression %q", text)
	}

	next := copyItem(current)
	if next == nil {
		next = copyItem(in.Key)
	}
	for _, clause := range strings.Split(strings.TrimPrefix(text, "SET "), ",") {
		m := setPattern.FindStringSubmatch(strings.TrimSpace(clause))
		if m == nil {
			return nil, validationException("unsupported SET clause %q", clause)
		}
		name := resolveName(m[1], in.ExpressionAttributeNames)
		v, ok := in.ExpressionAttributeValues[m[2]]
		if !ok {
			return nil, validationException("value %s not defined", m[2])
		}
		next[name] = v
	}
	t.items[k] = next

	out := &sdk.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = copyItem(next)
	}
	return out, nil
}

func (c *Client) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, in)
	if err := c.begin(OpQuery); err != nil {
		return nil, err
	}
	if err := checkReferences(in.ExpressionAttributeNames, in.ExpressionAttributeValues,
		in.KeyConditionExpression, in.FilterExpression, in.ProjectionExpression); err != nil {
		return nil, err
	}
	t, err := c.table(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}
	if aws.ToString(in.KeyConditionExpression) == "" {
		return nil, validationException("KeyConditionExpression is required")
	}

	view, err := t.view(aws.ToString(in.IndexName))
	if err != nil {
		return nil, err
	}

	var candidates []map[string]types.AttributeValue
	for _, item := range t.items {
		if !view.covers(item) {
			continue
		}
		ok, err := matches(aws.ToString(in.KeyConditionExpression), item, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, item)
		}
	}

	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	page, err := view.page(candidates, forward, in.ExclusiveStartKey, in.Limit, aws.ToString(in.FilterExpression), aws.ToString(in.ProjectionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &sdk.QueryOutput{
		Items:            page.items,
		LastEvaluatedKey: page.last,
		Count:            page.count,
		ScannedCount:     page.scanned,
	}, nil
}

func (c *Client) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scans = append(c.scans, in)
	if err := c.begin(OpScan); err != nil {
		return nil, err
	}
	if err := checkReferences(in.ExpressionAttributeNames, in.ExpressionAttributeValues,
		in.FilterExpression, in.ProjectionExpression); err != nil {
		return nil, err
	}
	t, err := c.table(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}

	view, err := t.view(aws.ToString(in.IndexName))
	if err != nil {
		return nil, err
	}
	view.scan = true

	var candidates []map[string]types.AttributeValue
	for _, item := range t.items {
		if view.covers(item) {
			candidates = append(candidates, item)
		}
	}

	page, err := view.page(candidates, true, in.ExclusiveStartKey, in.Limit, aws.ToString(in.FilterExpression), aws.ToString(in.ProjectionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &sdk.ScanOutput{
		Items:            page.items,
		LastEvaluatedKey: page.last,
		Count:            page.count,
		ScannedCount:     page.scanned,
	}, nil
}

// view is a table or index ordering over the table's items.
type view struct {
	table *table
	index *index
	scan  bool
}

func (t *table) view(indexName string) (*view, error) {
	if indexName == "" {
		return &view{table: t}, nil
	}
	idx, ok := t.indexes[indexName]
	if !ok {
		return nil, validationException("the table does not have the specified index: %s", indexName)
	}
	return &view{table: t, index: &idx}, nil
}

// covers reports whether item appears in the view; sparse indexes omit items
// lacking the index key attributes.
func (v *view) covers(item map[string]types.AttributeValue) bool {
	if v.index == nil {
		return true
	}
	if _, ok := item[v.index.hash]; !ok {
		return false
	}
	if v.index.rng != "" {
		if _, ok := item[v.index.rng]; !ok {
			return false
		}
	}
	return true
}

func (v *view) keyNames() []string {
	names := []string{v.table.hash}
	if v.table.rng != "" {
		names = append(names, v.table.rng)
	}
	if v.index != nil {
		names = append(names, v.index.hash)
		if v.index.rng != "" {
			names = append(names, v.index.rng)
		}
	}
	return names
}

// less orders items by the view's range key, then by table key.
func (v *view) less(a, b map[string]types.AttributeValue) bool {
	if !v.scan {
		rng := v.table.rng
		if v.index != nil {
			rng = v.index.rng
		}
		if rng != "" {
			if cmp, ok := compare(a[rng], b[rng]); ok && cmp != 0 {
				return cmp < 0
			}
		}
	}
	ka, _ := v.table.keyString(a)
	kb, _ := v.table.keyString(b)
	return ka < kb
}

type pageResult struct {
	items   []map[string]types.AttributeValue
	last    map[string]types.AttributeValue
	count   int32
	scanned int32
}

func (v *view) page(
	candidates []map[string]types.AttributeValue,
	forward bool,
	start map[string]types.AttributeValue,
	limit *int32,
	filter, projection string,
	names map[string]string,
	values map[string]types.AttributeValue,
) (*pageResult, error) {
	before := func(a, b map[string]types.AttributeValue) bool {
		if forward {
			return v.less(a, b)
		}
		return v.less(b, a)
	}
	sort.Slice(candidates, func(i, j int) bool { return before(candidates[i], candidates[j]) })

	pos := 0
	if len(start) > 0 {
		pos = sort.Search(len(candidates), func(i int) bool { return before(start, candidates[i]) })
	}

	end := len(candidates)
	if limit != nil && *limit > 0 && pos+int(*limit) < end {
		end = pos + int(*limit)
	}

	out := &pageResult{items: []map[string]types.AttributeValue{}}
	for _, item := range candidates[pos:end] {
		out.scanned++
		ok, err := matches(filter, item, names, values)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out.count++
		out.items = append(out.items, project(item, projection, names))
	}

	if end < len(candidates) && end > pos {
		last := candidates[end-1]
		out.last = make(map[string]types.AttributeValue)
		for _, name := range v.keyNames() {
			out.last[name] = last[name]
		}
	}
	return out, nil
}

func project(item map[string]types.AttributeValue, projection string, names map[string]string) map[string]types.AttributeValue {
	if strings.TrimSpace(projection) == "" {
		return copyItem(item)
	}
	out := make(map[string]types.AttributeValue)
	for _, field := range strings.Split(projection, ",") {
		name := resolveName(strings.TrimSpace(field), names)
		if av, ok := item[name]; ok {
			out[name] = av
		}
	}
	return out
}

// matches evaluates an AND-conjunction against item. An empty expression
// matches everything; a nil item has no attributes.
func matches(text string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, raw := range expression.Parse(text) {
		if m := existsPattern.FindStringSubmatch(raw); m != nil {
			_, present := item[resolveName(m[2], names)]
			if present != (m[1] == "attribute_exists") {
				return false, nil
			}
			continue
		}

		s, err := expression.ParseStatement(raw)
		if err != nil {
			return false, validationException("invalid expression: %v", err)
		}
		operands := make([]types.AttributeValue, len(s.Operands))
		for i, token := range s.Operands {
			av, ok := values[token]
			if !ok {
				return false, validationException("value %s not defined", token)
			}
			operands[i] = av
		}

		attr, present := item[resolveName(s.Field, names)]
		if !present {
			if s.Operator == expression.NotEqual {
				continue
			}
			return false, nil
		}
		if !evaluate(s.Operator, attr, operands) {
			return false, nil
		}
	}
	return true, nil
}

func evaluate(op expression.Operator, attr types.AttributeValue, operands []types.AttributeValue) bool {
	switch op {
	case expression.Equal:
		return equal(attr, operands[0])
	case expression.NotEqual:
		return !equal(attr, operands[0])
	case expression.BeginsWith:
		switch a := attr.(type) {
		case *types.AttributeValueMemberS:
			p, ok := operands[0].(*types.AttributeValueMemberS)
			return ok && strings.HasPrefix(a.Value, p.Value)
		case *types.AttributeValueMemberB:
			p, ok := operands[0].(*types.AttributeValueMemberB)
			return ok && bytes.HasPrefix(a.Value, p.Value)
		}
		return false
	case expression.Between:
		lo, ok1 := compare(attr, operands[0])
		hi, ok2 := compare(attr, operands[1])
		return ok1 && ok2 && lo >= 0 && hi <= 0
	}

	cmp, ok := compare(attr, operands[0])
	if !ok {
		return false
	}
	switch op {
	case expression.LessThan:
		return cmp < 0
	case expression.LessOrEqual:
		return cmp <= 0
	case expression.GreaterThan:
		return cmp > 0
	case expression.GreaterOrEqual:
		return cmp >= 0
	}
	return false
}

func equal(a, b types.AttributeValue) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two scalars of the same type. Numbers compare by value.
func compare(a, b types.AttributeValue) (int, bool) {
	switch x := a.(type) {
	case *types.AttributeValueMemberS:
		if y, ok := b.(*types.AttributeValueMemberS); ok {
			return strings.Compare(x.Value, y.Value), true
		}
	case *types.AttributeValueMemberN:
		if y, ok := b.(*types.AttributeValueMemberN); ok {
			fx, _, errx := big.ParseFloat(x.Value, 10, 256, big.ToNearestEven)
			fy, _, erry := big.ParseFloat(y.Value, 10, 256, big.ToNearestEven)
			if errx != nil || erry != nil {
				return 0, false
			}
			return fx.Cmp(fy), true
		}
	case *types.AttributeValueMemberB:
		if y, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(x.Value, y.Value), true
		}
	}
	return 0, false
}

// checkReferences rejects name or value entries that none of the request's
// expressions mention, as the store does.
func checkReferences(names map[string]string, values map[string]types.AttributeValue, exprs ...*string) error {
	seen := make(map[string]bool)
	for _, e := range exprs {
		for _, tok := range tokenPattern.FindAllString(aws.ToString(e), -1) {
			seen[tok] = true
		}
	}
	if unused := unreferenced(names, seen); len(unused) > 0 {
		return validationException("Value provided in ExpressionAttributeNames unused in expressions: keys: {%s}", strings.Join(unused, ", "))
	}
	if unused := unreferenced(values, seen); len(unused) > 0 {
		return validationException("Value provided in ExpressionAttributeValues unused in expressions: keys: {%s}", strings.Join(unused, ", "))
	}
	return nil
}

func unreferenced[V any](m map[string]V, seen map[string]bool) []string {
	var out []string
	for k := range m {
		if !seen[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func resolveName(field string, names map[string]string) string {
	if strings.HasPrefix(field, "#") {
		if name, ok := names[field]; ok {
			return name
		}
	}
	return field
}

// keyString renders the table key of item in a stable form.
func (t *table) keyString(item map[string]types.AttributeValue) (string, error) {
	key := make(map[string]types.AttributeValue, 2)
	for _, name := range []string{t.hash, t.rng} {
		if name == "" {
			continue
		}
		av, ok := item[name]
		if !ok {
			return "", validationException("missing key attribute %s", name)
		}
		key[name] = av
	}
	wire, err := attrvalue.ToWireMap(key)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// validationError mirrors the store's ValidationException, which the SDK
// surfaces as a generic API error.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return "ValidationException: " + e.msg }

func (e *validationError) ErrorCode() string { return "ValidationException" }

func validationException(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}
