// Package dynamotest provides an in-memory DynamoDB used by package tests.
//
// Fake implements aws.DynamoDBAPI over the tables declared in aws.Schema. It
// understands the expression subset the storefront stores emit and applies
// every operation under one mutex, so each item update is atomic.
package dynamotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/watch-storefront/internal/aws"
	"github.com/imrishuroy/watch-storefront/internal/config"
)

// Tables are the table names NewStorefront provisions.
var Tables = config.TablesConfig{
	Watches:     "watches",
	Cart:        "cart",
	Orders:      "orders",
	Addresses:   "addresses",
	Idempotency: "idempotency",
}

// Hook runs before every operation. key is the item's hash key value, or the
// index name ("" for the base table) for Query and Scan. A non-nil error
// fails the call without touching any data.
type Hook func(op, table, key string) error

// FailOn returns a Hook that fails calls matching op, table and key. Empty
// arguments match anything.
func FailOn(op, table, key string, err error) Hook {
	return func(o, t, k string) error {
		if (op == "" || op == o) && (table == "" || table == t) && (key == "" || key == k) {
			return err
		}
		return nil
	}
}

type table struct {
	spec  aws.TableSpec
	items map[string]item
}

// Fake is an in-memory aws.DynamoDBAPI.
type Fake struct {
	mu     sync.Mutex
	tables map[string]*table
	hook   Hook
	calls  map[string]int
}

var _ aws.DynamoDBAPI = (*Fake)(nil)

// New returns a Fake holding the given tables.
func New(specs ...aws.TableSpec) *Fake {
	f := &Fake{tables: map[string]*table{}, calls: map[string]int{}}
	for _, s := range specs {
		f.tables[s.Name] = &table{spec: s, items: map[string]item{}}
	}
	return f
}

// NewStorefront returns a Fake with every storefront table under Tables.
func NewStorefront() *Fake {
	return New(aws.Schema(Tables)...)
}

// SetHook installs h, replacing any previous hook. nil removes it.
func (f *Fake) SetHook(h Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = h
}

// Calls returns how many times op was invoked, including failed calls.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Seed marshals each value and stores it in tableName, without conditions.
func (f *Fake) Seed(t testing.TB, tableName string, values ...any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tables[tableName]
	if !ok {
		t.Fatalf("dynamotest: no table %q", tableName)
	}
	for _, v := range values {
		av, err := attributevalue.MarshalMap(v)
		if err != nil {
			t.Fatalf("dynamotest: marshal seed: %v", err)
		}
		k, err := tbl.key(av)
		if err != nil {
			t.Fatalf("dynamotest: seed: %v", err)
		}
		tbl.items[k] = av
	}
}

// Item returns a copy of the stored item, or nil.
func (f *Fake) Item(tableName, key string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tables[tableName]
	if !ok {
		return nil
	}
	return clone(tbl.items[key])
}

// Load unmarshals the stored item into out and reports whether it exists.
func (f *Fake) Load(t testing.TB, tableName, key string, out any) bool {
	t.Helper()
	it := f.Item(tableName, key)
	if it == nil {
		return false
	}
	if err := attributevalue.UnmarshalMap(it, out); err != nil {
		t.Fatalf("dynamotest: unmarshal %s/%s: %v", tableName, key, err)
	}
	return true
}

// Len returns the number of items in tableName.
func (f *Fake) Len(tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tbl, ok := f.tables[tableName]; ok {
		return len(tbl.items)
	}
	return 0
}

// begin counts the call, runs the hook and returns with f.mu held. The hook
// sees the hash key of it, or label when it is nil.
func (f *Fake) begin(op, tableName string, it item, label string) (*table, string, error) {
	f.mu.Lock()
	f.calls[op]++
	hook := f.hook
	f.mu.Unlock()

	tbl, ok := f.tables[tableName]
	if !ok {
		return nil, "", &types.ResourceNotFoundException{Message: str("Cannot do operations on a non-existent table")}
	}
	key := label
	if it != nil {
		var err error
		if key, err = tbl.key(it); err != nil {
			return nil, "", err
		}
	}
	if hook != nil {
		if err := hook(op, tableName, key); err != nil {
			return nil, "", err
		}
	}

	f.mu.Lock()
	return tbl, key, nil
}

func (f *Fake) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	tbl, k, err := f.begin("GetItem", deref(in.TableName), in.Key, "")
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: clone(tbl.items[k])}, nil
}

func (f *Fake) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	tbl, k, err := f.begin("PutItem", deref(in.TableName), in.Item, "")
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	old := tbl.items[k]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, old); err != nil {
		return nil, err
	}
	tbl.items[k] = clone(in.Item)

	out := &dynamodb.PutItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = clone(old)
	}
	return out, nil
}

func (f *Fake) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	tbl, k, err := f.begin("UpdateItem", deref(in.TableName), in.Key, "")
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	old := tbl.items[k]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, old); err != nil {
		return nil, err
	}
	cur, err := applyUpdate(deref(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, in.Key, old)
	if err != nil {
		return nil, err
	}
	tbl.items[k] = cur

	out := &dynamodb.UpdateItemOutput{}
	switch in.ReturnValues {
	case types.ReturnValueAllNew, types.ReturnValueUpdatedNew:
		out.Attributes = clone(cur)
	case types.ReturnValueAllOld, types.ReturnValueUpdatedOld:
		out.Attributes = clone(old)
	}
	return out, nil
}

func (f *Fake) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	tbl, k, err := f.begin("DeleteItem", deref(in.TableName), in.Key, "")
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	old := tbl.items[k]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, old); err != nil {
		return nil, err
	}
	delete(tbl.items, k)

	out := &dynamodb.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = clone(old)
	}
	return out, nil
}

func (f *Fake) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	tbl, _, err := f.begin("Query", deref(in.TableName), nil, deref(in.IndexName))
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	hashKey, rangeKey := tbl.spec.HashKey, ""
	if in.IndexName != nil {
		idx, ok := tbl.index(*in.IndexName)
		if !ok {
			return nil, fmt.Errorf("dynamotest: table %s has no index %s", tbl.spec.Name, *in.IndexName)
		}
		hashKey, rangeKey = idx.HashKey, idx.RangeKey
	}

	e := env{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	keyCond, err := parseCondition(deref(in.KeyConditionExpression), e)
	if err != nil {
		return nil, err
	}
	filter, err := parseCondition(deref(in.FilterExpression), e)
	if err != nil {
		return nil, err
	}

	var candidates []item
	for _, it := range tbl.items {
		if _, ok := it[hashKey]; !ok {
			continue
		}
		if rangeKey != "" {
			if _, ok := it[rangeKey]; !ok {
				continue
			}
		}
		if keyCond(it) {
			candidates = append(candidates, it)
		}
	}
	tbl.sort(candidates, rangeKey, in.ScanIndexForward == nil || *in.ScanIndexForward)

	page, last := tbl.page(candidates, in.ExclusiveStartKey, in.Limit, hashKey, rangeKey)
	out := &dynamodb.QueryOutput{ScannedCount: int32(len(page)), LastEvaluatedKey: last}
	for _, it := range page {
		if filter(it) {
			out.Items = append(out.Items, clone(it))
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *Fake) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	tbl, _, err := f.begin("Scan", deref(in.TableName), nil, deref(in.IndexName))
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	filter, err := parseCondition(deref(in.FilterExpression), env{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues})
	if err != nil {
		return nil, err
	}

	candidates := make([]item, 0, len(tbl.items))
	for _, it := range tbl.items {
		candidates = append(candidates, it)
	}
	tbl.sort(candidates, "", true)

	page, last := tbl.page(candidates, in.ExclusiveStartKey, in.Limit, tbl.spec.HashKey, "")
	out := &dynamodb.ScanOutput{ScannedCount: int32(len(page)), LastEvaluatedKey: last}
	for _, it := range page {
		if filter(it) {
			out.Items = append(out.Items, clone(it))
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

// TransactWriteItems checks every condition first and applies nothing unless
// all of them hold.
func (f *Fake) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	f.calls["TransactWriteItems"]++
	hook := f.hook
	f.mu.Unlock()

	type target struct {
		table, key string
		cond       *string
		names      map[string]string
		values     map[string]types.AttributeValue
	}
	targets := make([]target, len(in.TransactItems))
	for i, ti := range in.TransactItems {
		var t target
		var err error
		switch {
		case ti.Put != nil:
			t = target{table: deref(ti.Put.TableName), cond: ti.Put.ConditionExpression, names: ti.Put.ExpressionAttributeNames, values: ti.Put.ExpressionAttributeValues}
			t.key, err = f.keyIn(t.table, ti.Put.Item)
		case ti.Update != nil:
			t = target{table: deref(ti.Update.TableName), cond: ti.Update.ConditionExpression, names: ti.Update.ExpressionAttributeNames, values: ti.Update.ExpressionAttributeValues}
			t.key, err = f.keyIn(t.table, ti.Update.Key)
		case ti.Delete != nil:
			t = target{table: deref(ti.Delete.TableName), cond: ti.Delete.ConditionExpression, names: ti.Delete.ExpressionAttributeNames, values: ti.Delete.ExpressionAttributeValues}
			t.key, err = f.keyIn(t.table, ti.Delete.Key)
		case ti.ConditionCheck != nil:
			t = target{table: deref(ti.ConditionCheck.TableName), cond: ti.ConditionCheck.ConditionExpression, names: ti.ConditionCheck.ExpressionAttributeNames, values: ti.ConditionCheck.ExpressionAttributeValues}
			t.key, err = f.keyIn(t.table, ti.ConditionCheck.Key)
		default:
			err = fmt.Errorf("dynamotest: empty transact item %d", i)
		}
		if err != nil {
			return nil, err
		}
		if hook != nil {
			if err := hook("TransactWriteItems", t.table, t.key); err != nil {
				return nil, err
			}
		}
		targets[i] = t
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(targets))
	canceled := false
	for i, t := range targets {
		tbl, ok := f.tables[t.table]
		if !ok {
			return nil, &types.ResourceNotFoundException{Message: str("Cannot do operations on a non-existent table")}
		}
		reasons[i] = types.CancellationReason{Code: str("None")}
		if err := checkCondition(t.cond, t.names, t.values, tbl.items[t.key]); err != nil {
			reasons[i] = types.CancellationReason{Code: str("ConditionalCheckFailed"), Message: str("The conditional request failed")}
			canceled = true
		}
	}
	if canceled {
		return nil, &types.TransactionCanceledException{
			Message:             str("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	// Compute every new image before writing so a bad update leaves no trace.
	images := make([]item, len(targets))
	for i, ti := range in.TransactItems {
		tbl := f.tables[targets[i].table]
		switch {
		case ti.Put != nil:
			images[i] = clone(ti.Put.Item)
		case ti.Update != nil:
			cur, err := applyUpdate(deref(ti.Update.UpdateExpression), ti.Update.ExpressionAttributeNames, ti.Update.ExpressionAttributeValues, ti.Update.Key, tbl.items[targets[i].key])
			if err != nil {
				return nil, err
			}
			images[i] = cur
		}
	}
	for i, ti := range in.TransactItems {
		tbl := f.tables[targets[i].table]
		switch {
		case ti.Put != nil, ti.Update != nil:
			tbl.items[targets[i].key] = images[i]
		case ti.Delete != nil:
			delete(tbl.items, targets[i].key)
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func checkCondition(expr *string, names map[string]string, values map[string]types.AttributeValue, current item) error {
	if expr == nil || *expr == "" {
		return nil
	}
	c, err := parseCondition(*expr, env{names: names, values: values})
	if err != nil {
		return err
	}
	if current == nil {
		current = item{}
	}
	if !c(current) {
		return &types.ConditionalCheckFailedException{Message: str("The conditional request failed")}
	}
	return nil
}

func applyUpdate(expr string, names map[string]string, values map[string]types.AttributeValue, key, old item) (item, error) {
	actions, err := parseUpdate(expr, env{names: names, values: values})
	if err != nil {
		return nil, err
	}
	base := old
	if base == nil {
		base = clone(key)
	}
	cur := clone(base)
	for _, a := range actions {
		if err := a(base, cur); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (t *table) key(it item) (string, error) {
	v, ok := it[t.spec.HashKey]
	if !ok {
		return "", fmt.Errorf("dynamotest: %s: missing hash key %s", t.spec.Name, t.spec.HashKey)
	}
	return scalar(v)
}

func (t *table) index(name string) (aws.IndexSpec, bool) {
	for _, idx := range t.spec.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return aws.IndexSpec{}, false
}

func (t *table) sort(items []item, rangeKey string, forward bool) {
	hk := t.spec.HashKey
	sort.SliceStable(items, func(i, j int) bool {
		if rangeKey != "" {
			if c, ok := compare(items[i][rangeKey], items[j][rangeKey]); ok && c != 0 {
				if forward {
					return c < 0
				}
				return c > 0
			}
		}
		a, _ := scalar(items[i][hk])
		b, _ := scalar(items[j][hk])
		return a < b
	})
}

// page applies ExclusiveStartKey and Limit to a sorted candidate list.
func (t *table) page(items []item, start map[string]types.AttributeValue, limit *int32, hashKey, rangeKey string) ([]item, map[string]types.AttributeValue) {
	if len(start) > 0 {
		startKey, _ := scalar(start[t.spec.HashKey])
		for i, it := range items {
			if k, _ := scalar(it[t.spec.HashKey]); k == startKey {
				items = items[i+1:]
				break
			}
		}
	}
	if limit == nil || int(*limit) >= len(items) {
		return items, nil
	}
	items = items[:*limit]
	lastItem := items[len(items)-1]
	last := map[string]types.AttributeValue{t.spec.HashKey: lastItem[t.spec.HashKey]}
	for _, k := range []string{hashKey, rangeKey} {
		if k != "" {
			last[k] = lastItem[k]
		}
	}
	return items, last
}

func (f *Fake) keyIn(tableName string, it item) (string, error) {
	tbl, ok := f.tables[tableName]
	if !ok {
		return "", &types.ResourceNotFoundException{Message: str("Cannot do operations on a non-existent table")}
	}
	return tbl.key(it)
}

func scalar(v types.AttributeValue) (string, error) {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return av.Value, nil
	case *types.AttributeValueMemberN:
		return av.Value, nil
	case *types.AttributeValueMemberB:
		return string(av.Value), nil
	}
	return "", fmt.Errorf("dynamotest: key attribute must be S, N or B")
}

func clone(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func str(s string) *string { return &s }
