// Package ddbfake is an in-memory stand-in for the DynamoDB operations the
// document pointer repository issues. It understands only that vocabulary:
// existence conditions on pk/sk, key conditions on pk with an optional
// begins_with on sk, doc_key index lookups, and filters made of equality
// atoms joined by AND and OR.
package ddbfake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Op names a client operation for error injection.
type Op string

const (
	OpPutItem    Op = "PutItem"
	OpDeleteItem Op = "DeleteItem"
	OpQuery      Op = "Query"
)

type item = map[string]types.AttributeValue

// Table is a single table with a doc_key index. The zero value is not usable;
// call New.
type Table struct {
	mu     sync.Mutex
	items  map[string]item // keyed by pk + "\x00" + sk
	errs   map[Op]error
	failAt map[Op]int
	calls  map[Op]int
}

// New returns an empty table.
func New() *Table {
	return &Table{
		items:  make(map[string]item),
		errs:   make(map[Op]error),
		failAt: make(map[Op]int),
		calls:  make(map[Op]int),
	}
}

// Fail makes every later call of op return err. A nil err clears it.
func (t *Table) Fail(op Op, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.errs, op)
		delete(t.failAt, op)
		return
	}
	t.errs[op] = err
	t.failAt[op] = 0
}

// FailOnCall makes only the nth later call of op (1-based) return err.
func (t *Table) FailOnCall(op Op, n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs[op] = err
	t.failAt[op] = t.calls[op] + n
}

// Calls reports how many times op has been called.
func (t *Table) Calls(op Op) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

// Seed stores raw without any condition check.
func (t *Table) Seed(raw map[string]types.AttributeValue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[keyOf(raw)] = clone(raw)
}

// Len reports the number of stored items.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// PutItem stores params.Item, honouring existence conditions.
func (t *Table) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.injected(OpPutItem); err != nil {
		return nil, err
	}

	k := keyOf(params.Item)
	_, exists := t.items[k]
	if err := checkCondition(aws.ToString(params.ConditionExpression), exists); err != nil {
		return nil, err
	}
	t.items[k] = clone(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem removes the item at params.Key, honouring existence conditions.
func (t *Table) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.injected(OpDeleteItem); err != nil {
		return nil, err
	}

	k := keyOf(params.Key)
	_, exists := t.items[k]
	if err := checkCondition(aws.ToString(params.ConditionExpression), exists); err != nil {
		return nil, err
	}
	delete(t.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query evaluates a key condition and filter in sk order. Limit bounds the
// items evaluated per page, before filtering, as DynamoDB does.
func (t *Table) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.injected(OpQuery); err != nil {
		return nil, err
	}

	match, err := keyMatcher(params)
	if err != nil {
		return nil, err
	}
	filter, err := parseFilter(aws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	var candidates []item
	for _, it := range t.items {
		if match(it) {
			candidates = append(candidates, it)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return keyOf(candidates[i]) < keyOf(candidates[j])
	})

	if start := params.ExclusiveStartKey; len(start) > 0 {
		after := keyOf(start)
		idx := sort.Search(len(candidates), func(i int) bool {
			return keyOf(candidates[i]) > after
		})
		candidates = candidates[idx:]
	}

	out := &dynamodb.QueryOutput{}
	limit := int(aws.ToInt32(params.Limit))
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
		last := candidates[len(candidates)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"pk": last["pk"], "sk": last["sk"]}
		if params.IndexName != nil {
			out.LastEvaluatedKey["doc_key"] = last["doc_key"]
		}
	}

	for _, it := range candidates {
		if !filter(it) {
			continue
		}
		out.Count++
		if params.Select != types.SelectCount {
			out.Items = append(out.Items, clone(it))
		}
	}
	out.ScannedCount = int32(len(candidates))
	return out, nil
}

func (t *Table) injected(op Op) error {
	t.calls[op]++
	err, ok := t.errs[op]
	if !ok {
		return nil
	}
	if at := t.failAt[op]; at != 0 {
		if t.calls[op] != at {
			return nil
		}
		delete(t.errs, op)
		delete(t.failAt, op)
	}
	return err
}

func checkCondition(expr string, exists bool) error {
	switch expr {
	case "":
		return nil
	case "attribute_not_exists(pk) AND attribute_not_exists(sk)":
		if exists {
			return conditionFailed()
		}
	case "attribute_exists(pk) AND attribute_exists(sk)":
		if !exists {
			return conditionFailed()
		}
	default:
		return fmt.Errorf("ddbfake: unsupported condition %q", expr)
	}
	return nil
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func keyMatcher(params *dynamodb.QueryInput) (func(item) bool, error) {
	expr := aws.ToString(params.KeyConditionExpression)
	values := params.ExpressionAttributeValues

	if params.IndexName != nil {
		if expr != "doc_key = :doc_key" {
			return nil, fmt.Errorf("ddbfake: unsupported index key condition %q", expr)
		}
		want := stringValue(values[":doc_key"])
		return func(it item) bool { return stringValue(it["doc_key"]) == want }, nil
	}

	switch expr {
	case "pk = :pk":
		pk := stringValue(values[":pk"])
		return func(it item) bool { return stringValue(it["pk"]) == pk }, nil
	case "pk = :pk AND begins_with(sk, :sk)":
		pk := stringValue(values[":pk"])
		prefix := stringValue(values[":sk"])
		return func(it item) bool {
			return stringValue(it["pk"]) == pk && strings.HasPrefix(stringValue(it["sk"]), prefix)
		}, nil
	default:
		return nil, fmt.Errorf("ddbfake: unsupported key condition %q", expr)
	}
}

// parseFilter accepts clauses joined by AND, each either a single equality
// or a parenthesised OR of equalities.
func parseFilter(expr string, names map[string]string, values map[string]types.AttributeValue) (func(item) bool, error) {
	if expr == "" {
		return func(item) bool { return true }, nil
	}

	type atom struct{ attr, want string }
	var clauses [][]atom
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(clause), "("), ")")
		var atoms []atom
		for _, part := range strings.Split(clause, " OR ") {
			lhs, rhs, ok := strings.Cut(part, " = ")
			if !ok {
				return nil, fmt.Errorf("ddbfake: unsupported filter atom %q", part)
			}
			lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)
			if strings.HasPrefix(lhs, "#") {
				resolved, ok := names[lhs]
				if !ok {
					return nil, fmt.Errorf("ddbfake: undefined name %s", lhs)
				}
				lhs = resolved
			}
			v, ok := values[rhs]
			if !ok {
				return nil, fmt.Errorf("ddbfake: undefined value %s", rhs)
			}
			atoms = append(atoms, atom{attr: lhs, want: stringValue(v)})
		}
		clauses = append(clauses, atoms)
	}

	return func(it item) bool {
		for _, atoms := range clauses {
			matched := false
			for _, a := range atoms {
				if stringValue(it[a.attr]) == a.want {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		return true
	}, nil
}

func keyOf(it item) string {
	return stringValue(it["pk"]) + "\x00" + stringValue(it["sk"])
}

func stringValue(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func clone(it item) item {
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
