package store

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docpointer/internal/keys"
)

// queryShape selects how pointer types narrow a patient query.
type queryShape int

const (
	// noType queries the whole patient partition.
	noType queryShape = iota
	// singleType narrows on the sort key prefix of the one type.
	singleType
	// multiType filters the partition with an OR over the type attribute,
	// since key conditions have no IN operator.
	multiType
)

func shapeFor(pointerTypes []string) queryShape {
	switch len(pointerTypes) {
	case 0:
		return noType
	case 1:
		return singleType
	default:
		return multiType
	}
}

func (q queryShape) String() string {
	switch q {
	case singleType:
		return "single_type"
	case multiType:
		return "multi_type"
	default:
		return "no_type"
	}
}

// pointerQuery accumulates key conditions and filters for a patient query.
type pointerQuery struct {
	keyConditions []string
	filters       []string
	names         map[string]string
	values        map[string]types.AttributeValue
}

// newPointerQuery builds the key condition and filters shared by search and
// count. An empty custodian applies no custodian filter.
func newPointerQuery(nhsNumber, custodian string, pointerTypes []string) (*pointerQuery, queryShape, error) {
	pk, err := keys.PartitionKey(nhsNumber)
	if err != nil {
		return nil, noType, err
	}

	q := &pointerQuery{
		keyConditions: []string{"pk = :pk"},
		values: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	}

	shape := shapeFor(pointerTypes)
	switch shape {
	case singleType:
		prefix, err := keys.SortKey(pointerTypes[0])
		if err != nil {
			return nil, shape, err
		}
		q.keyConditions = append(q.keyConditions, "begins_with(sk, :sk)")
		q.values[":sk"] = &types.AttributeValueMemberS{Value: prefix}
	case multiType:
		q.names = map[string]string{"#pointer_type": "type"}
		clauses := make([]string, 0, len(pointerTypes))
		for i, pointerType := range pointerTypes {
			if _, err := keys.CategoryForType(pointerType); err != nil {
				return nil, shape, err
			}
			placeholder := fmt.Sprintf(":type_%d", i)
			clauses = append(clauses, "#pointer_type = "+placeholder)
			q.values[placeholder] = &types.AttributeValueMemberS{Value: pointerType}
		}
		q.filters = append(q.filters, "("+strings.Join(clauses, " OR ")+")")
	}

	if custodian != "" {
		q.filters = append(q.filters, "custodian = :custodian")
		q.values[":custodian"] = &types.AttributeValueMemberS{Value: custodian}
	}

	return q, shape, nil
}

// input renders the query for a table. Empty attribute-name maps and filter
// expressions are left nil; the store rejects empty ones.
func (q *pointerQuery) input(cfg Config) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(cfg.TableName),
		KeyConditionExpression:    aws.String(strings.Join(q.keyConditions, " AND ")),
		ExpressionAttributeValues: q.values,
	}
	if len(q.filters) > 0 {
		in.FilterExpression = aws.String(strings.Join(q.filters, " AND "))
	}
	if len(q.names) > 0 {
		in.ExpressionAttributeNames = q.names
	}
	if cfg.PageSize > 0 {
		in.Limit = aws.Int32(cfg.PageSize)
	}
	return in
}

// lookupInput queries the doc_key index for a pointer id.
func lookupInput(cfg Config, docKey string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(cfg.TableName),
		IndexName:              aws.String(cfg.IndexName),
		KeyConditionExpression: aws.String("doc_key = :doc_key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":doc_key": &types.AttributeValueMemberS{Value: docKey},
		},
	}
}
