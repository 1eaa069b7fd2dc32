package store_test

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/mock/gomock"

	"github.com/jacentio/docpointer/store"
	"github.com/jacentio/docpointer/store/mocks"
)

func TestCreate_ConditionExpression(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	r := store.New(client, store.WithPrefix("nrlf--test-"))

	client.EXPECT().
		PutItem(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			if aws.ToString(in.TableName) != "nrlf--test-document-pointer" {
				t.Errorf("unexpected table %q", aws.ToString(in.TableName))
			}
			if got := aws.ToString(in.ConditionExpression); got != "attribute_not_exists(pk) AND attribute_not_exists(sk)" {
				t.Errorf("unexpected condition %q", got)
			}
			if _, ok := in.Item["document"].(*types.AttributeValueMemberS); !ok {
				t.Error("expected document stored as a string")
			}
			if _, ok := in.Item["updated_on"]; ok {
				t.Error("expected updated_on omitted on create")
			}
			return &dynamodb.PutItemOutput{}, nil
		})

	if err := r.Create(context.Background(), newPointer(t)); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestCreate_StoreFailureIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	r := store.New(client, store.DefaultConfig())

	cause := errors.New("request timeout")
	client.EXPECT().PutItem(gomock.Any(), gomock.Any()).Return(nil, cause)

	err := r.Create(context.Background(), newPointer(t))
	if !errors.Is(err, store.ErrInternal) {
		t.Errorf("expected ErrInternal, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause preserved, got %v", err)
	}
	if errors.Is(err, store.ErrAlreadyExists) {
		t.Error("expected non-conditional failure not to be a conflict")
	}
}

func TestUpdate_ConditionAndVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	r := store.New(client, store.DefaultConfig())

	client.EXPECT().
		PutItem(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			if got := aws.ToString(in.ConditionExpression); got != "attribute_exists(pk) AND attribute_exists(sk)" {
				t.Errorf("unexpected condition %q", got)
			}
			if v := in.Item["version"].(*types.AttributeValueMemberN).Value; v != "2" {
				t.Errorf("expected version 2 written, got %s", v)
			}
			return &dynamodb.PutItemOutput{}, nil
		})

	p := newPointer(t)
	if err := r.Update(context.Background(), p); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestDelete_Key(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	r := store.New(client, store.DefaultConfig())
	p := newPointer(t)

	client.EXPECT().
		DeleteItem(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			if len(in.Key) != 2 {
				t.Errorf("expected pk and sk only, got %v", in.Key)
			}
			if got := in.Key["sk"].(*types.AttributeValueMemberS).Value; got != p.SK {
				t.Errorf("expected sk %q, got %q", p.SK, got)
			}
			if got := aws.ToString(in.ConditionExpression); got != "attribute_exists(pk) AND attribute_exists(sk)" {
				t.Errorf("unexpected condition %q", got)
			}
			return &dynamodb.DeleteItemOutput{}, nil
		})

	if err := r.Delete(context.Background(), p, store.DeleteOptions{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCount_SelectAndPagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	r := store.New(client, store.DefaultConfig())

	next := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "P#6700028191"},
		"sk": &types.AttributeValueMemberS{Value: "C#1"},
	}

	gomock.InOrder(
		client.EXPECT().
			Query(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				if in.Select != types.SelectCount {
					t.Errorf("expected COUNT select, got %q", in.Select)
				}
				if in.ExclusiveStartKey != nil {
					t.Error("expected first page without start key")
				}
				return &dynamodb.QueryOutput{Count: 3, LastEvaluatedKey: next}, nil
			}),
		client.EXPECT().
			Query(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				if in.ExclusiveStartKey == nil {
					t.Error("expected continuation from the previous page")
				}
				return &dynamodb.QueryOutput{Count: 2}, nil
			}),
	)

	count, err := r.CountByNHSNumber(context.Background(), "6700028191", nil)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("expected 5, got %d", count)
	}
}

func TestGetByID_QueryFailureIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	r := store.New(client, store.DefaultConfig())

	client.EXPECT().
		Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &types.ResourceNotFoundException{Message: aws.String("table not found")})

	_, err := r.GetByID(context.Background(), "Y05868-abc")
	if !errors.Is(err, store.ErrInternal) {
		t.Errorf("expected ErrInternal, got %v", err)
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		t.Errorf("expected cause preserved, got %v", err)
	}
}

func TestPing_Input(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	r := store.New(client, store.DefaultConfig())

	client.EXPECT().
		Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			if pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value; pk != "D#NULL" {
				t.Errorf("expected ping partition D#NULL, got %q", pk)
			}
			if aws.ToInt32(in.Limit) != 1 {
				t.Errorf("expected limit 1, got %d", aws.ToInt32(in.Limit))
			}
			return &dynamodb.QueryOutput{}, nil
		})

	if err := r.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}
