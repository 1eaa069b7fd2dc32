// Package dynamo holds the process-wide DynamoDB client shared by every
// handler invocation.
package dynamo

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/docpointer/internal/config"
)

var (
	once   sync.Once
	client *dynamodb.Client
	errNew error
)

// Client returns the shared client, building it on first use. Later calls
// return the first result whatever cfg they pass.
func Client(ctx context.Context, cfg config.Config) (*dynamodb.Client, error) {
	once.Do(func() {
		client, errNew = New(ctx, cfg)
	})
	return client, errNew
}

// New builds a DynamoDB client from the default AWS configuration chain. A
// configured endpoint targets DynamoDB Local with static credentials.
func New(ctx context.Context, cfg config.Config) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
