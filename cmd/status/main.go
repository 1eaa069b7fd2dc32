// Command status is the Lambda behind the registry status endpoint.
package main

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/docpointer/internal/config"
	"github.com/jacentio/docpointer/internal/dynamo"
	"github.com/jacentio/docpointer/internal/status"
	"github.com/jacentio/docpointer/store"
)

func main() {
	logger := slog.Default()
	if cfg, err := config.FromEnv(); err == nil {
		logger = cfg.Logger()
	}

	// Configuration is resolved per request so a bad deployment reports 503
	// instead of failing to start.
	connect := func(ctx context.Context) (status.Pinger, error) {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, err
		}
		client, err := dynamo.Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := store.New(client, cfg.Store())
		repo.SetLogger(logger)
		return repo, nil
	}

	lambda.Start(status.NewHandler(connect, logger).Handle)
}
