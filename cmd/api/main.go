// Command api is the Lambda serving the DocumentReference API.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/docpointer/internal/config"
	"github.com/jacentio/docpointer/internal/dynamo"
	"github.com/jacentio/docpointer/registry"
	"github.com/jacentio/docpointer/store"
	"github.com/jacentio/docpointer/validate"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	client, err := dynamo.Client(context.Background(), cfg)
	if err != nil {
		logger.Error("dynamodb client", "error", err)
		os.Exit(1)
	}

	repo := store.New(client, cfg.Store())
	repo.SetLogger(logger)
	repo.SetMetrics(store.NewMetrics(prometheus.DefaultRegisterer))

	service := registry.New(repo, validate.New(validate.WithLogger(logger)),
		registry.WithLogger(logger),
		registry.WithSource(cfg.Source),
		registry.IgnoreSupersedeDeleteFailure(true),
	)

	lambda.Start(registry.NewHandler(service).Handle)
}
