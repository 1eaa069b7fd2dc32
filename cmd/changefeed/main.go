// Command changefeed consumes the pointer table's DynamoDB stream.
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/docpointer/internal/config"
	"github.com/jacentio/docpointer/stream"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	handler := stream.NewHandler(cfg.Logger(), stream.NewMetrics(prometheus.DefaultRegisterer))
	lambda.Start(handler.HandleChanges)
}
