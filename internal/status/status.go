// Package status answers the status endpoint: it proves the pointer table is
// reachable with the deployed configuration.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/docpointer/outcome"
)

// Pinger proves a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connect resolves configuration and returns the store to ping.
type Connect func(ctx context.Context) (Pinger, error)

// Message is the status response body.
type Message struct {
	Message string `json:"message"`
}

// Handler serves the status endpoint.
type Handler struct {
	connect Connect
	logger  *slog.Logger
}

// NewHandler creates a status handler.
func NewHandler(connect Connect, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{connect: connect, logger: logger}
}

// Handle returns 200 when the table answers and 503 on any failure,
// configuration included. The cause is logged, never returned.
func (h *Handler) Handle(ctx context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := h.check(ctx); err != nil {
		h.logger.ErrorContext(ctx, "status check failed", "error", err)
		return respond(http.StatusServiceUnavailable), nil
	}
	return respond(http.StatusOK), nil
}

func (h *Handler) check(ctx context.Context) error {
	pinger, err := h.connect(ctx)
	if err != nil {
		return err
	}
	return pinger.Ping(ctx)
}

func respond(statusCode int) events.APIGatewayProxyResponse {
	return outcome.Response(statusCode, Message{Message: http.StatusText(statusCode)})
}
