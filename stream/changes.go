// Package stream provides the DynamoDB Streams handler for the pointer table's
// change feed.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jacentio/docpointer/store"
)

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

var errNotPointer = errors.New("docpointer: image is not a document pointer")

// Change is one pointer write observed on the stream. It carries no patient
// identifier.
type Change struct {
	Event     string
	ID        string
	Custodian string
	Type      string
	Category  string
	Version   int
}

// Metrics counts observed changes.
type Metrics struct {
	Changes *prometheus.CounterVec
	Skipped prometheus.Counter
}

// NewMetrics registers the change feed metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docpointer_changes_total",
			Help: "Document pointer changes observed on the table stream.",
		}, []string{"event", "category"}),
		Skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "docpointer_changes_skipped_total",
			Help: "Stream records that could not be read as document pointers.",
		}),
	}
}

// Handler processes DynamoDB stream events of the pointer table.
type Handler struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewHandler creates a new stream handler. A nil metrics disables counting.
func NewHandler(logger *slog.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		metrics: metrics,
	}
}

// HandleChanges logs and counts each pointer change in event. Records that do
// not decode are logged and skipped.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleChanges(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := ctx.Err(); err != nil {
			return err
		}

		change, err := decodeRecord(record)
		if err != nil {
			h.logger.WarnContext(ctx, "skipping stream record",
				"eventID", record.EventID,
				"eventName", record.EventName,
				"error", err,
			)
			if h.metrics != nil {
				h.metrics.Skipped.Inc()
			}
			continue
		}
		if change == nil {
			continue
		}

		h.logger.InfoContext(ctx, "document pointer changed",
			"event", change.Event,
			"id", change.ID,
			"custodian", change.Custodian,
			"type", change.Type,
			"category", change.Category,
			"version", change.Version,
		)
		if h.metrics != nil {
			h.metrics.Changes.WithLabelValues(change.Event, change.Category).Inc()
		}
	}
	return nil
}

// decodeRecord reads the pointer a record changed: the new image for inserts
// and modifications, the old image for removals. Other events yield nil.
func decodeRecord(record events.DynamoDBEventRecord) (*Change, error) {
	var image map[string]events.DynamoDBAttributeValue
	switch record.EventName {
	case EventInsert, EventModify:
		image = record.Change.NewImage
	case EventRemove:
		image = record.Change.OldImage
	default:
		return nil, nil
	}

	if !strings.HasPrefix(getStringAttr(image, "pk"), "P#") {
		return nil, errNotPointer
	}

	var p store.DocumentPointer
	if err := attributevalue.UnmarshalMap(convertImage(image), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotPointer, err)
	}
	if p.ID == "" || p.Custodian == "" || p.Type == "" {
		return nil, errNotPointer
	}

	return &Change{
		Event:     record.EventName,
		ID:        p.ID,
		Custodian: p.Custodian,
		Type:      p.Type,
		Category:  p.Category,
		Version:   p.Version,
	}, nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// convertImage converts a stream image to SDK attribute values so it can be
// decoded with the table's own dynamodbav tags.
func convertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := convertValue(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for _, item := range v.List() {
			if av := convertValue(item); av != nil {
				list = append(list, av)
			}
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: convertImage(v.Map())}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	}
	return nil
}
