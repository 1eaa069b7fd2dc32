package stream_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/internal/fixture"
	"github.com/jacentio/docpointer/store"
	"github.com/jacentio/docpointer/stream"
)

// streamImage renders a stored pointer the way DynamoDB Streams delivers it.
func streamImage(t *testing.T, opts ...fixture.Option) map[string]events.DynamoDBAttributeValue {
	t.Helper()
	p, err := store.NewDocumentPointer(fixture.DocumentReference(opts...), "NRLF")
	if err != nil {
		t.Fatalf("new pointer: %v", err)
	}
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		t.Fatalf("marshal pointer: %v", err)
	}

	image := make(map[string]events.DynamoDBAttributeValue, len(item))
	for k, v := range item {
		switch v := v.(type) {
		case *types.AttributeValueMemberS:
			image[k] = events.NewStringAttribute(v.Value)
		case *types.AttributeValueMemberN:
			image[k] = events.NewNumberAttribute(v.Value)
		default:
			t.Fatalf("unexpected attribute type %T for %s", v, k)
		}
	}
	return image
}

func newHandler(t *testing.T) (*stream.Handler, *stream.Metrics, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := stream.NewMetrics(prometheus.NewRegistry())
	return stream.NewHandler(logger, metrics), metrics, &logs
}

func TestNewHandler(t *testing.T) {
	// nil logger and metrics must not panic
	h := stream.NewHandler(nil, nil)
	if h == nil {
		t.Fatal("expected non-nil Handler")
	}

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: streamImage(t)}},
		{EventName: stream.EventInsert},
	}}
	if err := h.HandleChanges(context.Background(), event); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHandleChanges_CountsByEventAndCategory(t *testing.T) {
	h, metrics, _ := newHandler(t)
	carePlan := streamImage(t)
	observations := streamImage(t, fixture.WithID("X26", "news2"), fixture.WithType(fhir.TypeNEWS2Chart))

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: carePlan}},
		{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: observations}},
		{EventName: stream.EventModify, Change: events.DynamoDBStreamRecord{OldImage: carePlan, NewImage: carePlan}},
		{EventName: stream.EventRemove, Change: events.DynamoDBStreamRecord{OldImage: observations}},
	}}

	if err := h.HandleChanges(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	carePlanCategory := fhir.SystemSNOMED + "|" + fhir.CategoryCarePlan
	observationsCategory := fhir.SystemSNOMED + "|" + fhir.CategoryObservations
	tests := []struct {
		event    string
		category string
		expected float64
	}{
		{stream.EventInsert, carePlanCategory, 1},
		{stream.EventInsert, observationsCategory, 1},
		{stream.EventModify, carePlanCategory, 1},
		{stream.EventRemove, observationsCategory, 1},
		{stream.EventRemove, carePlanCategory, 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(metrics.Changes.WithLabelValues(tt.event, tt.category))
		if got != tt.expected {
			t.Errorf("expected %v %s/%s changes, got %v", tt.expected, tt.event, tt.category, got)
		}
	}
	if got := testutil.ToFloat64(metrics.Skipped); got != 0 {
		t.Errorf("expected no skipped records, got %v", got)
	}
}

func TestHandleChanges_SkipsMalformedRecords(t *testing.T) {
	h, metrics, logs := newHandler(t)
	bad := streamImage(t)
	delete(bad, "id")

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventID: "bad-1", EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: bad}},
		{EventID: "ok-1", EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: streamImage(t)}},
	}}

	if err := h.HandleChanges(context.Background(), event); err != nil {
		t.Fatalf("malformed records must not fail the batch: %v", err)
	}
	if got := testutil.ToFloat64(metrics.Skipped); got != 1 {
		t.Errorf("expected 1 skipped record, got %v", got)
	}
	if got := testutil.CollectAndCount(metrics.Changes); got != 1 {
		t.Errorf("expected 1 change series, got %d", got)
	}
	if !strings.Contains(logs.String(), `"eventID":"bad-1"`) {
		t.Errorf("expected skipped record to be logged, got %s", logs.String())
	}
}

func TestHandleChanges_IgnoresOtherEvents(t *testing.T) {
	h, metrics, _ := newHandler(t)

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: "UNKNOWN", Change: events.DynamoDBStreamRecord{NewImage: streamImage(t)}},
	}}

	if err := h.HandleChanges(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.CollectAndCount(metrics.Changes); got != 0 {
		t.Errorf("expected no changes, got %d", got)
	}
	if got := testutil.ToFloat64(metrics.Skipped); got != 0 {
		t.Errorf("expected no skipped records, got %v", got)
	}
}

func TestHandleChanges_NeverLogsNHSNumber(t *testing.T) {
	h, _, logs := newHandler(t)
	image := streamImage(t)
	broken := streamImage(t)
	broken["version"] = events.NewStringAttribute("not a number")

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: image}},
		{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: broken}},
	}}

	if err := h.HandleChanges(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(logs.String(), fixture.ID) {
		t.Fatalf("expected the pointer id in the logs, got %s", logs.String())
	}
	if strings.Contains(logs.String(), fixture.NHSNumber) {
		t.Errorf("expected no NHS number in logs, got %s", logs.String())
	}
}

func TestHandleChanges_CancelledContext(t *testing.T) {
	h, metrics, _ := newHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: streamImage(t)}},
	}}

	if err := h.HandleChanges(ctx, event); err == nil {
		t.Error("expected context error")
	}
	if got := testutil.CollectAndCount(metrics.Changes); got != 0 {
		t.Errorf("expected no changes after cancellation, got %d", got)
	}
}
