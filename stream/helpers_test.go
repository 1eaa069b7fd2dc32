package stream

import (
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// --- getStringAttr Tests ---

func TestGetStringAttr_ExistingString(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id": events.NewStringAttribute("Y05868-1"),
	}

	result := getStringAttr(image, "id")
	if result != "Y05868-1" {
		t.Errorf("expected 'Y05868-1', got %q", result)
	}
}

func TestGetStringAttr_MissingKey(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"other": events.NewStringAttribute("value"),
	}

	result := getStringAttr(image, "id")
	if result != "" {
		t.Errorf("expected empty string for missing key, got %q", result)
	}
}

func TestGetStringAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue

	result := getStringAttr(image, "id")
	if result != "" {
		t.Errorf("expected empty string for nil image, got %q", result)
	}
}

func TestGetStringAttr_NumberAttribute(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"pk": events.NewNumberAttribute("12345"),
	}

	result := getStringAttr(image, "pk")
	if result != "" {
		t.Errorf("expected empty string for number attribute, got %q", result)
	}
}

// --- convertImage Tests ---

func TestConvertImage_Scalars(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"pk":      events.NewStringAttribute("P#6700028191"),
		"version": events.NewNumberAttribute("42"),
		"flag":    events.NewBooleanAttribute(true),
		"gone":    events.NewNullAttribute(),
		"raw":     events.NewBinaryAttribute([]byte{1, 2}),
	}

	result := convertImage(image)

	if v, ok := result["pk"].(*types.AttributeValueMemberS); !ok || v.Value != "P#6700028191" {
		t.Errorf("expected pk 'P#6700028191', got %#v", result["pk"])
	}
	if v, ok := result["version"].(*types.AttributeValueMemberN); !ok || v.Value != "42" {
		t.Errorf("expected version '42', got %#v", result["version"])
	}
	if v, ok := result["flag"].(*types.AttributeValueMemberBOOL); !ok || !v.Value {
		t.Errorf("expected flag true, got %#v", result["flag"])
	}
	if _, ok := result["gone"].(*types.AttributeValueMemberNULL); !ok {
		t.Errorf("expected NULL, got %#v", result["gone"])
	}
	if v, ok := result["raw"].(*types.AttributeValueMemberB); !ok || len(v.Value) != 2 {
		t.Errorf("expected 2 bytes, got %#v", result["raw"])
	}
}

func TestConvertImage_Nested(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"list": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewStringAttribute("a"),
			events.NewNumberAttribute("1"),
		}),
		"map": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"inner": events.NewStringAttribute("value"),
		}),
		"tags": events.NewStringSetAttribute([]string{"x", "y"}),
	}

	result := convertImage(image)

	list, ok := result["list"].(*types.AttributeValueMemberL)
	if !ok || len(list.Value) != 2 {
		t.Fatalf("expected 2 element list, got %#v", result["list"])
	}
	m, ok := result["map"].(*types.AttributeValueMemberM)
	if !ok {
		t.Fatalf("expected map, got %#v", result["map"])
	}
	if v, ok := m.Value["inner"].(*types.AttributeValueMemberS); !ok || v.Value != "value" {
		t.Errorf("expected inner 'value', got %#v", m.Value["inner"])
	}
	if v, ok := result["tags"].(*types.AttributeValueMemberSS); !ok || len(v.Value) != 2 {
		t.Errorf("expected 2 tags, got %#v", result["tags"])
	}
}

func TestConvertImage_Empty(t *testing.T) {
	result := convertImage(nil)
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d entries", len(result))
	}
}

// --- decodeRecord Tests ---

func pointerImage() map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"pk":         events.NewStringAttribute("P#6700028191"),
		"sk":         events.NewStringAttribute("C#734163000#T#http://snomed.info/sct|736253002#O#Y05868#D#1"),
		"id":         events.NewStringAttribute("Y05868-1"),
		"nhs_number": events.NewStringAttribute("6700028191"),
		"custodian":  events.NewStringAttribute("Y05868"),
		"type":       events.NewStringAttribute("http://snomed.info/sct|736253002"),
		"category":   events.NewStringAttribute("http://snomed.info/sct|734163000"),
		"version":    events.NewNumberAttribute("3"),
	}
}

func TestDecodeRecord_ImageByEvent(t *testing.T) {
	tests := []struct {
		event    string
		oldImage map[string]events.DynamoDBAttributeValue
		newImage map[string]events.DynamoDBAttributeValue
	}{
		{EventInsert, nil, pointerImage()},
		{EventModify, pointerImage(), pointerImage()},
		{EventRemove, pointerImage(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			change, err := decodeRecord(events.DynamoDBEventRecord{
				EventName: tt.event,
				Change:    events.DynamoDBStreamRecord{OldImage: tt.oldImage, NewImage: tt.newImage},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if change.Event != tt.event {
				t.Errorf("expected event %q, got %q", tt.event, change.Event)
			}
			if change.ID != "Y05868-1" {
				t.Errorf("expected id 'Y05868-1', got %q", change.ID)
			}
			if change.Version != 3 {
				t.Errorf("expected version 3, got %d", change.Version)
			}
		})
	}
}

func TestDecodeRecord_UnknownEvent(t *testing.T) {
	change, err := decodeRecord(events.DynamoDBEventRecord{EventName: "UNKNOWN"})
	if err != nil || change != nil {
		t.Errorf("expected nil change and error, got %+v, %v", change, err)
	}
}

func TestDecodeRecord_Malformed(t *testing.T) {
	tests := map[string]func(map[string]events.DynamoDBAttributeValue){
		"missing pk":        func(img map[string]events.DynamoDBAttributeValue) { delete(img, "pk") },
		"foreign partition": func(img map[string]events.DynamoDBAttributeValue) { img["pk"] = events.NewStringAttribute("D#NULL") },
		"missing id":        func(img map[string]events.DynamoDBAttributeValue) { delete(img, "id") },
		"version not a number": func(img map[string]events.DynamoDBAttributeValue) {
			img["version"] = events.NewStringAttribute("three")
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			img := pointerImage()
			mutate(img)

			_, err := decodeRecord(events.DynamoDBEventRecord{
				EventName: EventInsert,
				Change:    events.DynamoDBStreamRecord{NewImage: img},
			})
			if !errors.Is(err, errNotPointer) {
				t.Errorf("expected errNotPointer, got %v", err)
			}
		})
	}
}

func BenchmarkConvertImage(b *testing.B) {
	image := pointerImage()
	for i := 0; i < b.N; i++ {
		convertImage(image)
	}
}
