package validate

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/outcome"
)

// requiredFields are checked, and reported, in this order.
var requiredFields = []string{"custodian", "id", "type", "subject", "category"}

// topLevelField is one JSON member of DocumentReference.
type topLevelField struct {
	name  string
	index int
	typ   reflect.Type
}

var (
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
	topLevelFields = buildTopLevelFields()
)

func buildTopLevelFields() []topLevelField {
	t := reflect.TypeOf(fhir.DocumentReference{})
	fields := make([]topLevelField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		fields = append(fields, topLevelField{name: name, index: i, typ: t.Field(i).Type})
	}
	return fields
}

// parseResource decodes each known member separately so that every type
// mismatch is reported against its own field. Any mismatch halts validation
// without a resource.
func parseResource(v *validation) bool {
	var doc fhir.DocumentReference
	target := reflect.ValueOf(&doc).Elem()
	failed := false

	for _, f := range topLevelFields {
		value, ok := v.raw[f.name]
		if !ok || value == nil {
			continue
		}
		if msg := kindMismatch(f.typ, value); msg != "" {
			v.add("invalid", outcome.InvalidResource, parseDiagnostics(f.name, msg), f.name)
			failed = true
			continue
		}
		if err := decodeInto(value, target.Field(f.index).Addr().Interface()); err != nil {
			v.add("invalid", outcome.InvalidResource, parseDiagnostics(f.name, err.Error()), f.name)
			failed = true
		}
	}

	if failed {
		return false
	}
	v.result.Resource = &doc
	return true
}

func parseDiagnostics(field, msg string) string {
	return fmt.Sprintf("Failed to parse DocumentReference resource (%s: %s)", field, msg)
}

// kindMismatch describes a top-level value of the wrong JSON kind, or returns
// "" when the kind fits.
func kindMismatch(t reflect.Type, value any) string {
	if t == rawMessageType {
		return ""
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		if _, ok := value.(string); !ok {
			return "str type expected"
		}
	case reflect.Struct:
		if _, ok := value.(map[string]any); !ok {
			return "value is not a valid dict"
		}
	case reflect.Slice:
		if _, ok := value.([]any); !ok {
			return "value is not a valid list"
		}
	}
	return ""
}

func decodeInto(value any, target any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// requireFields reports every missing mandatory member, in a fixed order, and
// halts when any is missing. The partially parsed resource is kept.
func requireFields(v *validation) bool {
	missing := false
	for _, name := range requiredFields {
		if value, ok := v.raw[name]; ok && value != nil {
			continue
		}
		v.add("required", outcome.InvalidResource, fmt.Sprintf("The required field '%s' is missing", name), name)
		missing = true
	}
	return !missing
}

// noExtraFields rejects members outside the resource schema at any depth with
// a single resource-level issue.
func noExtraFields(v *validation) bool {
	raw, err := json.Marshal(v.raw)
	if err != nil {
		v.add("invalid", outcome.InvalidResource, "The resource contains extra fields")
		return true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var strict fhir.DocumentReference
	if err := dec.Decode(&strict); err != nil {
		v.add("invalid", outcome.InvalidResource, "The resource contains extra fields")
	}
	return true
}
