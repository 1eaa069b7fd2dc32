// Package fixture builds DocumentReference resources for tests.
package fixture

import (
	"github.com/goccy/go-json"

	"github.com/jacentio/docpointer/fhir"
)

const (
	NHSNumber = "6700028191"
	ODSCode   = "Y05868"
	ID        = "Y05868-99999-99999-999999"
	ASID      = "230811201350"
)

// Option modifies a fixture resource.
type Option func(*fhir.DocumentReference)

// WithID sets the resource id and custodian from the id's ODS prefix.
func WithID(odsCode, localID string) Option {
	return func(d *fhir.DocumentReference) {
		d.ID = odsCode + "-" + localID
		d.Custodian.Identifier.Value = odsCode
	}
}

// WithNHSNumber sets the subject.
func WithNHSNumber(nhsNumber string) Option {
	return func(d *fhir.DocumentReference) {
		d.Subject.Identifier.Value = nhsNumber
	}
}

// WithType sets the pointer type ("system|code") and the matching category.
func WithType(pointerType string) Option {
	return func(d *fhir.DocumentReference) {
		system, code := splitType(pointerType)
		d.Type = &fhir.CodeableConcept{Coding: []fhir.Coding{{System: system, Code: code}}}
		category, ok := fhir.CategoryForType(pointerType)
		if !ok {
			return
		}
		display, _ := fhir.CategoryDisplay(category)
		d.Category = []fhir.CodeableConcept{{Coding: []fhir.Coding{{
			System:  fhir.SystemSNOMED,
			Code:    category,
			Display: display,
		}}}}
	}
}

// WithDescription sets the description, handy for telling versions apart.
func WithDescription(description string) Option {
	return func(d *fhir.DocumentReference) {
		d.Description = description
	}
}

// Replacing adds a relatesTo "replaces" entry targeting id.
func Replacing(id string) Option {
	return func(d *fhir.DocumentReference) {
		d.RelatesTo = append(d.RelatesTo, fhir.RelatesTo{
			Code:   "replaces",
			Target: &fhir.Reference{Identifier: &fhir.Identifier{Value: id}},
		})
	}
}

// Secure switches the content to an SSP URL with one ASID in context.related.
func Secure() Option {
	return func(d *fhir.DocumentReference) {
		d.Content[0].Attachment.URL = "ssp://nrl.example.nhs.uk/documents/care-plan.pdf"
		d.Context = &fhir.Context{Related: []fhir.Reference{{
			Identifier: &fhir.Identifier{System: fhir.SystemASID, Value: ASID},
		}}}
	}
}

// DocumentReference returns a valid care plan pointer.
func DocumentReference(opts ...Option) *fhir.DocumentReference {
	d := &fhir.DocumentReference{
		ResourceType: "DocumentReference",
		ID:           ID,
		Status:       "current",
		Type: &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System:  fhir.SystemSNOMED,
			Code:    "736253002",
			Display: "Mental health crisis plan",
		}}},
		Category: []fhir.CodeableConcept{{Coding: []fhir.Coding{{
			System:  fhir.SystemSNOMED,
			Code:    fhir.CategoryCarePlan,
			Display: "Care plan",
		}}}},
		Subject: &fhir.Reference{Identifier: &fhir.Identifier{
			System: fhir.SystemNHSNumber,
			Value:  NHSNumber,
		}},
		Custodian: &fhir.Reference{Identifier: &fhir.Identifier{
			System: fhir.SystemODS,
			Value:  ODSCode,
		}},
		Author: []fhir.Reference{{Identifier: &fhir.Identifier{
			System: fhir.SystemODS,
			Value:  ODSCode,
		}}},
		Content: []fhir.Content{{
			Attachment: &fhir.Attachment{
				ContentType: "application/pdf",
				URL:         "https://provider.example.nhs.uk/documents/care-plan.pdf",
			},
			Format: &fhir.Coding{
				System:  "https://fhir.nhs.uk/England/CodeSystem/England-NRLFormatCode",
				Code:    "urn:nhs-ic:unstructured",
				Display: "Unstructured document",
			},
			Extension: []fhir.Extension{{
				URL: fhir.ExtensionURLContentStability,
				ValueCodeableConcept: &fhir.CodeableConcept{Coding: []fhir.Coding{{
					System:  fhir.SystemContentStability,
					Code:    fhir.ContentStabilityStatic,
					Display: fhir.ContentStabilityStatic,
				}}},
			}},
		}},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Map returns the resource as the untyped structure a request body decodes to.
func Map(d *fhir.DocumentReference) map[string]any {
	raw, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	return m
}

// JSON returns the resource encoded as a request body.
func JSON(d *fhir.DocumentReference) []byte {
	raw, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	return raw
}

func splitType(pointerType string) (system, code string) {
	for i := len(pointerType) - 1; i >= 0; i-- {
		if pointerType[i] == '|' {
			return pointerType[:i], pointerType[i+1:]
		}
	}
	return "", pointerType
}
