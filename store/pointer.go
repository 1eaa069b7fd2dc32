package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/internal/keys"
)

// now is replaced in tests.
var now = time.Now

// DocumentPointer is the stored form of a DocumentReference.
type DocumentPointer struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	DocKey string `dynamodbav:"doc_key"`

	ID        string `dynamodbav:"id"`
	NHSNumber string `dynamodbav:"nhs_number"`
	Custodian string `dynamodbav:"custodian"`
	Type      string `dynamodbav:"type"`
	Category  string `dynamodbav:"category"`
	Source    string `dynamodbav:"source"`
	Version   int    `dynamodbav:"version"`

	// Document is the JSON encoding of the DocumentReference.
	Document string `dynamodbav:"document"`

	CreatedOn string `dynamodbav:"created_on"`
	UpdatedOn string `dynamodbav:"updated_on,omitempty"`

	fromStore bool
}

// NewDocumentPointer derives a pointer from a validated DocumentReference.
// Keys come from the resource id, subject and type.
func NewDocumentPointer(doc *fhir.DocumentReference, source string) (*DocumentPointer, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document reference", keys.ErrMissingField)
	}

	odsCode, localID, err := keys.ParseID(doc.ID)
	if err != nil {
		return nil, err
	}
	pointerType := doc.PointerType()

	pk, err := keys.PartitionKey(doc.NHSNumber())
	if err != nil {
		return nil, err
	}
	sk, err := keys.ItemSortKey(pointerType, odsCode, localID)
	if err != nil {
		return nil, err
	}
	docKey, err := keys.LookupKey(odsCode, localID)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	return &DocumentPointer{
		PK:        pk,
		SK:        sk,
		DocKey:    docKey,
		ID:        doc.ID,
		NHSNumber: doc.NHSNumber(),
		Custodian: doc.CustodianODSCode(),
		Type:      pointerType,
		Category:  doc.PointerCategory(),
		Source:    source,
		Version:   1,
		Document:  string(body),
		CreatedOn: now().UTC().Format(time.RFC3339),
	}, nil
}

// FromStore reports whether the pointer was read from (or written to) the
// table. Save uses it to choose between create and update.
func (p *DocumentPointer) FromStore() bool {
	return p.fromStore
}

// Resource re-parses the stored document. Unknown fields and an id that does
// not match the pointer are treated as corruption.
func (p *DocumentPointer) Resource() (*fhir.DocumentReference, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(p.Document)))
	dec.DisallowUnknownFields()

	var doc fhir.DocumentReference
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptPointer, p.ID, err)
	}
	if doc.ID != p.ID {
		return nil, fmt.Errorf("%w: %s: document id %q", ErrCorruptPointer, p.ID, doc.ID)
	}
	return &doc, nil
}

// ReplaceDocument swaps in a new version of the resource, keeping the keys.
// The resource id, subject and type must not change, since pk and sk are
// derived from them. Update stamps updated_on.
func (p *DocumentPointer) ReplaceDocument(doc *fhir.DocumentReference) error {
	if doc == nil || doc.ID != p.ID {
		return fmt.Errorf("%w: replacement id must be %q", keys.ErrMalformedID, p.ID)
	}
	if doc.NHSNumber() != p.NHSNumber {
		return fmt.Errorf("%w: pointer %s", ErrSubjectChanged, p.ID)
	}
	if doc.PointerType() != p.Type {
		return fmt.Errorf("%w: pointer %s is %s", ErrTypeChanged, p.ID, p.Type)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	p.Document = string(body)
	p.Custodian = doc.CustodianODSCode()
	p.Category = doc.PointerCategory()
	return nil
}
