// Package keys derives the DynamoDB keys of a document pointer from its
// identifying fields.
package keys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jacentio/docpointer/fhir"
)

var (
	// ErrMissingField is returned when a required key component is empty.
	ErrMissingField = errors.New("docpointer: missing key field")

	// ErrUnknownPointerType is returned for pointer types outside the closed set.
	ErrUnknownPointerType = errors.New("docpointer: unknown pointer type")

	// ErrMalformedID is returned when a pointer id is not "{odsCode}-{localId}".
	ErrMalformedID = errors.New("docpointer: malformed pointer id")
)

// PartitionKey computes the partition key for a patient.
func PartitionKey(nhsNumber string) (string, error) {
	if nhsNumber == "" {
		return "", fmt.Errorf("%w: nhs number", ErrMissingField)
	}
	return "P#" + nhsNumber, nil
}

// CategoryForType maps a pointer type to its category code. Unknown types fail
// rather than fall back to a default category, because the category is part of
// the sort key.
func CategoryForType(pointerType string) (string, error) {
	if pointerType == "" {
		return "", fmt.Errorf("%w: pointer type", ErrMissingField)
	}
	category, ok := fhir.CategoryForType(pointerType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPointerType, pointerType)
	}
	return category, nil
}

// SortKey computes the sort key prefix shared by every pointer of a type.
// Single-type queries use it with begins_with.
func SortKey(pointerType string) (string, error) {
	category, err := CategoryForType(pointerType)
	if err != nil {
		return "", err
	}
	return "C#" + category + "#T#" + pointerType, nil
}

// ItemSortKey computes the full sort key of a stored pointer: the type prefix
// followed by the pointer's lookup key, so (pk, sk) is unique per pointer id.
func ItemSortKey(pointerType, odsCode, localID string) (string, error) {
	prefix, err := SortKey(pointerType)
	if err != nil {
		return "", err
	}
	lookup, err := LookupKey(odsCode, localID)
	if err != nil {
		return "", err
	}
	return prefix + "#" + lookup, nil
}

// LookupKey computes the doc_key projected into the secondary index.
func LookupKey(odsCode, localID string) (string, error) {
	if odsCode == "" {
		return "", fmt.Errorf("%w: ods code", ErrMissingField)
	}
	if localID == "" {
		return "", fmt.Errorf("%w: local id", ErrMissingField)
	}
	return "O#" + odsCode + "#D#" + localID, nil
}

// ParseID splits a pointer id on its first hyphen. Local ids may themselves
// contain hyphens.
func ParseID(id string) (odsCode, localID string, err error) {
	odsCode, localID, found := strings.Cut(id, "-")
	if !found || odsCode == "" || localID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return odsCode, localID, nil
}

// LookupKeyForID computes the doc_key for a pointer id.
func LookupKeyForID(id string) (string, error) {
	odsCode, localID, err := ParseID(id)
	if err != nil {
		return "", err
	}
	return LookupKey(odsCode, localID)
}

// NewID generates a fresh pointer id for a custodian.
func NewID(odsCode string) (string, error) {
	if odsCode == "" {
		return "", fmt.Errorf("%w: ods code", ErrMissingField)
	}
	return odsCode + "-" + uuid.NewString(), nil
}
