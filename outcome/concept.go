// Package outcome renders failures as FHIR OperationOutcome resources drawn
// from the Spine error code catalogue.
package outcome

import "github.com/jacentio/docpointer/fhir"

// SpineErrorSystem is the code system of every issue detail coding.
const SpineErrorSystem = "https://fhir.nhs.uk/ValueSet/Spine-ErrorOrWarningCode-1"

// Concept is one entry of the Spine error code catalogue.
type Concept struct {
	Code    string
	Display string
}

// Catalogue entries.
var (
	BadRequest              = Concept{"BAD_REQUEST", "Bad request"}
	InvalidResource         = Concept{"INVALID_RESOURCE", "Invalid validation of resource"}
	InvalidIdentifierSystem = Concept{"INVALID_IDENTIFIER_SYSTEM", "Invalid identifier system"}
	InvalidIdentifierValue  = Concept{"INVALID_IDENTIFIER_VALUE", "Invalid identifier value"}
	InvalidCodeSystem       = Concept{"INVALID_CODE_SYSTEM", "Invalid code system"}
	InvalidCodeValue        = Concept{"INVALID_CODE_VALUE", "Invalid code value"}
	InvalidNHSNumber        = Concept{"INVALID_NHS_NUMBER", "Invalid NHS number"}
	InvalidParameter        = Concept{"INVALID_PARAMETER", "Invalid parameter"}
	MessageNotWellFormed    = Concept{"MESSAGE_NOT_WELL_FORMED", "Message not well formed"}
	DuplicateRejected       = Concept{"DUPLICATE_REJECTED", "Duplicate DocumentReference"}
	NoRecordFound           = Concept{"NO_RECORD_FOUND", "No record found"}
	InternalServerError     = Concept{"INTERNAL_SERVER_ERROR", "Unexpected internal server error"}
)

var catalogue = map[string]Concept{}

func init() {
	for _, c := range []Concept{
		BadRequest, InvalidResource, InvalidIdentifierSystem, InvalidIdentifierValue,
		InvalidCodeSystem, InvalidCodeValue, InvalidNHSNumber, InvalidParameter,
		MessageNotWellFormed, DuplicateRejected, NoRecordFound, InternalServerError,
	} {
		catalogue[c.Code] = c
	}
}

// Lookup returns the catalogue entry for a code.
func Lookup(code string) (Concept, bool) {
	c, ok := catalogue[code]
	return c, ok
}

// CodeableConcept renders the concept as issue details.
func (c Concept) CodeableConcept() *fhir.CodeableConcept {
	return &fhir.CodeableConcept{
		Coding: []fhir.Coding{{
			System:  SpineErrorSystem,
			Code:    c.Code,
			Display: c.Display,
		}},
	}
}

// NewIssue builds an error-severity issue. A nil concept omits the details and
// no field omits the expression.
func NewIssue(code string, concept *Concept, diagnostics string, field ...string) fhir.OperationOutcomeIssue {
	issue := fhir.OperationOutcomeIssue{
		Severity:    fhir.SeverityError,
		Code:        code,
		Diagnostics: diagnostics,
	}
	if concept != nil {
		issue.Details = concept.CodeableConcept()
	}
	if len(field) > 0 {
		issue.Expression = field
	}
	return issue
}
