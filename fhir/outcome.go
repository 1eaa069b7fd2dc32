package fhir

// OperationOutcome is the FHIR failure resource returned for every rejected
// request.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

// OperationOutcomeIssue is a single diagnostic. Expression is absent for
// resource-level issues.
type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

// Issue severities.
const (
	SeverityFatal       = "fatal"
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Bundle is a searchset bundle of document references.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        int           `json:"total"`
	Entry        []BundleEntry `json:"entry"`
}

// BundleEntry wraps one resource in a Bundle.
type BundleEntry struct {
	Resource *DocumentReference `json:"resource"`
}

// NewSearchBundle returns an empty searchset bundle.
func NewSearchBundle() *Bundle {
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Entry:        []BundleEntry{},
	}
}

// Add appends a resource and keeps Total in step.
func (b *Bundle) Add(doc *DocumentReference) {
	b.Entry = append(b.Entry, BundleEntry{Resource: doc})
	b.Total = len(b.Entry)
}
