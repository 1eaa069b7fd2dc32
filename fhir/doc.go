// Package fhir holds the subset of the FHIR R4 model used by the document
// pointer registry: DocumentReference (the pointer resource), OperationOutcome
// (the failure shape) and Bundle (the search response), together with the
// closed code sets the registry accepts.
//
// The lookup tables in this package are built once at start-up and are never
// mutated; read them through the accessor functions.
package fhir
