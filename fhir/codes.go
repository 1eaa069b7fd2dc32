package fhir

import "strings"

// Identifier and code systems.
const (
	SystemSNOMED    = "http://snomed.info/sct"
	SystemODS       = "https://fhir.nhs.uk/Id/ods-organization-code"
	SystemNHSNumber = "https://fhir.nhs.uk/Id/nhs-number"
	SystemASID      = "https://fhir.nhs.uk/Id/nhsSpineASID"

	SystemContentStability       = "https://fhir.nhs.uk/England/CodeSystem/England-NRLContentStability"
	ExtensionURLContentStability = "https://fhir.nhs.uk/England/StructureDefinition/Extension-England-ContentStability"
	SystemRecordCategory         = "https://fhir.nhs.uk/England/CodeSystem/England-NRLRecordCategory"
)

// SecurePointerScheme prefixes attachment URLs that use secure point-to-point
// transport. Such pointers must name exactly one ASID in context.related.
const SecurePointerScheme = "ssp://"

// Category codes.
const (
	CategoryCarePlan     = "734163000"
	CategoryObservations = "1102421000000108"
)

// Pointer types, in "system|code" form.
const (
	TypeMentalHealthPlan        = SystemSNOMED + "|736253002"
	TypeEmergencyHealthcarePlan = SystemSNOMED + "|887701000000100"
	TypeEOLCoordinationSummary  = SystemSNOMED + "|861421000000109"
	TypeRespectForm             = SystemSNOMED + "|736373009"
	TypeNEWS2Chart              = SystemSNOMED + "|1363501000000100"
	TypeContingencyPlan         = SystemSNOMED + "|325691000000100"
	TypeEOLCarePlan             = SystemSNOMED + "|736366004"
	TypeLloydGeorgeFolder       = SystemSNOMED + "|16521000000101"
)

// Content stability codes.
const (
	ContentStabilityStatic  = "static"
	ContentStabilityDynamic = "dynamic"
)

var categoryDisplays = map[string]string{
	CategoryCarePlan:     "Care plan",
	CategoryObservations: "Observations",
}

var typeCategories = map[string]string{
	TypeMentalHealthPlan:        CategoryCarePlan,
	TypeEmergencyHealthcarePlan: CategoryCarePlan,
	TypeEOLCoordinationSummary:  CategoryCarePlan,
	TypeRespectForm:             CategoryCarePlan,
	TypeNEWS2Chart:              CategoryObservations,
	TypeContingencyPlan:         CategoryCarePlan,
	TypeEOLCarePlan:             CategoryCarePlan,
	TypeLloydGeorgeFolder:       CategoryObservations,
}

var relatesToCodes = map[string]bool{
	"replaces":     true,
	"transforms":   true,
	"signs":        true,
	"appends":      true,
	"incorporates": true,
	"summarizes":   true,
}

// CategoryDisplay returns the required display for a category code.
func CategoryDisplay(code string) (string, bool) {
	d, ok := categoryDisplays[code]
	return d, ok
}

// CategoryForType returns the category code a pointer type belongs to.
func CategoryForType(pointerType string) (string, bool) {
	c, ok := typeCategories[pointerType]
	return c, ok
}

// IsPointerType reports whether pointerType is in the closed pointer type set.
func IsPointerType(pointerType string) bool {
	_, ok := typeCategories[pointerType]
	return ok
}

// IsRelatesToCode reports whether code is an accepted relatesTo code.
func IsRelatesToCode(code string) bool {
	return relatesToCodes[code]
}

// IsContentStabilityCode reports whether code is static or dynamic.
func IsContentStabilityCode(code string) bool {
	return code == ContentStabilityStatic || code == ContentStabilityDynamic
}

// IsSecurePointerURL reports whether an attachment URL uses secure transport.
func IsSecurePointerURL(url string) bool {
	return strings.HasPrefix(url, SecurePointerScheme)
}
