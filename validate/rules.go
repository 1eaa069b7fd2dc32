package validate

import (
	"fmt"
	"regexp"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/outcome"
)

var asidPattern = regexp.MustCompile(`^\d{12}$`)

func checkIdentifiers(v *validation) bool {
	doc := v.doc()

	if doc.Custodian.Identifier == nil {
		v.add("required", outcome.InvalidResource, "Custodian must have an identifier", "custodian.identifier")
		return true
	}
	if doc.Subject.Identifier == nil {
		v.add("required", outcome.InvalidResource, "Subject must have an identifier", "subject.identifier")
		return true
	}

	if doc.Custodian.Identifier.System != fhir.SystemODS {
		v.add("invalid", outcome.InvalidIdentifierSystem,
			fmt.Sprintf("Provided custodian identifier system is not the ODS system (expected: '%s')", fhir.SystemODS),
			"custodian.identifier.system")
	}
	if doc.Subject.Identifier.System != fhir.SystemNHSNumber {
		v.add("invalid", outcome.InvalidIdentifierSystem,
			fmt.Sprintf("Provided subject identifier system is not the NHS number system (expected '%s')", fhir.SystemNHSNumber),
			"subject.identifier.system")
	}
	if !ValidNHSNumber(doc.Subject.Identifier.Value) {
		v.add("invalid", outcome.InvalidNHSNumber,
			"Provided subject identifier value is not a valid NHS number",
			"subject.identifier.value")
	}
	return true
}

func checkCategory(v *validation) bool {
	doc := v.doc()

	if n := len(doc.Category); n != 1 {
		v.add("invalid", outcome.InvalidResource,
			fmt.Sprintf("Invalid category length: %d Category must only contain a single value", n),
			"category")
		return true
	}
	if n := len(doc.Category[0].Coding); n != 1 {
		v.add("invalid", outcome.InvalidResource,
			fmt.Sprintf("Invalid category coding length: %d Category Coding must only contain a single value", n),
			"category[0].coding")
		return true
	}

	coding := doc.Category[0].Coding[0]
	if coding.System != fhir.SystemSNOMED {
		v.add("value", outcome.InvalidResource,
			fmt.Sprintf("Invalid category system: %s Category system must be '%s'", coding.System, fhir.SystemSNOMED),
			"category[0].coding[0].system")
	}

	display, ok := fhir.CategoryDisplay(coding.Code)
	if !ok {
		v.add("value", outcome.InvalidResource,
			fmt.Sprintf("Invalid category code: %s Category must be a member of the England-NRLRecordCategory value set (%s)",
				coding.Code, fhir.SystemRecordCategory),
			"category[0].coding[0].code")
		return true
	}
	if coding.Display != display {
		v.add("value", outcome.InvalidResource,
			fmt.Sprintf("category code '%s' must have a display value of '%s'", coding.Code, display),
			"category[0].coding[0].display")
	}
	return true
}

func checkContentExtensions(v *validation) bool {
	for i, content := range v.doc().Content {
		if n := len(content.Extension); n > 1 {
			v.add("invalid", outcome.InvalidResource,
				fmt.Sprintf("Invalid content extension length: %d Extension must only contain a single value", n),
				fmt.Sprintf("content[%d].extension", i))
			continue
		}
		if len(content.Extension) == 0 {
			continue
		}

		ext := content.Extension[0]
		if ext.ValueCodeableConcept == nil || len(ext.ValueCodeableConcept.Coding) == 0 {
			v.add("required", outcome.InvalidResource,
				fmt.Sprintf("Missing content[%d].extension[0].valueCodeableConcept.coding, extension must have at least one coding.", i),
				fmt.Sprintf("content[%d].extension.valueCodeableConcept.coding", i))
			continue
		}

		prefix := fmt.Sprintf("content[%d].extension[0]", i)
		coding := ext.ValueCodeableConcept.Coding[0]

		if ext.URL != fhir.ExtensionURLContentStability {
			v.add("value", outcome.InvalidResource,
				fmt.Sprintf("Invalid content extension url: %s Extension url must be '%s'", ext.URL, fhir.ExtensionURLContentStability),
				prefix+".url")
		}
		if coding.System != fhir.SystemContentStability {
			v.add("value", outcome.InvalidResource,
				fmt.Sprintf("Invalid content extension system: %s Extension system must be '%s'", coding.System, fhir.SystemContentStability),
				prefix+".valueCodeableConcept.coding[0].system")
		}
		if !fhir.IsContentStabilityCode(coding.Code) {
			v.add("value", outcome.InvalidResource,
				fmt.Sprintf("Invalid content extension code: %s Extension code must be 'static' or 'dynamic'", coding.Code),
				prefix+".valueCodeableConcept.coding[0].code")
		}
		if coding.Display != coding.Code {
			v.add("value", outcome.InvalidResource,
				fmt.Sprintf("Invalid content extension display: %s Extension display must be the same as code either 'static' or 'dynamic'", coding.Display),
				prefix+".valueCodeableConcept.coding[0].display")
		}
	}
	return true
}

func checkRelatesTo(v *validation) bool {
	for i, rel := range v.doc().RelatesTo {
		if !fhir.IsRelatesToCode(rel.Code) {
			v.add("value", outcome.InvalidCodeValue,
				fmt.Sprintf("Invalid relatesTo code: %s", rel.Code),
				fmt.Sprintf("relatesTo[%d].code", i))
			continue
		}
		if rel.Target == nil || rel.Target.Identifier == nil || rel.Target.Identifier.Value == "" {
			v.add("required", outcome.InvalidIdentifierValue,
				fmt.Sprintf("relatesTo code '%s' must have a target identifier", rel.Code),
				fmt.Sprintf("relatesTo[%d].target.identifier.value", i))
		}
	}
	return true
}

// checkRelatedASID requires exactly one ASID in context.related when any
// content uses secure transport. A lone ASID is format-checked either way.
func checkRelatedASID(v *validation) bool {
	doc := v.doc()

	secure := false
	for _, content := range doc.Content {
		if content.Attachment != nil && fhir.IsSecurePointerURL(content.Attachment.URL) {
			secure = true
			break
		}
	}

	var related []fhir.Reference
	if doc.Context != nil {
		related = doc.Context.Related
	}

	if secure && len(related) == 0 {
		v.add("required", outcome.InvalidResource,
			"Missing context.related. It must be provided and contain a single valid ASID identifier when content contains an SSP URL",
			"context.related")
		return true
	}

	var asids []int
	for i, ref := range related {
		if ref.Identifier != nil && ref.Identifier.System == fhir.SystemASID {
			asids = append(asids, i)
		}
	}

	switch {
	case secure && len(asids) == 0:
		v.add("required", outcome.InvalidResource,
			"Missing ASID identifier. context.related must contain a single valid ASID identifier when content contains an SSP URL",
			"context.related")
	case len(asids) > 1:
		v.add("invalid", outcome.InvalidResource,
			"Multiple ASID identifiers provided. Only a single valid ASID identifier can be provided in the context.related.",
			"context.related")
	case len(asids) == 1:
		idx := asids[0]
		value := related[idx].Identifier.Value
		if !asidPattern.MatchString(value) {
			v.add("value", outcome.InvalidIdentifierValue,
				fmt.Sprintf("Invalid ASID value '%s'. A single ASID consisting of 12 digits can be provided in the context.related field.", value),
				fmt.Sprintf("context.related[%d].identifier.value", idx))
		}
	}
	return true
}
