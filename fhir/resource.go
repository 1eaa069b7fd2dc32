package fhir

import "github.com/goccy/go-json"

// DocumentReference is a FHIR R4 DocumentReference describing where a
// patient's clinical document lives.
type DocumentReference struct {
	ResourceType     string            `json:"resourceType,omitempty"`
	ID               string            `json:"id,omitempty"`
	Meta             json.RawMessage   `json:"meta,omitempty"`
	ImplicitRules    string            `json:"implicitRules,omitempty"`
	Language         string            `json:"language,omitempty"`
	Text             json.RawMessage   `json:"text,omitempty"`
	Extension        []Extension       `json:"extension,omitempty"`
	MasterIdentifier *Identifier       `json:"masterIdentifier,omitempty"`
	Identifier       []Identifier      `json:"identifier,omitempty"`
	Status           string            `json:"status,omitempty"`
	DocStatus        string            `json:"docStatus,omitempty"`
	Type             *CodeableConcept  `json:"type,omitempty"`
	Category         []CodeableConcept `json:"category,omitempty"`
	Subject          *Reference        `json:"subject,omitempty"`
	Date             string            `json:"date,omitempty"`
	Author           []Reference       `json:"author,omitempty"`
	Authenticator    *Reference        `json:"authenticator,omitempty"`
	Custodian        *Reference        `json:"custodian,omitempty"`
	RelatesTo        []RelatesTo       `json:"relatesTo,omitempty"`
	Description      string            `json:"description,omitempty"`
	SecurityLabel    []CodeableConcept `json:"securityLabel,omitempty"`
	Content          []Content         `json:"content,omitempty"`
	Context          *Context          `json:"context,omitempty"`
}

// Identifier is a FHIR Identifier.
type Identifier struct {
	Use      string           `json:"use,omitempty"`
	Type     *CodeableConcept `json:"type,omitempty"`
	System   string           `json:"system,omitempty"`
	Value    string           `json:"value,omitempty"`
	Period   *Period          `json:"period,omitempty"`
	Assigner *Reference       `json:"assigner,omitempty"`
}

// Reference is a FHIR Reference.
type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

// Coding is a single code from a code system.
type Coding struct {
	System       string `json:"system,omitempty"`
	Version      string `json:"version,omitempty"`
	Code         string `json:"code,omitempty"`
	Display      string `json:"display,omitempty"`
	UserSelected *bool  `json:"userSelected,omitempty"`
}

// CodeableConcept is a FHIR CodeableConcept.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Period is a FHIR Period.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Extension carries the content stability coding on a content entry.
type Extension struct {
	URL                  string           `json:"url,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
}

// Attachment locates the document itself.
type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	Language    string `json:"language,omitempty"`
	Data        string `json:"data,omitempty"`
	URL         string `json:"url,omitempty"`
	Size        *int64 `json:"size,omitempty"`
	Hash        string `json:"hash,omitempty"`
	Title       string `json:"title,omitempty"`
	Creation    string `json:"creation,omitempty"`
}

// Content is one document content entry.
type Content struct {
	Attachment *Attachment `json:"attachment,omitempty"`
	Format     *Coding     `json:"format,omitempty"`
	Extension  []Extension `json:"extension,omitempty"`
}

// RelatesTo links a pointer to another pointer.
type RelatesTo struct {
	Code   string     `json:"code,omitempty"`
	Target *Reference `json:"target,omitempty"`
}

// Context is the clinical context of the document.
type Context struct {
	Encounter         []Reference       `json:"encounter,omitempty"`
	Event             []CodeableConcept `json:"event,omitempty"`
	Period            *Period           `json:"period,omitempty"`
	FacilityType      *CodeableConcept  `json:"facilityType,omitempty"`
	PracticeSetting   *CodeableConcept  `json:"practiceSetting,omitempty"`
	SourcePatientInfo *Reference        `json:"sourcePatientInfo,omitempty"`
	Related           []Reference       `json:"related,omitempty"`
}

// PointerType returns the "system|code" form of the first type coding, or ""
// when the resource carries no type coding.
func (d *DocumentReference) PointerType() string {
	if d == nil || d.Type == nil || len(d.Type.Coding) == 0 {
		return ""
	}
	c := d.Type.Coding[0]
	return c.System + "|" + c.Code
}

// PointerCategory returns the "system|code" form of the first category coding.
func (d *DocumentReference) PointerCategory() string {
	if d == nil || len(d.Category) == 0 || len(d.Category[0].Coding) == 0 {
		return ""
	}
	c := d.Category[0].Coding[0]
	return c.System + "|" + c.Code
}

// CustodianODSCode returns the custodian identifier value.
func (d *DocumentReference) CustodianODSCode() string {
	if d == nil || d.Custodian == nil || d.Custodian.Identifier == nil {
		return ""
	}
	return d.Custodian.Identifier.Value
}

// NHSNumber returns the subject identifier value.
func (d *DocumentReference) NHSNumber() string {
	if d == nil || d.Subject == nil || d.Subject.Identifier == nil {
		return ""
	}
	return d.Subject.Identifier.Value
}
