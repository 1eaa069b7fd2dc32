// Package registry runs producer and consumer requests through validation,
// the pointer repository and outcome mapping. Every error it returns is an
// *outcome.Error ready to render.
package registry

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/outcome"
	"github.com/jacentio/docpointer/store"
	"github.com/jacentio/docpointer/validate"
)

// DefaultSource tags pointers written through this service.
const DefaultSource = "NRLF"

// Pointers is the subset of store.Repository the service drives.
type Pointers interface {
	Create(ctx context.Context, p *store.DocumentPointer) error
	GetByID(ctx context.Context, id string) (*store.DocumentPointer, error)
	CountByNHSNumber(ctx context.Context, nhsNumber string, pointerTypes []string) (int, error)
	Search(ctx context.Context, nhsNumber, custodian string, pointerTypes []string) iter.Seq2[*store.DocumentPointer, error]
	Delete(ctx context.Context, p *store.DocumentPointer, opts store.DeleteOptions) error
	Save(ctx context.Context, p *store.DocumentPointer) error
	Supersede(ctx context.Context, p *store.DocumentPointer, retiredIDs []string, opts store.SupersedeOptions) error
}

var _ Pointers = (*store.Repository)(nil)

// Service handles document pointer requests.
type Service struct {
	pointers  Pointers
	validator *validate.Validator
	logger    *slog.Logger
	source    string

	ignoreSupersedeDeleteFailure bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSource sets the source tag stored on new pointers.
func WithSource(source string) Option {
	return func(s *Service) {
		if source != "" {
			s.source = source
		}
	}
}

// IgnoreSupersedeDeleteFailure keeps a create that replaces other pointers
// successful when a replaced pointer cannot be found or deleted.
func IgnoreSupersedeDeleteFailure(ignore bool) Option {
	return func(s *Service) {
		s.ignoreSupersedeDeleteFailure = ignore
	}
}

// New constructs a Service. A nil validator uses validate.New().
func New(pointers Pointers, validator *validate.Validator, opts ...Option) *Service {
	s := &Service{
		pointers:  pointers,
		validator: validator,
		logger:    slog.Default(),
		source:    DefaultSource,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validate.New(validate.WithLogger(s.logger))
	}
	return s
}

// ParseBody decodes a request body into the untyped form the validator reads.
func ParseBody(body []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		if err == nil {
			err = errors.New("body is not a JSON object")
		}
		return nil, outcome.New(http.StatusBadRequest, "invalid", outcome.MessageNotWellFormed,
			"Request body could not be parsed").Wrap(err)
	}
	return data, nil
}

// Create validates body and stores it as a new pointer. When the resource
// replaces other pointers, those are retired after the new one is written.
func (s *Service) Create(ctx context.Context, body []byte) (*store.DocumentPointer, error) {
	doc, err := s.validated(body)
	if err != nil {
		return nil, err
	}

	if i := selfReplacement(doc); i >= 0 {
		return nil, outcome.New(http.StatusBadRequest, "invalid", outcome.BadRequest,
			"A DocumentReference cannot replace itself",
			"relatesTo["+strconv.Itoa(i)+"].target.identifier.value")
	}

	p, err := store.NewDocumentPointer(doc, s.source)
	if err != nil {
		return nil, s.fail(ctx, "create", doc.ID, err)
	}

	retired := replacedIDs(doc)
	if len(retired) == 0 {
		err = s.pointers.Create(ctx, p)
	} else {
		err = s.pointers.Supersede(ctx, p, retired, store.SupersedeOptions{
			IgnoreDeleteFailure: s.ignoreSupersedeDeleteFailure,
		})
	}
	if err != nil {
		return nil, s.fail(ctx, "create", p.ID, err)
	}

	s.logger.InfoContext(ctx, "document pointer created",
		"id", p.ID, "type", p.Type, "replaced", len(retired))
	return p, nil
}

// Read returns the pointer with id.
func (s *Service) Read(ctx context.Context, id string) (*store.DocumentPointer, error) {
	p, err := s.pointers.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "read", id, err)
	}
	return p, nil
}

// Update replaces the document of the existing pointer id with body. The
// subject and type must match the stored pointer.
func (s *Service) Update(ctx context.Context, id string, body []byte) (*store.DocumentPointer, error) {
	doc, err := s.validated(body)
	if err != nil {
		return nil, err
	}
	if doc.ID != id {
		return nil, outcome.New(http.StatusBadRequest, "invalid", outcome.BadRequest,
			"The requested document pointer cannot be updated because the id of the resource does not match the id in the request path",
			"id")
	}

	p, err := s.pointers.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "update", id, err)
	}
	if err := p.ReplaceDocument(doc); err != nil {
		return nil, s.fail(ctx, "update", id, err)
	}
	if err := s.pointers.Save(ctx, p); err != nil {
		return nil, s.fail(ctx, "update", id, err)
	}

	s.logger.InfoContext(ctx, "document pointer updated", "id", p.ID, "version", p.Version)
	return p, nil
}

// Delete removes the pointer id.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.pointers.GetByID(ctx, id)
	if err != nil {
		return s.fail(ctx, "delete", id, err)
	}
	if err := s.pointers.Delete(ctx, p, store.DeleteOptions{}); err != nil {
		return s.fail(ctx, "delete", id, err)
	}

	s.logger.InfoContext(ctx, "document pointer deleted", "id", id)
	return nil
}

// Search returns every pointer for a patient, optionally narrowed by
// custodian and pointer types, as a searchset bundle.
func (s *Service) Search(ctx context.Context, nhsNumber, custodian string, pointerTypes []string) (*fhir.Bundle, error) {
	if err := checkNHSNumber(nhsNumber); err != nil {
		return nil, err
	}

	bundle := fhir.NewSearchBundle()
	for p, err := range s.pointers.Search(ctx, nhsNumber, custodian, pointerTypes) {
		if err != nil {
			return nil, s.fail(ctx, "search", "", err)
		}
		doc, err := p.Resource()
		if err != nil {
			return nil, s.fail(ctx, "search", p.ID, err)
		}
		bundle.Add(doc)
	}
	return bundle, nil
}

// Count returns a bundle carrying only the number of matching pointers.
func (s *Service) Count(ctx context.Context, nhsNumber string, pointerTypes []string) (*fhir.Bundle, error) {
	if err := checkNHSNumber(nhsNumber); err != nil {
		return nil, err
	}

	total, err := s.pointers.CountByNHSNumber(ctx, nhsNumber, pointerTypes)
	if err != nil {
		return nil, s.fail(ctx, "count", "", err)
	}
	bundle := fhir.NewSearchBundle()
	bundle.Total = total
	return bundle, nil
}

func (s *Service) validated(body []byte) (*fhir.DocumentReference, error) {
	data, err := ParseBody(body)
	if err != nil {
		return nil, err
	}
	result := s.validator.Validate(data)
	if !result.IsValid() {
		return nil, outcome.FromIssues(http.StatusBadRequest, result.Issues)
	}
	return result.Resource, nil
}

// fail maps err to an outcome, logging internal failures with their cause.
func (s *Service) fail(ctx context.Context, op, id string, err error) *outcome.Error {
	oe := outcome.FromError(err)
	if oe.StatusCode >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "document pointer request failed",
			"operation", op, "id", id, "error", err)
	}
	return oe
}

func checkNHSNumber(nhsNumber string) error {
	if nhsNumber == "" {
		return outcome.New(http.StatusBadRequest, "invalid", outcome.InvalidNHSNumber,
			"A subject identifier must be provided", "subject:identifier")
	}
	if !validate.ValidNHSNumber(nhsNumber) {
		return outcome.New(http.StatusBadRequest, "invalid", outcome.InvalidNHSNumber,
			"Invalid NHS number provided in the search parameters", "subject:identifier")
	}
	return nil
}

func replacedIDs(doc *fhir.DocumentReference) []string {
	var ids []string
	for _, rel := range doc.RelatesTo {
		if rel.Code != "replaces" || rel.Target == nil || rel.Target.Identifier == nil {
			continue
		}
		ids = append(ids, rel.Target.Identifier.Value)
	}
	return ids
}

// selfReplacement returns the index of a "replaces" entry targeting doc
// itself, or -1.
func selfReplacement(doc *fhir.DocumentReference) int {
	for i, rel := range doc.RelatesTo {
		if rel.Code == "replaces" && rel.Target != nil && rel.Target.Identifier != nil &&
			rel.Target.Identifier.Value == doc.ID {
			return i
		}
	}
	return -1
}
