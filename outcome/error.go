package outcome

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/internal/keys"
	"github.com/jacentio/docpointer/store"
)

// Error is a failure carrying the OperationOutcome returned to the caller.
type Error struct {
	StatusCode int
	Issues     []fhir.OperationOutcomeIssue
	cause      error
}

// New builds a single-issue Error.
func New(statusCode int, code string, concept Concept, diagnostics string, field ...string) *Error {
	return &Error{
		StatusCode: statusCode,
		Issues:     []fhir.OperationOutcomeIssue{NewIssue(code, &concept, diagnostics, field...)},
	}
}

// FromIssues builds an Error from validation issues.
func FromIssues(statusCode int, issues []fhir.OperationOutcomeIssue) *Error {
	return &Error{StatusCode: statusCode, Issues: issues}
}

// Wrap attaches the underlying cause, kept for logs and errors.Is.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Code+": "+issue.Diagnostics)
	}
	msg := fmt.Sprintf("%d %s", e.StatusCode, strings.Join(parts, "; "))
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Outcome renders the issues as an OperationOutcome.
func (e *Error) Outcome() *fhir.OperationOutcome {
	return &fhir.OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue:        e.Issues,
	}
}

// APIGatewayResponse renders the Error as an API Gateway proxy response.
func (e *Error) APIGatewayResponse() events.APIGatewayProxyResponse {
	return Response(e.StatusCode, e.Outcome())
}

// Response encodes body as a JSON API Gateway proxy response. A body that
// cannot be encoded yields a bare 500.
func Response(statusCode int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/fhir+json"},
		Body:       string(raw),
	}
}

// FromError maps a key, store or validation failure to an Error. Internal
// failures carry no detail of their cause in the rendered outcome.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}

	switch {
	case errors.Is(err, store.ErrInternal):
		return internal(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return New(http.StatusConflict, "conflict", DuplicateRejected,
			"A DocumentReference with the provided id already exists").Wrap(err)
	case errors.Is(err, store.ErrNotFound):
		return New(http.StatusNotFound, "not-found", NoRecordFound,
			"DocumentReference not found").Wrap(err)
	case errors.Is(err, store.ErrSubjectChanged):
		return New(http.StatusBadRequest, "invalid", BadRequest,
			"The subject of a document pointer cannot be changed by an update",
			"subject.identifier.value").Wrap(err)
	case errors.Is(err, store.ErrTypeChanged):
		return New(http.StatusBadRequest, "invalid", BadRequest,
			"The type of a document pointer cannot be changed by an update", "type").Wrap(err)
	case errors.Is(err, keys.ErrMalformedID):
		return New(http.StatusBadRequest, "invalid", InvalidParameter,
			"The id must be of the form '{ods code}-{local id}'").Wrap(err)
	case errors.Is(err, keys.ErrUnknownPointerType):
		return New(http.StatusBadRequest, "invalid", InvalidCodeValue,
			"The provided type is not a supported pointer type").Wrap(err)
	case errors.Is(err, keys.ErrMissingField):
		return New(http.StatusBadRequest, "invalid", BadRequest,
			"A required identifying field is missing").Wrap(err)
	default:
		return internal(err)
	}
}

// Internal is the opaque 500 outcome.
func Internal() *Error {
	return New(http.StatusInternalServerError, "exception", InternalServerError,
		"There was an unexpected internal server error")
}

func internal(cause error) *Error {
	return Internal().Wrap(cause)
}
