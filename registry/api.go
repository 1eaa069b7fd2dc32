package registry

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/outcome"
)

// Search parameters.
const (
	ParamSubject   = "subject:identifier"
	ParamCustodian = "custodian:identifier"
	ParamType      = "type"
	ParamSummary   = "_summary"
)

// Handler serves the DocumentReference API over API Gateway proxy events.
type Handler struct {
	service *Service
}

// NewHandler wraps service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Handle routes a proxy request:
//
//	POST   /DocumentReference
//	GET    /DocumentReference?subject:identifier=...[&custodian:identifier=...][&type=...][&_summary=count]
//	GET    /DocumentReference/{id}
//	PUT    /DocumentReference/{id}
//	DELETE /DocumentReference/{id}
//
// Failures are rendered as OperationOutcome bodies, so the returned error is
// always nil.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	rawID, hasID := req.PathParameters["id"]
	id, err := url.PathUnescape(rawID)
	if err != nil {
		return outcome.New(http.StatusBadRequest, "invalid", outcome.InvalidParameter,
			"The id path parameter is not correctly encoded", "id").APIGatewayResponse(), nil
	}

	switch {
	case req.HTTPMethod == http.MethodPost && !hasID:
		p, err := h.service.Create(ctx, []byte(req.Body))
		if err != nil {
			return render(err), nil
		}
		return outcome.Response(http.StatusCreated, Message{Message: "Resource created", ID: p.ID}), nil

	case req.HTTPMethod == http.MethodGet && !hasID:
		return h.search(ctx, req), nil

	case req.HTTPMethod == http.MethodGet:
		p, err := h.service.Read(ctx, id)
		if err != nil {
			return render(err), nil
		}
		doc, err := p.Resource()
		if err != nil {
			return render(h.service.fail(ctx, "read", id, err)), nil
		}
		return outcome.Response(http.StatusOK, doc), nil

	case req.HTTPMethod == http.MethodPut && hasID:
		p, err := h.service.Update(ctx, id, []byte(req.Body))
		if err != nil {
			return render(err), nil
		}
		return outcome.Response(http.StatusOK, Message{Message: "Resource updated", ID: p.ID}), nil

	case req.HTTPMethod == http.MethodDelete && hasID:
		if err := h.service.Delete(ctx, id); err != nil {
			return render(err), nil
		}
		return outcome.Response(http.StatusOK, Message{Message: "Resource removed", ID: id}), nil
	}

	return outcome.New(http.StatusMethodNotAllowed, "not-supported", outcome.BadRequest,
		"The requested operation is not supported").APIGatewayResponse(), nil
}

// Message is the body of a successful write.
type Message struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func (h *Handler) search(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	nhsNumber, err := identifierValue(queryParam(req, ParamSubject), fhir.SystemNHSNumber, ParamSubject)
	if err != nil {
		return render(err)
	}
	custodian, err := identifierValue(queryParam(req, ParamCustodian), fhir.SystemODS, ParamCustodian)
	if err != nil {
		return render(err)
	}
	pointerTypes := queryList(req, ParamType)

	var bundle *fhir.Bundle
	if queryParam(req, ParamSummary) == "count" {
		bundle, err = h.service.Count(ctx, nhsNumber, pointerTypes)
	} else {
		bundle, err = h.service.Search(ctx, nhsNumber, custodian, pointerTypes)
	}
	if err != nil {
		return render(err)
	}
	return outcome.Response(http.StatusOK, bundle)
}

// identifierValue accepts "system|value" with the expected system, or a bare
// value. An empty parameter yields "".
func identifierValue(param, system, name string) (string, error) {
	if param == "" {
		return "", nil
	}
	gotSystem, value, found := strings.Cut(param, "|")
	if !found {
		return param, nil
	}
	if gotSystem != system {
		return "", outcome.New(http.StatusBadRequest, "invalid", outcome.InvalidIdentifierSystem,
			"Invalid identifier system in the search parameters, expected '"+system+"'", name)
	}
	return value, nil
}

func queryParam(req events.APIGatewayProxyRequest, name string) string {
	if values := req.MultiValueQueryStringParameters[name]; len(values) > 0 {
		return values[0]
	}
	return req.QueryStringParameters[name]
}

// queryList collects a repeatable, comma-separated parameter.
func queryList(req events.APIGatewayProxyRequest, name string) []string {
	values := req.MultiValueQueryStringParameters[name]
	if len(values) == 0 {
		if v, ok := req.QueryStringParameters[name]; ok {
			values = []string{v}
		}
	}

	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func render(err error) events.APIGatewayProxyResponse {
	return outcome.FromError(err).APIGatewayResponse()
}
