// Package validate turns an untyped DocumentReference into a typed resource
// plus the ordered list of issues that stop it being accepted.
//
// Validation runs a fixed sequence of stages. A parse failure or a missing
// required field halts the run; every later stage records its issues and lets
// the next stage run. Issue order is stable: callers rely on issues[0].
package validate

import (
	"log/slog"

	"github.com/jacentio/docpointer/fhir"
	"github.com/jacentio/docpointer/outcome"
)

// Result is the outcome of one validation run.
type Result struct {
	// Resource is the parsed resource, or nil when it could not be parsed.
	Resource *fhir.DocumentReference
	Issues   []fhir.OperationOutcomeIssue
}

// IsValid reports whether no error or fatal issue was recorded. Warnings and
// information do not fail a resource.
func (r *Result) IsValid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == fhir.SeverityError || issue.Severity == fhir.SeverityFatal {
			return false
		}
	}
	return true
}

// stage inspects the run and reports whether validation continues.
type stage func(*validation) bool

// validation is the state threaded through the stages.
type validation struct {
	raw    map[string]any
	result *Result
}

func (v *validation) doc() *fhir.DocumentReference {
	return v.result.Resource
}

func (v *validation) add(code string, concept outcome.Concept, diagnostics string, field ...string) {
	v.result.Issues = append(v.result.Issues, outcome.NewIssue(code, &concept, diagnostics, field...))
}

// Validator checks DocumentReference resources. It is safe for concurrent use.
type Validator struct {
	stages []stage
	logger *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger. Only issue counts and codes are logged.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New returns a Validator running the standard stages.
func New(opts ...Option) *Validator {
	v := &Validator{
		stages: []stage{
			parseResource,
			requireFields,
			noExtraFields,
			checkIdentifiers,
			checkCategory,
			checkContentExtensions,
			checkRelatesTo,
			checkRelatedASID,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every stage over data, the decoded JSON body of a request.
func (v *Validator) Validate(data map[string]any) *Result {
	run := &validation{raw: data, result: &Result{Issues: []fhir.OperationOutcomeIssue{}}}
	for _, s := range v.stages {
		if !s(run) {
			break
		}
	}

	if !run.result.IsValid() {
		first := run.result.Issues[0]
		v.logger.Debug("document reference rejected",
			"issues", len(run.result.Issues),
			"first_code", first.Code,
			"first_expression", first.Expression)
	}
	return run.result
}
