package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC7807 error body, served as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// TraceID is the request ID of the failed request.
	TraceID string `json:"traceId"`

	// Kind is the lookup error kind for failed lookups, e.g. PLACE_NOT_FOUND.
	Kind string `json:"kind,omitempty"`

	// UpstreamStatus is the HTTP status an upstream answered with, when the
	// failure came from one.
	UpstreamStatus int `json:"upstreamStatus,omitempty"`

	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError is a validation error on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Field error codes.
const (
	CodeRequired   = "REQUIRED"
	CodeInvalid    = "INVALID"
	CodeOutOfRange = "OUT_OF_RANGE"
	CodeUnknown    = "UNKNOWN_KEY"
)

const problemTypeBase = "https://tenkimap.dev/problems/"

// Problem types.
const (
	ProblemTypeValidation       = problemTypeBase + "validation-error"
	ProblemTypeUnauthorized     = problemTypeBase + "unauthorized"
	ProblemTypeForbidden        = problemTypeBase + "forbidden"
	ProblemTypeTLSRequired      = problemTypeBase + "tls-required"
	ProblemTypeNotFound         = problemTypeBase + "not-found"
	ProblemTypePlaceNotFound    = problemTypeBase + "place-not-found"
	ProblemTypeUnsupportedMedia = problemTypeBase + "unsupported-media-type"
	ProblemTypeTooManyRequests  = problemTypeBase + "too-many-requests"
	ProblemTypeInternal         = problemTypeBase + "internal-error"
	ProblemTypeUpstream         = problemTypeBase + "upstream-unavailable"
	ProblemTypeUnavailable      = problemTypeBase + "service-unavailable"
)

// NewProblem creates a Problem.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail sets Detail.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets Instance.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors sets the field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// WithKind sets the lookup error kind.
func (p *Problem) WithKind(kind string) *Problem {
	p.Kind = kind
	return p
}

// Write sends the Problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewUnauthorized creates a 401 problem.
func NewUnauthorized(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, traceID).
		WithDetail(detail)
}

// NewForbidden creates a 403 problem.
func NewForbidden(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeForbidden, "Forbidden", http.StatusForbidden, traceID).
		WithDetail(detail)
}

// NewTLSRequired creates the 403 problem sent for plain-HTTP requests when
// TLS is enforced.
func NewTLSRequired(traceID string) *Problem {
	return NewProblem(ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, traceID).
		WithDetail("This endpoint requires HTTPS")
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID).
		WithDetail(detail)
}

// NewPlaceNotFound creates the 404 problem for a place the geocoder does not
// know.
func NewPlaceNotFound(traceID, detail string) *Problem {
	return NewProblem(ProblemTypePlaceNotFound, "Place not found", http.StatusNotFound, traceID).
		WithDetail(detail)
}

// NewUnsupportedMediaType creates a 415 problem.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType, traceID).
		WithDetail(detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID).
		WithDetail(detail)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID).
		WithDetail(detail)
}

// NewBadGateway creates a 502 problem for a failed upstream call.
// upstreamStatus is zero when the upstream never answered.
func NewBadGateway(traceID, detail string, upstreamStatus int) *Problem {
	p := NewProblem(ProblemTypeUpstream, "Upstream unavailable", http.StatusBadGateway, traceID).
		WithDetail(detail)
	p.UpstreamStatus = upstreamStatus
	return p
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID).
		WithDetail(detail)
}
