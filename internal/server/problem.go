package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound        = "https://palette.dev/problems/not-found"
	ProblemTypeBadRequest      = "https://palette.dev/problems/bad-request"
	ProblemTypeInternal        = "https://palette.dev/problems/internal-error"
	ProblemTypeUnauthorized    = "https://palette.dev/problems/unauthorized"
	ProblemTypePremiumRequired = "https://palette.dev/problems/premium-required"
	ProblemTypeRateLimited     = "https://palette.dev/problems/rate-limited"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type" example:"https://palette.dev/problems/bad-request"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"unknown preset \"nope\""`
	Instance string `json:"instance,omitempty" example:"/api/v1/theme/preferences"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response. The
// problem type is recorded for the access log.
func WriteProblem(w http.ResponseWriter, p Problem) {
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	if n, ok := w.(interface{ noteProblem(string) }); ok {
		n.noteProblem(p.Type)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeNotFound, Status: http.StatusNotFound, Detail: detail, Instance: instance})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeBadRequest, Status: http.StatusBadRequest, Detail: detail, Instance: instance})
}

// PremiumRequired writes a 403 problem response for entitlement refusals.
func PremiumRequired(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypePremiumRequired,
		Title:    "Premium Required",
		Status:   http.StatusForbidden,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Type: ProblemTypeInternal, Status: http.StatusInternalServerError, Detail: detail, Instance: instance})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
