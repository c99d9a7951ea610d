// Package httpx answers script-driven requests with JSON and RFC7807 problem
// details, and streams server-sent events.
package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pactum-saas/pactum-web/internal/pactum"
)

// statusClientClosed is logged by proxies for requests the client abandoned.
const statusClientClosed = 499

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Location string `json:"location,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	WriteProblem(w, ProblemDetail{Title: title, Status: status, Detail: detail})
}

// WriteProblem sends p. An empty title defaults to the status text.
func WriteProblem(w http.ResponseWriter, p ProblemDetail) {
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WantsJSON reports whether the caller asked for a JSON answer instead of a
// page, either through Accept or the X-Requested-With marker of app scripts.
func WantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "fetch" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") || strings.Contains(accept, "application/problem+json")
}

// ProblemStatus maps a Pactum API failure to the status this server answers with.
func ProblemStatus(err error) int {
	switch pactum.Classify(err) {
	case pactum.KindNone:
		return http.StatusOK
	case pactum.KindValidation:
		return http.StatusBadRequest
	case pactum.KindAuthExpired:
		return http.StatusUnauthorized
	case pactum.KindNotFound:
		return http.StatusNotFound
	case pactum.KindCanceled:
		return statusClientClosed
	default:
		return http.StatusBadGateway
	}
}

// RespondError writes err as problem details. The detail is the same text a
// page would flash. Nothing is written for requests the client abandoned.
func RespondError(w http.ResponseWriter, err error) {
	status := ProblemStatus(err)
	if status == statusClientClosed {
		return
	}
	title := ""
	if status == http.StatusBadRequest {
		title = "Validation Failed"
	}
	WriteProblem(w, ProblemDetail{Title: title, Status: status, Detail: pactum.UserMessage(err)})
}
