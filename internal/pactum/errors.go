package pactum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNetwork wraps failures where the request never reached the API or no
	// response came back.
	ErrNetwork = errors.New("pactum: network failure")
	// ErrAuthenticationExpired is returned after a 401 has cleared the session.
	ErrAuthenticationExpired = errors.New("pactum: authentication expired")
)

// RejectedError is a 4xx/5xx answer carrying the API's own detail.
type RejectedError struct {
	Op     string
	Status int
	Detail string
	Body   []byte
}

func (e *RejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("pactum: %s rejected with status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("pactum: %s rejected with status %d", e.Op, e.Status)
}

// Kind groups failures by how the UI reacts to them.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindAuthExpired
	KindNotFound
	KindServer
	KindNetwork
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindAuthExpired:
		return "auth_expired"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by API into a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, ErrAuthenticationExpired) {
		return KindAuthExpired
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		switch rejected.Status {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity,
			http.StatusUnauthorized, http.StatusForbidden:
			return KindValidation
		case http.StatusNotFound:
			return KindNotFound
		default:
			return KindServer
		}
	}
	if errors.Is(err, ErrNetwork) {
		return KindNetwork
	}
	return KindServer
}

// Generic user-facing messages.
const (
	MsgGeneric     = "No se pudo completar la operación"
	MsgNetwork     = "No se pudo conectar con el servidor"
	MsgNotFound    = "El recurso solicitado no existe"
	MsgAuthExpired = "Tu sesión expiró, inicia sesión de nuevo"
)

// UserMessage returns the text shown in a flash for err. Validation failures
// surface the server's detail verbatim.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindValidation:
		var rejected *RejectedError
		if errors.As(err, &rejected) && rejected.Detail != "" {
			return rejected.Detail
		}
		return MsgGeneric
	case KindAuthExpired:
		return MsgAuthExpired
	case KindNotFound:
		return MsgNotFound
	case KindNetwork:
		return MsgNetwork
	default:
		return MsgGeneric
	}
}

// parseDetail extracts FastAPI style {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Detail) == 0 {
		return envelope.Message
	}
	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
