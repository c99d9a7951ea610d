package events

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-saas/pactum-web/internal/platform/httpx"
)

const defaultHeartbeat = 25 * time.Second

// EventLogout tells the browser its session lost the credential.
const EventLogout = "logout"

// ScopeFunc resolves the scope a browser request listens on.
type ScopeFunc func(r *http.Request) string

// SignedInFunc reports whether the session behind scope still holds a credential.
type SignedInFunc func(ctx context.Context, scope string) bool

// Handler streams bus events to the browser as Server-Sent Events.
type Handler struct {
	bus       Bus
	logger    *slog.Logger
	scope     ScopeFunc
	signedIn  SignedInFunc
	heartbeat time.Duration
}

// NewHandler constructs a Handler. A zero heartbeat uses the default.
func NewHandler(bus Bus, logger *slog.Logger, scope ScopeFunc, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Handler{bus: bus, logger: logger, scope: scope, heartbeat: heartbeat}
}

// WithSignedIn makes every heartbeat check the session first. A stream whose
// session was logged out elsewhere gets a logout event and ends.
func (h *Handler) WithSignedIn(fn SignedInFunc) *Handler {
	h.signedIn = fn
	return h
}

// MountRoutes registers the stream endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/events", h.stream)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	scope := h.scope(r)
	if scope == "" {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	ctx := r.Context()
	ch, err := h.bus.Subscribe(ctx, scope, topicsFromQuery(r)...)
	if err != nil {
		h.logger.Error("subscribe events", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	stream, err := httpx.NewEventStream(w)
	if err != nil {
		h.logger.Error("open event stream", slog.Any("error", err))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.signedIn != nil && !h.signedIn(ctx, scope) {
				h.logger.Debug("event stream session ended", slog.String("scope", scope))
				_ = stream.Send(EventLogout, map[string]string{"reason": "signed_out"})
				return
			}
			if err := stream.Ping(); err != nil {
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := stream.Send(string(evt.Topic), evt); err != nil {
				h.logger.Debug("event stream closed", slog.Any("error", err))
				return
			}
		}
	}
}

// topicsFromQuery reads ?topic=... filters, ignoring unknown names.
func topicsFromQuery(r *http.Request) []Topic {
	var topics []Topic
	for _, raw := range r.URL.Query()["topic"] {
		for _, known := range Topics {
			if raw == string(known) {
				topics = append(topics, known)
			}
		}
	}
	return topics
}
