package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pactum-saas/pactum-web/internal/platform/httpx"
	"github.com/pactum-saas/pactum-web/internal/shared"
)

// Middleware wires route-table authorization into chi handler chains.
type Middleware struct {
	Table  Table
	Logger *slog.Logger
	// Sessions resolves the session reader attached to the request.
	Sessions func(ctx context.Context) SessionReader
	// Loading renders the neutral page shown while the session resolves.
	Loading http.Handler
}

// Gate applies the route table to every request passing through it.
func (m Middleware) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := m.snapshot(r.Context())
		decision := m.Table.Decide(r.URL.Path, state)
		switch decision.Action {
		case ActionRender:
			ctx := r.Context()
			if state.User != nil {
				ctx = shared.ContextWithIdentity(ctx, state.User)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		case ActionLoading:
			if m.Loading != nil {
				m.Loading.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			if m.Logger != nil {
				m.Logger.Debug("route redirect",
					slog.String("path", r.URL.Path),
					slog.String("location", decision.Location),
					slog.String("state", stateName(StateOf(state))))
			}
			if httpx.WantsJSON(r) {
				// Scripts cannot follow a redirect to a page; they get the
				// target in the problem and navigate themselves.
				status := http.StatusForbidden
				if state.User == nil {
					status = http.StatusUnauthorized
				}
				httpx.WriteProblem(w, httpx.ProblemDetail{Status: status, Location: decision.Location})
				return
			}
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		}
	})
}

func (m Middleware) snapshot(ctx context.Context) shared.SessionState {
	if m.Sessions == nil {
		return shared.SessionState{}
	}
	reader := m.Sessions(ctx)
	if reader == nil {
		return shared.SessionState{}
	}
	return reader.Snapshot()
}

func stateName(s State) string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "authenticated"
	}
}
