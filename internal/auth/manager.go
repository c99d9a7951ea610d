package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// API is the slice of the Pactum API the session store depends on.
type API interface {
	Login(ctx context.Context, email, password string) (pactum.LoginResult, error)
	RegisterCompany(ctx context.Context, in pactum.CompanyRegistration) (pactum.LoginResult, error)
	MeWithToken(ctx context.Context, token string) (shared.Identity, error)
}

// SessionPersister writes a session to its backing store before the response
// commits, and reads other requests' sessions back. *shared.SessionManager
// satisfies it.
type SessionPersister interface {
	Persist(ctx context.Context, sess *shared.Session) error
	Lookup(ctx context.Context, id string) (*shared.Session, error)
}

// LogoutRecorder counts forced logouts.
type LogoutRecorder interface {
	IncForcedLogout()
}

// Manager builds one Store per request and shares the cross-request state.
type Manager struct {
	api      API
	sessions SessionPersister
	logger   *slog.Logger
	recorder LogoutRecorder
	collapse singleflight.Group
	now      func() time.Time
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	API      API
	Sessions SessionPersister
	Logger   *slog.Logger
	Recorder LogoutRecorder
	Now      func() time.Time
}

// NewManager constructs a Manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		api:      opts.API,
		sessions: opts.Sessions,
		logger:   logger,
		recorder: opts.Recorder,
		now:      now,
	}
}

// NewStore wraps sess. A nil session yields a permanently anonymous Store.
func (m *Manager) NewStore(sess *shared.Session) *Store {
	return &Store{manager: m, sess: sess}
}

// Middleware binds a restored Store and its credentials to every request.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := m.NewStore(shared.SessionFromContext(r.Context()))
		ctx := ContextWithStore(r.Context(), store)
		ctx = pactum.WithCredentials(ctx, store)
		store.Restore(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) persist(ctx context.Context, sess *shared.Session) {
	if m.sessions == nil || sess == nil {
		return
	}
	if err := m.sessions.Persist(context.WithoutCancel(ctx), sess); err != nil {
		m.logger.Error("persist session", slog.String("session_id", sess.ID), slog.Any("error", err))
	}
}

type storeContextKey struct{}

// ContextWithStore stores the request Store in ctx.
func ContextWithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// StoreFromContext returns the Store bound to ctx, if any.
func StoreFromContext(ctx context.Context) *Store {
	store, _ := ctx.Value(storeContextKey{}).(*Store)
	return store
}

// SessionReader adapts StoreFromContext for the role router.
func SessionReader(ctx context.Context) rbac.SessionReader {
	store := StoreFromContext(ctx)
	if store == nil {
		return nil
	}
	return store
}

// ForcedFor adapts StoreFromContext for view.Pages.
func ForcedFor(r *http.Request) view.ForcedLogout {
	if store := StoreFromContext(r.Context()); store != nil {
		return store
	}
	return nil
}

// SignedIn reports whether the session id still holds a credential. Long-lived
// streams use it to notice a logout made by another request. Store errors
// count as signed in; the next page load settles it.
func (m *Manager) SignedIn(ctx context.Context, id string) bool {
	sess, err := m.sessions.Lookup(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("lookup session", slog.String("session_id", id), slog.Any("error", err))
		}
		return true
	}
	return sess != nil && sess.Get(shared.KeyToken) != ""
}

// EventScope is the bus scope of a signed-in request: its browser session.
func EventScope(r *http.Request) string {
	store := StoreFromContext(r.Context())
	if store == nil || !store.Snapshot().Authenticated() {
		return ""
	}
	return store.SessionID()
}
