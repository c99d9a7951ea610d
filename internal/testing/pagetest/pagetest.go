// Package pagetest runs page handlers behind the session, auth and route
// gate chain the application router uses, against an in-memory Redis.
package pagetest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pactum-saas/pactum-web/internal/auth"
	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

const cookieName = "pactum_test_session"

// Harness bundles the request-scoped infrastructure of a page test.
type Harness struct {
	Redis    *miniredis.Miniredis
	Sessions *shared.SessionManager
	CSRF     *shared.CSRFManager
	Pages    *view.Pages
	Manager  *auth.Manager
	Bus      *events.LocalBus
	Logger   *slog.Logger
	Table    rbac.Table

	identities *identities
}

// New builds a Harness. Templates are the embedded production ones.
func New(t *testing.T) *Harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, cookieName, "test-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("test-csrf")
	engine, err := view.NewEngine()
	require.NoError(t, err)

	ids := &identities{byToken: map[string]shared.Identity{}}
	bus := events.NewLocalBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	return &Harness{
		Redis:    mr,
		Sessions: sessions,
		CSRF:     csrf,
		Pages:    &view.Pages{Engine: engine, CSRF: csrf, Logger: logger, Forced: auth.ForcedFor},
		Manager:  auth.NewManager(auth.ManagerOptions{API: ids, Sessions: sessions, Logger: logger}),
		Bus:      bus,
		Logger:   logger,
		Table:    rbac.NewTable(rbac.DefaultFinanceEmail),

		identities: ids,
	}
}

// SignIn persists a credential for id and returns its session id.
func (h *Harness) SignIn(t *testing.T, id shared.Identity) string {
	t.Helper()
	token := "tok-" + id.ID
	h.identities.set(token, id)

	sess, err := h.Sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	user, err := json.Marshal(id)
	require.NoError(t, err)
	sess.Set(shared.KeyToken, token)
	sess.Set(shared.KeyUser, string(user))
	require.NoError(t, h.Sessions.Persist(context.Background(), sess))
	return sess.ID
}

// Scope points a stored session at a client project.
func (h *Harness) Scope(t *testing.T, sessionID, clientID, projectID string) {
	t.Helper()
	sess := h.Session(t, sessionID)
	sess.Set(shared.KeyClientScope, clientID)
	sess.Set(shared.KeyProjectScope, projectID)
	sess.Set(shared.KeyViewingProject, projectID)
	require.NoError(t, h.Sessions.Persist(context.Background(), sess))
}

// Revoke makes the identity API reject the credential from now on.
func (h *Harness) Revoke(id shared.Identity) {
	h.identities.remove("tok-" + id.ID)
}

// Router mounts routes behind the session, auth and gate middleware.
func (h *Harness) Router(mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(h.session, h.Manager.Middleware, rbac.Middleware{
		Table:    h.Table,
		Logger:   h.Logger,
		Sessions: auth.SessionReader,
	}.Gate)
	mount(r)
	return r
}

// Do serves req with the session cookie set.
func (h *Harness) Do(handler http.Handler, req *http.Request, sessionID string) *httptest.ResponseRecorder {
	if sessionID != "" {
		req.AddCookie(h.Sessions.Cookie(sessionID))
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

// Session reloads a stored session.
func (h *Harness) Session(t *testing.T, sessionID string) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(h.Sessions.Cookie(sessionID))
	sess, err := h.Sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

// Flashes drains the queued flash messages of a stored session.
func (h *Harness) Flashes(t *testing.T, sessionID string) []string {
	t.Helper()
	sess := h.Session(t, sessionID)
	var out []string
	for msg := sess.PopFlash(); msg != nil; msg = sess.PopFlash() {
		out = append(out, msg.Message)
	}
	return out
}

func (h *Harness) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, err := h.Sessions.Load(ctx, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		ctx = shared.ContextWithSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
		_ = h.Sessions.Persist(context.WithoutCancel(ctx), sess)
	})
}

// Form builds a url-encoded POST.
func Form(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Get builds a GET request.
func Get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

type identities struct {
	mu      sync.Mutex
	byToken map[string]shared.Identity
}

func (i *identities) set(token string, id shared.Identity) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.byToken[token] = id
}

func (i *identities) remove(token string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.byToken, token)
}

func (i *identities) MeWithToken(_ context.Context, token string) (shared.Identity, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.byToken[token]
	if !ok {
		return shared.Identity{}, &pactum.RejectedError{Op: "auth.me", Status: http.StatusUnauthorized}
	}
	return id, nil
}

func (i *identities) Login(context.Context, string, string) (pactum.LoginResult, error) {
	return pactum.LoginResult{}, &pactum.RejectedError{Op: "auth.login", Status: http.StatusUnauthorized}
}

func (i *identities) RegisterCompany(context.Context, pactum.CompanyRegistration) (pactum.LoginResult, error) {
	return pactum.LoginResult{}, &pactum.RejectedError{Op: "auth.register", Status: http.StatusBadRequest}
}
