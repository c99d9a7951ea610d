package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactum-saas/pactum-web/internal/auth"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

type handlerFixture struct {
	handler  *auth.Handler
	manager  *auth.Manager
	sessions *shared.SessionManager
}

func fakePactumAPI(t *testing.T) *pactum.API {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Password != "correcta123" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Credenciales inválidas"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(pactum.LoginResult{
				AccessToken: "tok-" + body.Email,
				User:        shared.Identity{ID: "u1", Name: "Ana", Email: body.Email, Role: shared.RoleUser},
			})
		case "/api/auth/me":
			_ = json.NewEncoder(w).Encode(shared.Identity{ID: "u1", Name: "Ana", Email: "ana@pactum.com", Role: shared.RoleUser})
		case "/api/modules":
			_, _ = w.Write([]byte(`[{"id":"crm","name":"CRM"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return pactum.NewAPI(pactum.Options{BaseURL: srv.URL + "/api", HTTPClient: srv.Client()})
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := fakePactumAPI(t)
	manager := auth.NewManager(auth.ManagerOptions{API: client, Sessions: sessions, Logger: logger})
	pages := &view.Pages{Engine: templates, CSRF: csrf, Logger: logger}
	return &handlerFixture{
		handler:  auth.NewHandler(logger, pages, csrf, client),
		manager:  manager,
		sessions: sessions,
	}
}

// serve runs h behind the session and auth middleware, the way the router does.
func (f *handlerFixture) serve(t *testing.T, h http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	f.manager.Middleware(h).ServeHTTP(res, req)
	require.NoError(t, f.sessions.Commit(ctx, res, req, sess))
	return res, sess
}

func postForm(path string, values url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestLoginPage(t *testing.T) {
	f := newHandlerFixture(t)

	res, sess := f.serve(t, f.handler.ShowLoginForTest, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.NotEmpty(t, sess.Get(shared.CSRFSessionKey))
}

func TestLoginInvalidCredentialsShowsServerDetail(t *testing.T) {
	f := newHandlerFixture(t)
	_, sess := f.serve(t, f.handler.ShowLoginForTest, httptest.NewRequest(http.MethodGet, "/login", nil))

	values := url.Values{"email": {"ana@pactum.com"}, "password": {"mala"}}
	res, loaded := f.serve(t, f.handler.HandleLoginForTest, postForm("/login", values, f.sessions.Cookie(sess.ID)))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Credenciales inválidas")
	assert.Contains(t, res.Body.String(), "ana@pactum.com", "submitted email is kept")
	assert.Empty(t, loaded.Get(shared.KeyToken))
}

func TestLoginValidationErrors(t *testing.T) {
	f := newHandlerFixture(t)

	values := url.Values{"email": {"no-es-email"}, "password": {""}}
	res, _ := f.serve(t, f.handler.HandleLoginForTest, postForm("/login", values, nil))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Ingresa un email válido")
	assert.Contains(t, res.Body.String(), "Este campo es obligatorio")
}

func TestLoginSuccessRedirectsToLanding(t *testing.T) {
	f := newHandlerFixture(t)

	values := url.Values{"email": {"ana@pactum.com"}, "password": {"correcta123"}}
	res, sess := f.serve(t, f.handler.HandleLoginForTest, postForm("/login", values, nil))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/proyecto", res.Header().Get("Location"))
	assert.Equal(t, "tok-ana@pactum.com", sess.Get(shared.KeyToken))
	assert.Contains(t, sess.Get(shared.KeyUser), `"role":"USER"`)
}

func TestLogoutClearsCredential(t *testing.T) {
	f := newHandlerFixture(t)
	values := url.Values{"email": {"ana@pactum.com"}, "password": {"correcta123"}}
	_, sess := f.serve(t, f.handler.HandleLoginForTest, postForm("/login", values, nil))
	require.NotEmpty(t, sess.Get(shared.KeyToken))

	router := newRouter(f)
	res, loaded := f.serve(t, router.ServeHTTP, postForm("/logout", url.Values{}, f.sessions.Cookie(sess.ID)))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))
	assert.Empty(t, loaded.Get(shared.KeyToken))
	assert.Empty(t, loaded.Get(shared.KeyUser))
}

func TestRegisterPageListsModules(t *testing.T) {
	f := newHandlerFixture(t)
	router := newRouter(f)

	res, _ := f.serve(t, router.ServeHTTP, httptest.NewRequest(http.MethodGet, "/registro", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "CRM")
}

func newRouter(f *handlerFixture) http.Handler {
	mux := chi.NewRouter()
	f.handler.MountRoutes(mux)
	f.handler.MountLogout(mux)
	return mux
}
