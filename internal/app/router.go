package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pactum-saas/pactum-web/internal/auth"
	"github.com/pactum-saas/pactum-web/internal/console"
	"github.com/pactum-saas/pactum-web/internal/crm"
	"github.com/pactum-saas/pactum-web/internal/dashboard"
	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/finance"
	"github.com/pactum-saas/pactum-web/internal/observability"
	"github.com/pactum-saas/pactum-web/internal/platform/httpx"
	"github.com/pactum-saas/pactum-web/internal/projects"
	"github.com/pactum-saas/pactum-web/internal/public"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/tasks"
	"github.com/pactum-saas/pactum-web/internal/team"
)

// Pinger reports backend reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthManager    *auth.Manager
	Table          rbac.Table
	Metrics        *observability.Metrics
	Health         Pinger

	AuthHandler      *auth.Handler
	PublicHandler    *public.Handler
	DashboardHandler *dashboard.Handler
	ConsoleHandler   *console.Handler
	ProjectsHandler  *projects.Handler
	TasksHandler     *tasks.Handler
	EventsHandler    *events.Handler
	CRMHandler       *crm.Handler
	TeamHandler      *team.Handler
	FinanceHandler   *finance.Handler
}

// NewRouter constructs the chi.Router with the application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	mwConfig := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}
	for _, mw := range MiddlewareStack(mwConfig) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.Health))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	mountStatic(r)

	r.Group(func(r chi.Router) {
		for _, mw := range SessionStack(mwConfig) {
			r.Use(mw)
		}
		r.Use(params.AuthManager.Middleware)

		if params.AuthHandler != nil {
			params.AuthHandler.MountLogout(r)
		}

		var loading http.Handler
		if params.PublicHandler != nil {
			loading = params.PublicHandler.Loading()
		}
		gate := rbac.Middleware{
			Table:    params.Table,
			Logger:   params.Logger,
			Sessions: auth.SessionReader,
			Loading:  loading,
		}

		r.Group(func(r chi.Router) {
			r.Use(gate.Gate)

			// Event streams outlive the request timeout.
			if params.EventsHandler != nil {
				params.EventsHandler.MountRoutes(r)
			}
			if params.TasksHandler != nil {
				params.TasksHandler.MountStream(r)
			}

			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(requestTimeout(params.Config)))
				mountPages(r, params)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if httpx.WantsJSON(r) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		http.Redirect(w, r, rbac.PathHome, http.StatusSeeOther)
	})

	return r
}

func mountPages(r chi.Router, params RouterParams) {
	mounts := []interface{ MountRoutes(chi.Router) }{}
	if params.AuthHandler != nil {
		mounts = append(mounts, params.AuthHandler)
	}
	if params.PublicHandler != nil {
		mounts = append(mounts, params.PublicHandler)
	}
	if params.DashboardHandler != nil {
		mounts = append(mounts, params.DashboardHandler)
	}
	if params.ConsoleHandler != nil {
		mounts = append(mounts, params.ConsoleHandler)
	}
	if params.ProjectsHandler != nil {
		mounts = append(mounts, params.ProjectsHandler)
	}
	if params.TasksHandler != nil {
		mounts = append(mounts, params.TasksHandler)
	}
	if params.CRMHandler != nil {
		mounts = append(mounts, params.CRMHandler)
	}
	if params.TeamHandler != nil {
		mounts = append(mounts, params.TeamHandler)
	}
	if params.FinanceHandler != nil {
		mounts = append(mounts, params.FinanceHandler)
	}
	for _, m := range mounts {
		m.MountRoutes(r)
	}
}

func healthHandler(backend Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if backend != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := backend.Ping(ctx); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
