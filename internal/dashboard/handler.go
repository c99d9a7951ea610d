// Package dashboard serves /dashboard, whose content depends on the role of
// the signed-in identity.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// commentFetches bounds concurrent comment requests on the team dashboard.
const commentFetches = 4

// API is the slice of the Pactum API the dashboards read.
type API interface {
	GlobalMetrics(ctx context.Context) (pactum.GlobalMetrics, error)
	ListCompanies(ctx context.Context) ([]pactum.Company, error)
	ListModules(ctx context.Context) ([]pactum.Module, error)
	DashboardStats(ctx context.Context) (pactum.DashboardStats, error)
	ListTasks(ctx context.Context, filter pactum.TaskFilter) ([]pactum.Task, error)
	ListTaskComments(ctx context.Context, taskID string) ([]pactum.Comment, error)
}

// Handler renders the dashboards.
type Handler struct {
	logger *slog.Logger
	api    API
	pages  *view.Pages
	now    func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api API, pages *view.Pages) *Handler {
	return &Handler{logger: logger, api: api, pages: pages, now: time.Now}
}

// MountRoutes registers GET /dashboard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathDashboard, h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		h.pages.Redirect(w, r, rbac.PathLogin)
		return
	}
	switch id.Role {
	case shared.RoleSuperAdmin:
		h.console(w, r)
	case shared.RoleTeamMember:
		h.team(w, r, id)
	default:
		h.company(w, r)
	}
}

func (h *Handler) console(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		g                      errgroup.Group
		metrics                pactum.GlobalMetrics
		companies              []pactum.Company
		modules                []pactum.Module
		mErr, cErr, modulesErr error
	)
	g.Go(func() error {
		metrics, mErr = h.api.GlobalMetrics(ctx)
		return nil
	})
	g.Go(func() error {
		companies, cErr = h.api.ListCompanies(ctx)
		return nil
	})
	g.Go(func() error {
		modules, modulesErr = h.api.ListModules(ctx)
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{mErr, cErr, modulesErr} {
		if !h.pages.Warn(r, err) {
			h.pages.Fail(w, r, err, rbac.PathHome)
			return
		}
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/dashboard_console.html", "Panel de Administración", map[string]any{
		"Metrics":   metrics,
		"Companies": companies,
		"Modules":   modules,
	})
}

func (h *Handler) company(w http.ResponseWriter, r *http.Request) {
	stats, err := h.api.DashboardStats(r.Context())
	if !h.pages.Warn(r, err) {
		h.pages.Fail(w, r, err, rbac.PathHome)
		return
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/dashboard_company.html", "Dashboard", map[string]any{
		"Stats": stats,
	})
}

func (h *Handler) team(w http.ResponseWriter, r *http.Request, id *shared.Identity) {
	ctx := r.Context()
	window := ParseRange(r.URL.Query().Get("rango"))

	all, err := h.api.ListTasks(ctx, pactum.TaskFilter{})
	if !h.pages.Warn(r, err) {
		h.pages.Fail(w, r, err, rbac.PathHome)
		return
	}
	mine := Mine(all, id.ID)

	comments, err := h.comments(ctx, mine)
	if !h.pages.Warn(r, err) {
		h.pages.Fail(w, r, err, rbac.PathHome)
		return
	}

	stats := ComputeTeamStats(mine, comments, id.ID, window.Since(h.now()))
	h.pages.HTML(w, r, http.StatusOK, "pages/dashboard_team.html", "Mi Dashboard", map[string]any{
		"Stats": stats,
		"Range": window,
		"Tasks": mine,
	})
}

// comments collects the comments of every task. The first failure is
// returned along with whatever was collected.
func (h *Handler) comments(ctx context.Context, tasks []pactum.Task) ([]pactum.Comment, error) {
	perTask := make([][]pactum.Comment, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commentFetches)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			list, err := h.api.ListTaskComments(gctx, t.ID)
			if err != nil {
				return err
			}
			perTask[i] = list
			return nil
		})
	}
	err := g.Wait()
	var out []pactum.Comment
	for _, list := range perTask {
		out = append(out, list...)
	}
	return out, err
}
