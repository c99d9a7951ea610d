// Package team serves the company administrator's user management panel.
package team

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// projectUpdates bounds concurrent project assignment writes.
const projectUpdates = 4

// API is the slice of the Pactum API used by the admin panel.
type API interface {
	ListCompanyUsers(ctx context.Context) ([]pactum.CompanyUser, error)
	CreateCompanyUser(ctx context.Context, in pactum.CompanyUserInput) (pactum.CompanyUser, error)
	UpdateCompanyUser(ctx context.Context, id string, in pactum.CompanyUserInput) (pactum.CompanyUser, error)
	DeleteCompanyUser(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]pactum.Project, error)
	UpdateProject(ctx context.Context, id string, in pactum.ProjectUpdate) (pactum.Project, error)
	ActivityLogs(ctx context.Context, entityType string, limit int) ([]pactum.ActivityLog, error)
}

// Handler serves /admin.
type Handler struct {
	logger    *slog.Logger
	api       API
	pages     *view.Pages
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api API, pages *view.Pages) *Handler {
	return &Handler{logger: logger, api: api, pages: pages, validator: validator.New()}
}

// MountRoutes registers the admin panel routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathAdmin, h.users)
	r.Post(rbac.PathAdmin+"/usuarios", h.createUser)
	r.Post(rbac.PathAdmin+"/usuarios/{id}", h.updateUser)
	r.Post(rbac.PathAdmin+"/usuarios/{id}/eliminar", h.deleteUser)
	r.Get(rbac.PathAdmin+"/actividad", h.activityLog)
}

// Roles an administrator may grant.
var Roles = []shared.Role{shared.RoleTeamMember, shared.RoleUser, shared.RoleCompanyAdmin}

type userForm struct {
	Name     string `validate:"required,min=2,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"omitempty,min=6"`
	Role     string `validate:"required,oneof=TEAM_MEMBER USER COMPANY_ADMIN"`
	Projects []string
}

func userFormFrom(r *http.Request) userForm {
	return userForm{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
		Projects: r.PostForm["projects"],
	}
}

// assignable reports whether the role works on assigned projects only.
func (f userForm) assignable() bool {
	return f.Role == string(shared.RoleTeamMember) || f.Role == string(shared.RoleUser)
}

func (f userForm) input() pactum.CompanyUserInput {
	in := pactum.CompanyUserInput{
		Name:             f.Name,
		Email:            f.Email,
		Password:         f.Password,
		Role:             shared.Role(f.Role),
		AssignedProjects: []string{},
	}
	if f.assignable() && f.Projects != nil {
		in.AssignedProjects = f.Projects
	}
	return in
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, http.StatusOK, userForm{Role: string(shared.RoleTeamMember)}, nil)
}

func (h *Handler) renderUsers(w http.ResponseWriter, r *http.Request, status int, form userForm, errs map[string]string) {
	ctx := r.Context()
	var (
		g                 errgroup.Group
		users             []pactum.CompanyUser
		projects          []pactum.Project
		usersErr, projErr error
	)
	g.Go(func() error {
		users, usersErr = h.api.ListCompanyUsers(ctx)
		return nil
	})
	g.Go(func() error {
		projects, projErr = h.api.ListProjects(ctx)
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{usersErr, projErr} {
		if !h.pages.Warn(r, err) {
			h.pages.Fail(w, r, err, rbac.PathDashboard)
			return
		}
	}
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	h.pages.HTML(w, r, status, "pages/admin.html", "Administración", map[string]any{
		"Users":        users,
		"Projects":     projects,
		"ProjectNames": names,
		"Roles":        Roles,
		"Form":         form,
		"Errors":       errs,
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := userFormFrom(r)
	errs := view.FieldErrors(h.validator.Struct(form))
	if form.Password == "" {
		errs["Password"] = "Este campo es obligatorio"
	}
	if len(errs) > 0 {
		form.Password = ""
		h.renderUsers(w, r, http.StatusBadRequest, form, errs)
		return
	}
	user, err := h.api.CreateCompanyUser(r.Context(), form.input())
	if err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			form.Password = ""
			h.renderUsers(w, r, status, form, map[string]string{"general": msg})
		}
		return
	}
	h.assign(r, user.ID, form)
	h.pages.Flash(r, "success", "Usuario creado")
	h.pages.Redirect(w, r, rbac.PathAdmin)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := userFormFrom(r)
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.pages.Flash(r, "error", view.FirstError(errs))
		h.pages.Redirect(w, r, rbac.PathAdmin)
		return
	}
	if _, err := h.api.UpdateCompanyUser(r.Context(), id, form.input()); err != nil {
		h.pages.Fail(w, r, err, rbac.PathAdmin)
		return
	}
	h.assign(r, id, form)
	h.pages.Flash(r, "success", "Usuario actualizado")
	h.pages.Redirect(w, r, rbac.PathAdmin)
}

// assign adds userID to the assigned users of every selected project that
// does not list it yet. Failures become a flash; the user itself was saved.
func (h *Handler) assign(r *http.Request, userID string, form userForm) {
	if !form.assignable() || len(form.Projects) == 0 || userID == "" {
		return
	}
	ctx := r.Context()
	projects, err := h.api.ListProjects(ctx)
	if err != nil {
		h.pages.Warn(r, err)
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectUpdates)
	for _, p := range projects {
		if !slices.Contains(form.Projects, p.ID) || slices.Contains(p.AssignedUsers, userID) {
			continue
		}
		p := p
		users := append(slices.Clone(p.AssignedUsers), userID)
		g.Go(func() error {
			_, err := h.api.UpdateProject(gctx, p.ID, pactum.ProjectUpdate{AssignedUsers: users})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Warn("assign projects", slog.String("user_id", userID), slog.Any("error", err))
		h.pages.Warn(r, err)
	}
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if current := shared.IdentityFromContext(r.Context()); current != nil && current.ID == id {
		h.pages.Flash(r, "error", "No puedes eliminar tu propio usuario")
		h.pages.Redirect(w, r, rbac.PathAdmin)
		return
	}
	if err := h.api.DeleteCompanyUser(r.Context(), id); err != nil {
		h.pages.Fail(w, r, err, rbac.PathAdmin)
		return
	}
	h.pages.Flash(r, "success", "Usuario eliminado")
	h.pages.Redirect(w, r, rbac.PathAdmin)
}

// EntityTypes are the audit entity filters offered on the activity log.
var EntityTypes = []string{"client", "activity", "project", "task", "user"}

func (h *Handler) activityLog(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("tipo")
	if !slices.Contains(EntityTypes, entity) {
		entity = ""
	}
	logs, err := h.api.ActivityLogs(r.Context(), entity, 100)
	if !h.pages.Warn(r, err) {
		h.pages.Fail(w, r, err, rbac.PathAdmin)
		return
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/activity_log.html", "Registro de actividad", map[string]any{
		"Logs":        logs,
		"EntityType":  entity,
		"EntityTypes": EntityTypes,
	})
}
