package projects

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/auth"
	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// API is the slice of the Pactum API used by project pages.
type API interface {
	ListProjects(ctx context.Context) ([]pactum.Project, error)
	GetProject(ctx context.Context, id string) (pactum.Project, error)
	UpdateProject(ctx context.Context, id string, in pactum.ProjectUpdate) (pactum.Project, error)
	ProjectForClient(ctx context.Context, clientID string) (pactum.Project, bool, error)
	ListClients(ctx context.Context) ([]pactum.Client, error)
	ListTasks(ctx context.Context, filter pactum.TaskFilter) ([]pactum.Task, error)
	ListPhases(ctx context.Context, projectID string) ([]pactum.Phase, error)
	UpdatePhase(ctx context.Context, id string, in pactum.PhaseUpdate) (pactum.Phase, error)
	ApprovePhase(ctx context.Context, id string) error
	CommentPhase(ctx context.Context, id, text string) error
	ListPayments(ctx context.Context, projectID string) ([]pactum.Payment, error)
	UpdatePayment(ctx context.Context, id string, in pactum.PaymentUpdate) (pactum.Payment, error)
	ListContracts(ctx context.Context, projectID string) ([]pactum.Document, error)
	UploadContract(ctx context.Context, projectID, filename string, content io.Reader) (pactum.Document, error)
	ListProjectDocuments(ctx context.Context, projectID string) ([]pactum.Document, error)
	UploadProjectDocument(ctx context.Context, projectID, documentType, filename string, content io.Reader) (pactum.Document, error)
	DeleteProjectDocument(ctx context.Context, projectID, documentID string) error
	ActivityLogs(ctx context.Context, entityType string, limit int) ([]pactum.ActivityLog, error)
	ReassignmentHistory(ctx context.Context) ([]pactum.Reassignment, error)
}

// Handler serves the project pages.
type Handler struct {
	logger    *slog.Logger
	api       API
	bus       events.Bus
	pages     *view.Pages
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api API, bus events.Bus, pages *view.Pages) *Handler {
	return &Handler{
		logger:    logger,
		api:       api,
		bus:       bus,
		pages:     pages,
		validator: validator.New(),
		now:       time.Now,
	}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathProject, h.project)
	r.Post(rbac.PathProject+"/{id}", h.updateProject)
	r.Get(rbac.PathProjectDashboard, h.dashboard)
	r.Post(rbac.PathScope, h.setScope)

	r.Get(rbac.PathPhases, h.phases)
	r.Post(rbac.PathPhases+"/{id}", h.updatePhase)
	r.Post(rbac.PathPhases+"/{id}/aprobar", h.approvePhase)
	r.Post(rbac.PathPhases+"/{id}/comentarios", h.commentPhase)

	r.Get(rbac.PathPayments, h.payments)
	r.Post(rbac.PathPayments+"/{id}", h.updatePayment)

	r.Get(rbac.PathContract, h.contract)
	r.Post(rbac.PathContract, h.uploadContract)
	r.Post(rbac.PathContract+"/documentos", h.uploadDocument)
	r.Post(rbac.PathContract+"/documentos/{id}/eliminar", h.deleteDocument)

	r.Get(rbac.PathProjectActivities, h.activities)
	r.Get(rbac.PathReassignments, h.reassignments)
}

func isAdmin(r *http.Request) bool {
	return shared.IdentityFromContext(r.Context()).HasRole(shared.RoleCompanyAdmin)
}

func scopeOf(r *http.Request) auth.Scope {
	if store := auth.StoreFromContext(r.Context()); store != nil {
		return store.ProjectScope()
	}
	return auth.Scope{}
}

// current resolves the project the request works on. Company administrators
// use their tenant pointer; every other role gets the first project the API
// returns for its credential.
func (h *Handler) current(ctx context.Context, r *http.Request) (pactum.Project, bool, error) {
	if isAdmin(r) {
		scope := scopeOf(r)
		if scope.ProjectID == "" {
			return pactum.Project{}, false, nil
		}
		project, err := h.api.GetProject(ctx, scope.ProjectID)
		if err != nil {
			if pactum.Classify(err) == pactum.KindNotFound {
				return pactum.Project{}, false, nil
			}
			return pactum.Project{}, false, err
		}
		return project, true, nil
	}
	projects, err := h.api.ListProjects(ctx)
	if err != nil || len(projects) == 0 {
		return pactum.Project{}, false, err
	}
	return projects[0], true, nil
}

// withProject resolves the current project or renders the page explaining why
// there is none. It reports false when the handler must stop.
func (h *Handler) withProject(w http.ResponseWriter, r *http.Request, title string) (pactum.Project, bool) {
	project, ok, err := h.current(r.Context(), r)
	if err != nil && !h.pages.Warn(r, err) {
		h.pages.Fail(w, r, err, rbac.PathHome)
		return pactum.Project{}, false
	}
	if ok {
		return project, true
	}
	data := map[string]any{"Admin": isAdmin(r), "Return": r.URL.Path}
	if isAdmin(r) {
		clients, err := h.api.ListClients(r.Context())
		h.pages.Warn(r, err)
		data["Clients"] = clients
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/no_project.html", title, data)
	return pactum.Project{}, false
}

// selector loads what the company administrator's client selector shows.
func (h *Handler) selector(r *http.Request) map[string]any {
	if !isAdmin(r) {
		return nil
	}
	clients, err := h.api.ListClients(r.Context())
	if err != nil {
		h.logger.Debug("list clients for selector", slog.Any("error", err))
	}
	return map[string]any{"Clients": clients, "Current": scopeOf(r).ClientID, "Return": r.URL.Path}
}

func (h *Handler) project(w http.ResponseWriter, r *http.Request) {
	h.renderProject(w, r, http.StatusOK, nil, nil)
}

// renderProject shows the current project. A non-nil form replaces the stored
// values in the edit form.
func (h *Handler) renderProject(w http.ResponseWriter, r *http.Request, status int, form *projectForm, errs map[string]string) {
	project, ok := h.withProject(w, r, "Mi Proyecto")
	if !ok {
		return
	}
	if form == nil {
		form = &projectForm{Name: project.Name, Status: project.Status, EndDate: project.EndDate, Notes: project.Notes}
	}
	phases, err := h.api.ListPhases(r.Context(), project.ID)
	h.pages.Warn(r, err)
	h.pages.HTML(w, r, status, "pages/project.html", project.Name, map[string]any{
		"Project":  project,
		"Form":     form,
		"Errors":   errs,
		"Phases":   phases,
		"Stats":    CountPhases(phases),
		"Selector": h.selector(r),
		"Statuses": []string{ProjectPlanning, ProjectInProgress, ProjectDone, ProjectPaused},
	})
}

type projectForm struct {
	Name    string `validate:"required,min=3,max=200"`
	Status  string `validate:"required,oneof=planificacion en_progreso completado pausado"`
	EndDate string
	Notes   string `validate:"max=2000"`
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		h.pages.Flash(r, "error", "No tienes permisos para esta acción")
		h.pages.Redirect(w, r, rbac.PathProject)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := projectForm{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Status:  r.PostFormValue("status"),
		EndDate: r.PostFormValue("end_date"),
		Notes:   strings.TrimSpace(r.PostFormValue("notes")),
	}
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.renderProject(w, r, http.StatusBadRequest, &form, errs)
		return
	}
	id := chi.URLParam(r, "id")
	update := pactum.ProjectUpdate{Name: &form.Name, Status: &form.Status, Notes: &form.Notes}
	if form.EndDate != "" {
		update.EndDate = &form.EndDate
	}
	project, err := h.api.UpdateProject(r.Context(), id, update)
	if err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			h.renderProject(w, r, status, &form, map[string]string{"general": msg})
		}
		return
	}
	h.publish(r, events.Event{Topic: events.TopicProjectUpdated, ProjectID: project.ID, ClientID: project.ClientID})
	h.pages.Flash(r, "success", "Proyecto actualizado")
	h.pages.Redirect(w, r, rbac.PathProject)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	project, ok := h.withProject(w, r, "Dashboard del Proyecto")
	if !ok {
		return
	}
	ctx := r.Context()
	var (
		g                            errgroup.Group
		tasks                        []pactum.Task
		payments                     []pactum.Payment
		phases                       []pactum.Phase
		tasksErr, paymentsErr, phErr error
	)
	g.Go(func() error {
		tasks, tasksErr = h.api.ListTasks(ctx, pactum.TaskFilter{ProjectID: project.ID})
		return nil
	})
	g.Go(func() error {
		payments, paymentsErr = h.api.ListPayments(ctx, project.ID)
		return nil
	})
	g.Go(func() error {
		phases, phErr = h.api.ListPhases(ctx, project.ID)
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{tasksErr, paymentsErr, phErr} {
		h.pages.Warn(r, err)
	}

	now := h.now()
	h.pages.HTML(w, r, http.StatusOK, "pages/project_dashboard.html", "Dashboard del Proyecto", map[string]any{
		"Project":      project,
		"TaskStats":    CountTasks(tasks),
		"PaymentStats": CountPayments(payments, now),
		"PhaseStats":   CountPhases(phases),
		"Selector":     h.selector(r),
	})
}

// setScope points a company administrator at a client's project and tells
// the visitor's other pages about it.
func (h *Handler) setScope(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	back := safeReturn(r.PostFormValue("return"))
	store := auth.StoreFromContext(r.Context())
	if store == nil {
		h.pages.Redirect(w, r, rbac.PathLogin)
		return
	}

	var scope auth.Scope
	if clientID := strings.TrimSpace(r.PostFormValue("client_id")); clientID != "" {
		project, found, err := h.api.ProjectForClient(r.Context(), clientID)
		if err != nil {
			h.pages.Fail(w, r, err, back)
			return
		}
		if !found {
			h.pages.Flash(r, "error", "El cliente seleccionado no tiene un proyecto asignado")
			h.pages.Redirect(w, r, back)
			return
		}
		scope = auth.Scope{ClientID: clientID, ProjectID: project.ID}
	}

	changed, err := store.SetProjectScope(r.Context(), scope)
	if err != nil {
		h.pages.Flash(r, "error", "No tienes permisos para esta acción")
		h.pages.Redirect(w, r, back)
		return
	}
	if changed {
		h.publish(r, events.Event{Topic: events.TopicTenantScope, ClientID: scope.ClientID, ProjectID: scope.ProjectID})
	}
	h.pages.Redirect(w, r, back)
}

// publish stamps evt with the visitor's scope. Failures are logged.
func (h *Handler) publish(r *http.Request, evt events.Event) {
	if h.bus == nil {
		return
	}
	store := auth.StoreFromContext(r.Context())
	if store == nil {
		return
	}
	evt.Scope = store.SessionID()
	stamped, err := h.bus.Publish(context.WithoutCancel(r.Context()), evt)
	if err != nil {
		h.logger.Warn("publish event", slog.String("topic", string(evt.Topic)), slog.Any("error", err))
		return
	}
	h.logger.Debug("event published",
		slog.String("topic", string(stamped.Topic)),
		slog.Int64("version", stamped.Version),
		slog.String("project_id", stamped.ProjectID))
}

// safeReturn keeps redirects on this site.
func safeReturn(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return rbac.PathProject
	}
	return path
}
