package crm

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
)

// Activity vocabularies of the Pactum API.
const (
	ActivityPending    = "pendiente"
	ActivityInProgress = "en_progreso"
	ActivityCompleted  = "completada"
)

var (
	ActivityTypes      = []string{"llamada", "reunion", "tarea", "seguimiento", "email"}
	ActivityStatuses   = []string{ActivityPending, ActivityInProgress, ActivityCompleted}
	ActivityPriorities = []string{"baja", "media", "alta"}
)

type activityForm struct {
	Title       string `validate:"required,min=2,max=200"`
	Description string `validate:"max=2000"`
	Type        string `validate:"required,oneof=llamada reunion tarea seguimiento email"`
	ClientID    string
	AssignedTo  string
	StartDate   string `validate:"required"`
	EndDate     string
	Status      string `validate:"required,oneof=pendiente en_progreso completada"`
	Priority    string `validate:"required,oneof=baja media alta"`
}

func activityFormFrom(r *http.Request) activityForm {
	form := activityForm{
		Title:       trimmed(r, "title"),
		Description: trimmed(r, "description"),
		Type:        r.PostFormValue("type"),
		ClientID:    r.PostFormValue("client_id"),
		AssignedTo:  r.PostFormValue("assigned_to"),
		StartDate:   r.PostFormValue("start_date"),
		EndDate:     r.PostFormValue("end_date"),
		Status:      r.PostFormValue("status"),
		Priority:    r.PostFormValue("priority"),
	}
	if form.Type == "" {
		form.Type = "tarea"
	}
	if form.Status == "" {
		form.Status = ActivityPending
	}
	if form.Priority == "" {
		form.Priority = "media"
	}
	return form
}

func activityFormOf(a pactum.Activity) activityForm {
	return activityForm{
		Title:       a.Title,
		Description: a.Description,
		Type:        a.Type,
		ClientID:    a.ClientID,
		AssignedTo:  a.AssignedTo,
		StartDate:   a.StartDate,
		EndDate:     a.EndDate,
		Status:      a.Status,
		Priority:    a.Priority,
	}
}

func (f activityForm) input() pactum.ActivityInput {
	return pactum.ActivityInput{
		Title:       f.Title,
		Description: f.Description,
		Type:        f.Type,
		ClientID:    f.ClientID,
		AssignedTo:  f.AssignedTo,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		Status:      f.Status,
		Priority:    f.Priority,
		Completed:   f.Status == ActivityCompleted,
	}
}

// filterFrom keeps only known filter values.
func filterFrom(q url.Values) pactum.ActivityFilter {
	filter := pactum.ActivityFilter{ClientID: q.Get("cliente")}
	if s := q.Get("estado"); slices.Contains(ActivityStatuses, s) {
		filter.Status = s
	}
	if t := q.Get("tipo"); slices.Contains(ActivityTypes, t) {
		filter.Type = t
	}
	return filter
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	h.renderActivities(w, r, http.StatusOK, activityForm{Type: "tarea", Status: ActivityPending, Priority: "media"}, nil)
}

func (h *Handler) renderActivities(w http.ResponseWriter, r *http.Request, status int, form activityForm, errs map[string]string) {
	ctx := r.Context()
	filter := filterFrom(r.URL.Query())
	var (
		g                         errgroup.Group
		activities                []pactum.Activity
		clients                   []pactum.Client
		users                     []pactum.CompanyUser
		actErr, clientsErr, usErr error
	)
	g.Go(func() error {
		activities, actErr = h.api.ListActivities(ctx, filter)
		return nil
	})
	g.Go(func() error {
		clients, clientsErr = h.api.ListClients(ctx)
		return nil
	})
	g.Go(func() error {
		users, usErr = h.api.ListAssignableUsers(ctx)
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{actErr, clientsErr, usErr} {
		if !h.pages.Warn(r, err) {
			h.pages.Fail(w, r, err, rbac.PathDashboard)
			return
		}
	}
	h.pages.HTML(w, r, status, "pages/activities.html", "Actividades", map[string]any{
		"Activities": activities,
		"Clients":    clients,
		"Users":      users,
		"Filter":     filter,
		"Types":      ActivityTypes,
		"Statuses":   ActivityStatuses,
		"Priorities": ActivityPriorities,
		"Form":       form,
		"Errors":     errs,
	})
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := activityFormFrom(r)
	if errs := h.validate(form); len(errs) > 0 {
		h.renderActivities(w, r, http.StatusBadRequest, form, errs)
		return
	}
	if _, err := h.api.CreateActivity(r.Context(), form.input()); err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			h.renderActivities(w, r, status, form, map[string]string{"general": msg})
		}
		return
	}
	h.pages.Flash(r, "success", "Actividad creada")
	h.pages.Redirect(w, r, rbac.PathActivities)
}

func (h *Handler) editActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	activity, err := h.api.GetActivity(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathActivities)
		return
	}
	h.renderActivityForm(w, r, http.StatusOK, id, activityFormOf(activity), nil)
}

func (h *Handler) renderActivityForm(w http.ResponseWriter, r *http.Request, status int, id string, form activityForm, errs map[string]string) {
	ctx := r.Context()
	var (
		g                 errgroup.Group
		clients           []pactum.Client
		users             []pactum.CompanyUser
		clientsErr, usErr error
	)
	g.Go(func() error {
		clients, clientsErr = h.api.ListClients(ctx)
		return nil
	})
	g.Go(func() error {
		users, usErr = h.api.ListAssignableUsers(ctx)
		return nil
	})
	_ = g.Wait()
	h.pages.Warn(r, clientsErr)
	h.pages.Warn(r, usErr)
	h.pages.HTML(w, r, status, "pages/activity_form.html", "Editar actividad", map[string]any{
		"ID":         id,
		"Form":       form,
		"Errors":     errs,
		"Clients":    clients,
		"Users":      users,
		"Types":      ActivityTypes,
		"Statuses":   ActivityStatuses,
		"Priorities": ActivityPriorities,
	})
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := activityFormFrom(r)
	if errs := h.validate(form); len(errs) > 0 {
		h.renderActivityForm(w, r, http.StatusBadRequest, id, form, errs)
		return
	}
	if _, err := h.api.UpdateActivity(r.Context(), id, form.input()); err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			h.renderActivityForm(w, r, status, id, form, map[string]string{"general": msg})
		}
		return
	}
	h.pages.Flash(r, "success", "Actividad actualizada")
	h.pages.Redirect(w, r, rbac.PathActivities)
}

// toggleActivity flips completion; the status follows it.
func (h *Handler) toggleActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	activity, err := h.api.GetActivity(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathActivities)
		return
	}
	in := activityFormOf(activity).input()
	in.Completed = !activity.Completed
	in.Status = ActivityPending
	message := "Marcada como pendiente"
	if in.Completed {
		in.Status = ActivityCompleted
		message = "Marcada como completada"
	}
	if _, err := h.api.UpdateActivity(r.Context(), id, in); err != nil {
		h.pages.Fail(w, r, err, rbac.PathActivities)
		return
	}
	h.pages.Flash(r, "success", message)
	h.pages.Redirect(w, r, rbac.PathActivities)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.api.DeleteActivity(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.pages.Fail(w, r, err, rbac.PathActivities)
		return
	}
	h.pages.Flash(r, "success", "Actividad eliminada")
	h.pages.Redirect(w, r, rbac.PathActivities)
}
