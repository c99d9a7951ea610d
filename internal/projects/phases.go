package projects

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/view"
)

var phaseStatuses = []string{PhasePending, PhaseInProgress, PhaseDone}

func (h *Handler) phases(w http.ResponseWriter, r *http.Request) {
	project, ok := h.withProject(w, r, "Fases")
	if !ok {
		return
	}
	phases, err := h.api.ListPhases(r.Context(), project.ID)
	h.pages.Warn(r, err)
	h.pages.HTML(w, r, http.StatusOK, "pages/phases.html", "Fases del Proyecto", map[string]any{
		"Project":  project,
		"Phases":   phases,
		"Stats":    CountPhases(phases),
		"Statuses": phaseStatuses,
		"Admin":    isAdmin(r),
		"Selector": h.selector(r),
	})
}

type phaseForm struct {
	Status   string  `validate:"required,oneof=pendiente en_progreso completado"`
	Progress float64 `validate:"gte=0,lte=100"`
}

func (h *Handler) updatePhase(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		h.pages.Flash(r, "error", "No tienes permisos para esta acción")
		h.pages.Redirect(w, r, rbac.PathPhases)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := phaseForm{Status: r.PostFormValue("status")}
	if raw := strings.TrimSpace(r.PostFormValue("progress")); raw != "" {
		progress, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			progress = -1
		}
		form.Progress = progress
	}
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.pages.Flash(r, "error", view.FirstError(errs))
		h.pages.Redirect(w, r, rbac.PathPhases)
		return
	}
	update := pactum.PhaseUpdate{Status: &form.Status}
	if r.PostFormValue("progress") != "" {
		update.Progress = &form.Progress
	}
	phase, err := h.api.UpdatePhase(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathPhases)
		return
	}
	h.publish(r, events.Event{Topic: events.TopicProjectUpdated, ProjectID: phase.ProjectID})
	h.pages.Flash(r, "success", "Fase actualizada")
	h.pages.Redirect(w, r, rbac.PathPhases)
}

func (h *Handler) approvePhase(w http.ResponseWriter, r *http.Request) {
	if err := h.api.ApprovePhase(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.pages.Fail(w, r, err, rbac.PathPhases)
		return
	}
	h.publish(r, events.Event{Topic: events.TopicProjectUpdated, ProjectID: scopeOf(r).ProjectID})
	h.pages.Flash(r, "success", "Fase aprobada")
	h.pages.Redirect(w, r, rbac.PathPhases)
}

func (h *Handler) commentPhase(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(r.PostFormValue("text"))
	if text == "" {
		h.pages.Flash(r, "error", "Escribe un comentario")
		h.pages.Redirect(w, r, rbac.PathPhases)
		return
	}
	if err := h.api.CommentPhase(r.Context(), chi.URLParam(r, "id"), text); err != nil {
		h.pages.Fail(w, r, err, rbac.PathPhases)
		return
	}
	h.pages.Flash(r, "success", "Comentario agregado")
	h.pages.Redirect(w, r, rbac.PathPhases)
}
