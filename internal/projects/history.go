package projects

import (
	"net/http"
	"strconv"

	"github.com/pactum-saas/pactum-web/internal/pactum"
)

const defaultLogLimit = 100

var logEntityTypes = []string{"project", "task", "phase", "payment", "client"}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("tipo")
	valid := entity == ""
	for _, t := range logEntityTypes {
		valid = valid || entity == t
	}
	if !valid {
		entity = ""
	}
	limit := defaultLogLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limite")); err == nil && n > 0 && n <= 500 {
		limit = n
	}
	logs, err := h.api.ActivityLogs(r.Context(), entity, limit)
	h.pages.Warn(r, err)
	h.pages.HTML(w, r, http.StatusOK, "pages/project_activities.html", "Actividad del Proyecto", map[string]any{
		"Logs":        logs,
		"EntityType":  entity,
		"EntityTypes": logEntityTypes,
		"Selector":    h.selector(r),
	})
}

func (h *Handler) reassignments(w http.ResponseWriter, r *http.Request) {
	history, err := h.api.ReassignmentHistory(r.Context())
	h.pages.Warn(r, err)
	if history == nil {
		history = []pactum.Reassignment{}
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/reassignments.html", "Historial de Reasignaciones", map[string]any{
		"History": history,
	})
}
