// Package crm serves the company administrator's clients and activities.
package crm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// API is the slice of the Pactum API used by the CRM pages.
type API interface {
	ListClients(ctx context.Context) ([]pactum.Client, error)
	GetClient(ctx context.Context, id string) (pactum.Client, error)
	CreateClient(ctx context.Context, in pactum.ClientInput) (pactum.Client, error)
	UpdateClient(ctx context.Context, id string, in pactum.ClientInput) (pactum.Client, error)
	DeleteClient(ctx context.Context, id string) error
	ListActivities(ctx context.Context, filter pactum.ActivityFilter) ([]pactum.Activity, error)
	GetActivity(ctx context.Context, id string) (pactum.Activity, error)
	CreateActivity(ctx context.Context, in pactum.ActivityInput) (pactum.Activity, error)
	UpdateActivity(ctx context.Context, id string, in pactum.ActivityInput) (pactum.Activity, error)
	DeleteActivity(ctx context.Context, id string) error
	ListAssignableUsers(ctx context.Context) ([]pactum.CompanyUser, error)
}

// Handler serves /clientes and /actividades.
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

// MountRoutes registers CRM routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathClients, h.clients)
	r.Post(rbac.PathClients, h.createClient)
	r.Get(rbac.PathClients+"/{id}/editar", h.editClient)
	r.Post(rbac.PathClients+"/{id}/editar", h.updateClient)
	r.Post(rbac.PathClients+"/{id}/eliminar", h.deleteClient)

	r.Get(rbac.PathActivities, h.activities)
	r.Post(rbac.PathActivities, h.createActivity)
	r.Get(rbac.PathActivities+"/{id}/editar", h.editActivity)
	r.Post(rbac.PathActivities+"/{id}/editar", h.updateActivity)
	r.Post(rbac.PathActivities+"/{id}/completar", h.toggleActivity)
	r.Post(rbac.PathActivities+"/{id}/eliminar", h.deleteActivity)
}

func (h *Handler) validate(form any) map[string]string {
	return view.FieldErrors(h.validator.Struct(form))
}

func trimmed(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}
