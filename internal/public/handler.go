// Package public serves the pages that need no session.
package public

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// Handler serves the landing and standalone public pages.
type Handler struct {
	pages *view.Pages
}

// NewHandler constructs a Handler.
func NewHandler(pages *view.Pages) *Handler {
	return &Handler{pages: pages}
}

// MountRoutes registers the public routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathHome, h.home)
	r.Get(rbac.PathPublicContracts, h.contracts)
	r.Get(rbac.PathPublicInvestments, h.investments)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if id := shared.IdentityFromContext(r.Context()); id != nil {
		data["Landing"] = rbac.DefaultLanding(id.Role)
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/home.html", "Pactum", data)
}

func (h *Handler) contracts(w http.ResponseWriter, r *http.Request) {
	h.pages.HTML(w, r, http.StatusOK, "pages/public_contracts.html", "Contratos Pactum", nil)
}

func (h *Handler) investments(w http.ResponseWriter, r *http.Request) {
	h.pages.HTML(w, r, http.StatusOK, "pages/public_investments.html", "Inversiones", nil)
}

// Loading renders the neutral page shown while a session is still being
// restored. The page refreshes itself.
func (h *Handler) Loading() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.Header().Set("Cache-Control", "no-store")
		h.pages.HTML(w, r, http.StatusServiceUnavailable, "pages/loading.html", "Cargando", nil)
	})
}
