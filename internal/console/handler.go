// Package console serves the super administrator's company management pages.
package console

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// PathCompanies prefixes every console route. It lives under /dashboard so
// the route table admits it; the handlers narrow it to super administrators.
const PathCompanies = rbac.PathDashboard + "/empresas"

// API is the slice of the Pactum API used by the console.
type API interface {
	GetCompany(ctx context.Context, id string) (pactum.Company, error)
	UpdateCompany(ctx context.Context, id string, in pactum.CompanyUpdate) (pactum.Company, error)
	AssignModules(ctx context.Context, companyID string, moduleIDs []string) error
	UpdateSubscription(ctx context.Context, companyID string, in pactum.SubscriptionUpdate) error
	ListModules(ctx context.Context) ([]pactum.Module, error)
}

// Handler serves company detail and the console mutations.
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

// MountRoutes registers the console routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route(PathCompanies+"/{id}", func(r chi.Router) {
		r.Use(superAdminOnly)
		r.Get("/", h.company)
		r.Post("/", h.updateCompany)
		r.Post("/modulos", h.assignModules)
		r.Post("/suscripcion", h.updateSubscription)
	})
}

func superAdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := shared.IdentityFromContext(r.Context())
		if !id.HasRole(shared.RoleSuperAdmin) {
			target := rbac.PathLogin
			if id != nil {
				target = rbac.DefaultLanding(id.Role)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func companyPath(id string) string {
	return PathCompanies + "/" + id
}

func (h *Handler) company(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	var (
		g                  errgroup.Group
		company            pactum.Company
		modules            []pactum.Module
		companyErr, modErr error
	)
	g.Go(func() error {
		company, companyErr = h.api.GetCompany(ctx, id)
		return nil
	})
	g.Go(func() error {
		modules, modErr = h.api.ListModules(ctx)
		return nil
	})
	_ = g.Wait()
	if companyErr != nil {
		h.pages.Fail(w, r, companyErr, rbac.PathDashboard)
		return
	}
	h.pages.Warn(r, modErr)

	active := make(map[string]bool, len(company.ActiveModules))
	for _, m := range company.ActiveModules {
		active[m] = true
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/console_company.html", company.Name, map[string]any{
		"Company":       company,
		"Modules":       modules,
		"Active":        active,
		"CompanyStatus": CompanyStatuses,
		"Subscriptions": SubscriptionStatuses,
		"Plans":         Plans,
	})
}

// Company and subscription vocabularies of the Pactum API.
var (
	CompanyStatuses      = []string{"active", "suspended", "cancelled"}
	SubscriptionStatuses = []string{"trial", "active", "expired", "cancelled"}
	Plans                = []string{"basic", "professional", "enterprise"}
)

type companyForm struct {
	Name           string `validate:"required,min=2,max=200"`
	Email          string `validate:"required,email"`
	Phone          string `validate:"max=30"`
	PrimaryColor   string `validate:"omitempty,hexcolor"`
	SecondaryColor string `validate:"omitempty,hexcolor"`
	Status         string `validate:"required,oneof=active suspended cancelled"`
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := companyForm{
		Name:           strings.TrimSpace(r.PostFormValue("name")),
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		Phone:          strings.TrimSpace(r.PostFormValue("phone")),
		PrimaryColor:   strings.TrimSpace(r.PostFormValue("primary_color")),
		SecondaryColor: strings.TrimSpace(r.PostFormValue("secondary_color")),
		Status:         r.PostFormValue("status"),
	}
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.pages.Flash(r, "error", view.FirstError(errs))
		h.pages.Redirect(w, r, companyPath(id))
		return
	}
	update := pactum.CompanyUpdate{Name: &form.Name, Email: &form.Email, Phone: &form.Phone, Status: &form.Status}
	if form.PrimaryColor != "" {
		update.PrimaryColor = &form.PrimaryColor
	}
	if form.SecondaryColor != "" {
		update.SecondaryColor = &form.SecondaryColor
	}
	if _, err := h.api.UpdateCompany(r.Context(), id, update); err != nil {
		h.pages.Fail(w, r, err, companyPath(id))
		return
	}
	h.pages.Flash(r, "success", "Empresa actualizada")
	h.pages.Redirect(w, r, companyPath(id))
}

func (h *Handler) assignModules(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	modules := r.PostForm["modules"]
	if modules == nil {
		modules = []string{}
	}
	if err := h.api.AssignModules(r.Context(), id, modules); err != nil {
		h.pages.Fail(w, r, err, companyPath(id))
		return
	}
	h.logger.Info("modules assigned", slog.String("company_id", id), slog.Int("count", len(modules)))
	h.pages.Flash(r, "success", "Módulos actualizados")
	h.pages.Redirect(w, r, companyPath(id))
}

type subscriptionForm struct {
	Status    string `validate:"required,oneof=trial active expired cancelled"`
	PlanType  string `validate:"omitempty,oneof=basic professional enterprise"`
	TrialDays int    `validate:"min=0,max=365"`
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := subscriptionForm{
		Status:   r.PostFormValue("status"),
		PlanType: r.PostFormValue("plan_type"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("trial_days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			h.pages.Flash(r, "error", "Los días de prueba deben ser un número")
			h.pages.Redirect(w, r, companyPath(id))
			return
		}
		form.TrialDays = days
	}
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.pages.Flash(r, "error", view.FirstError(errs))
		h.pages.Redirect(w, r, companyPath(id))
		return
	}
	err := h.api.UpdateSubscription(r.Context(), id, pactum.SubscriptionUpdate{
		Status:             form.Status,
		PlanType:           form.PlanType,
		TrialDaysExtension: form.TrialDays,
	})
	if err != nil {
		h.pages.Fail(w, r, err, companyPath(id))
		return
	}
	h.pages.Flash(r, "success", "Suscripción actualizada")
	h.pages.Redirect(w, r, companyPath(id))
}
