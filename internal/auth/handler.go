package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	pages     *view.Pages
	csrf      *shared.CSRFManager
	modules   ModuleLister
	validator *validator.Validate
}

// ModuleLister provides the module catalogue offered on registration.
type ModuleLister interface {
	PublicModules(ctx context.Context) ([]pactum.Module, error)
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, pages *view.Pages, csrf *shared.CSRFManager, modules ModuleLister) *Handler {
	return &Handler{
		logger:    logger,
		pages:     pages,
		csrf:      csrf,
		modules:   modules,
		validator: validator.New(),
	}
}

// MountRoutes registers the guest pages.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathLogin, h.showLogin)
	r.Post(rbac.PathLogin, h.handleLogin)
	r.Get(rbac.PathRegister, h.showRegister)
	r.Post(rbac.PathRegister, h.handleRegister)
}

// MountLogout registers POST /logout. It is reachable in every session state,
// so the router keeps it out of the route gate.
func (h *Handler) MountLogout(r chi.Router) {
	r.Post(rbac.PathLogout, h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.pages.HTML(w, r, http.StatusOK, "pages/login.html", "Iniciar sesión", loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		store := StoreFromContext(r.Context())
		if store == nil {
			h.logger.Error("session store missing during login")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		user, err := store.Login(r.Context(), form.Email, form.Password)
		if err == nil {
			h.csrf.Rotate(shared.SessionFromContext(r.Context()))
			h.pages.Flash(r, "success", "Bienvenido, "+user.Name)
			http.Redirect(w, r, rbac.DefaultLanding(user.Role), http.StatusSeeOther)
			return
		}
		if pactum.Classify(err) == pactum.KindCanceled {
			return
		}
		h.logger.Info("login rejected", slog.String("email", form.Email), slog.Any("error", err))
		errs["general"] = pactum.UserMessage(err)
	}

	form.Password = ""
	h.pages.HTML(w, r, http.StatusBadRequest, "pages/login.html", "Iniciar sesión", loginPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if store := StoreFromContext(r.Context()); store != nil {
		store.Logout(r.Context())
	}
	h.csrf.Rotate(shared.SessionFromContext(r.Context()))
	http.Redirect(w, r, rbac.PathLogin, http.StatusSeeOther)
}

type registerForm struct {
	Name            string `validate:"required,min=2"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"omitempty,max=30"`
	AdminName       string `validate:"required,min=2"`
	AdminEmail      string `validate:"required,email"`
	AdminPassword   string `validate:"required,min=6"`
	SelectedModules []string
}

type registerPageData struct {
	Form    registerForm
	Modules []pactum.Module
	Errors  map[string]string
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if id := h.identity(r); id != nil {
		http.Redirect(w, r, rbac.DefaultLanding(id.Role), http.StatusSeeOther)
		return
	}
	h.pages.HTML(w, r, http.StatusOK, "pages/register.html", "Registrar empresa", registerPageData{Modules: h.listModules(r)})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Name:            strings.TrimSpace(r.PostFormValue("name")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Phone:           strings.TrimSpace(r.PostFormValue("phone")),
		AdminName:       strings.TrimSpace(r.PostFormValue("admin_name")),
		AdminEmail:      strings.TrimSpace(r.PostFormValue("admin_email")),
		AdminPassword:   r.PostFormValue("admin_password"),
		SelectedModules: r.PostForm["modules"],
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		store := StoreFromContext(r.Context())
		if store == nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		user, err := store.Register(r.Context(), pactum.CompanyRegistration{
			Name:            form.Name,
			Email:           form.Email,
			Phone:           form.Phone,
			AdminName:       form.AdminName,
			AdminEmail:      form.AdminEmail,
			AdminPassword:   form.AdminPassword,
			SelectedModules: form.SelectedModules,
		})
		if err == nil {
			h.csrf.Rotate(shared.SessionFromContext(r.Context()))
			h.pages.Flash(r, "success", "Empresa registrada. Tu periodo de prueba está activo.")
			if store.Snapshot().Authenticated() {
				http.Redirect(w, r, rbac.DefaultLanding(user.Role), http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, rbac.PathLogin, http.StatusSeeOther)
			return
		}
		if pactum.Classify(err) == pactum.KindCanceled {
			return
		}
		h.logger.Info("registration rejected", slog.String("email", form.Email), slog.Any("error", err))
		errs["general"] = pactum.UserMessage(err)
	}

	form.AdminPassword = ""
	h.pages.HTML(w, r, http.StatusBadRequest, "pages/register.html", "Registrar empresa",
		registerPageData{Form: form, Modules: h.listModules(r), Errors: errs})
}

func (h *Handler) listModules(r *http.Request) []pactum.Module {
	if h.modules == nil {
		return nil
	}
	modules, err := h.modules.PublicModules(r.Context())
	if err != nil {
		h.logger.Debug("list modules", slog.Any("error", err))
		return nil
	}
	return modules
}

func (h *Handler) identity(r *http.Request) *shared.Identity {
	store := StoreFromContext(r.Context())
	if store == nil {
		return nil
	}
	return store.Snapshot().User
}

func (h *Handler) validate(form any) map[string]string {
	return view.FieldErrors(h.validator.Struct(form))
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}
