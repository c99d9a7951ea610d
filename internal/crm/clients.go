package crm

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
)

type clientForm struct {
	Name        string `validate:"required,min=2,max=200"`
	Email       string `validate:"omitempty,email"`
	Phone       string `validate:"max=30"`
	CompanyName string `validate:"max=200"`
	Address     string `validate:"max=300"`
	City        string `validate:"max=100"`
	Country     string `validate:"max=100"`
	Tags        string
	Notes       string `validate:"max=2000"`
	Status      string `validate:"omitempty,oneof=active inactive"`
}

func clientFormFrom(r *http.Request) clientForm {
	return clientForm{
		Name:        trimmed(r, "name"),
		Email:       trimmed(r, "email"),
		Phone:       trimmed(r, "phone"),
		CompanyName: trimmed(r, "company_name"),
		Address:     trimmed(r, "address"),
		City:        trimmed(r, "city"),
		Country:     trimmed(r, "country"),
		Tags:        trimmed(r, "tags"),
		Notes:       trimmed(r, "notes"),
		Status:      r.PostFormValue("status"),
	}
}

func clientFormOf(c pactum.Client) clientForm {
	return clientForm{
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		CompanyName: c.CompanyName,
		Address:     c.Address,
		City:        c.City,
		Country:     c.Country,
		Tags:        strings.Join(c.Tags, ", "),
		Notes:       c.Notes,
		Status:      c.Status,
	}
}

func (f clientForm) input() pactum.ClientInput {
	status := f.Status
	if status == "" {
		status = "active"
	}
	return pactum.ClientInput{
		Name:        f.Name,
		Email:       f.Email,
		Phone:       f.Phone,
		CompanyName: f.CompanyName,
		Address:     f.Address,
		City:        f.City,
		Country:     f.Country,
		Tags:        SplitTags(f.Tags),
		Notes:       f.Notes,
		Status:      status,
	}
}

// SplitTags turns "a, b,,c" into [a b c].
func SplitTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// MatchClients filters by a case-insensitive substring of name, email or
// company name.
func MatchClients(clients []pactum.Client, query string) []pactum.Client {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return clients
	}
	out := make([]pactum.Client, 0, len(clients))
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(strings.ToLower(c.Email), query) ||
			strings.Contains(strings.ToLower(c.CompanyName), query) {
			out = append(out, c)
		}
	}
	return out
}

func (h *Handler) clients(w http.ResponseWriter, r *http.Request) {
	h.renderClients(w, r, http.StatusOK, clientForm{}, nil)
}

func (h *Handler) renderClients(w http.ResponseWriter, r *http.Request, status int, form clientForm, errs map[string]string) {
	query := r.URL.Query().Get("q")
	list, err := h.api.ListClients(r.Context())
	if !h.pages.Warn(r, err) {
		h.pages.Fail(w, r, err, rbac.PathDashboard)
		return
	}
	h.pages.HTML(w, r, status, "pages/clients.html", "Clientes", map[string]any{
		"Clients": MatchClients(list, query),
		"Query":   query,
		"Form":    form,
		"Errors":  errs,
	})
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := clientFormFrom(r)
	if errs := h.validate(form); len(errs) > 0 {
		h.renderClients(w, r, http.StatusBadRequest, form, errs)
		return
	}
	if _, err := h.api.CreateClient(r.Context(), form.input()); err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			h.renderClients(w, r, status, form, map[string]string{"general": msg})
		}
		return
	}
	h.pages.Flash(r, "success", "Cliente creado")
	h.pages.Redirect(w, r, rbac.PathClients)
}

func (h *Handler) editClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	client, err := h.api.GetClient(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathClients)
		return
	}
	h.renderClientForm(w, r, http.StatusOK, id, clientFormOf(client), nil)
}

func (h *Handler) renderClientForm(w http.ResponseWriter, r *http.Request, status int, id string, form clientForm, errs map[string]string) {
	h.pages.HTML(w, r, status, "pages/client_form.html", "Editar cliente", map[string]any{
		"ID":     id,
		"Form":   form,
		"Errors": errs,
	})
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := clientFormFrom(r)
	if errs := h.validate(form); len(errs) > 0 {
		h.renderClientForm(w, r, http.StatusBadRequest, id, form, errs)
		return
	}
	if _, err := h.api.UpdateClient(r.Context(), id, form.input()); err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			h.renderClientForm(w, r, status, id, form, map[string]string{"general": msg})
		}
		return
	}
	h.pages.Flash(r, "success", "Cliente actualizado")
	h.pages.Redirect(w, r, rbac.PathClients)
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.api.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.pages.Fail(w, r, err, rbac.PathClients)
		return
	}
	h.pages.Flash(r, "success", "Cliente eliminado")
	h.pages.Redirect(w, r, rbac.PathClients)
}
