package console_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactum-saas/pactum-web/internal/console"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/shared"
	_ "github.com/pactum-saas/pactum-web/internal/testing/guard"
	"github.com/pactum-saas/pactum-web/internal/testing/pagetest"
)

var (
	super = shared.Identity{ID: "sa", Name: "Super", Email: "root@pactum.com", Role: shared.RoleSuperAdmin}
	admin = shared.Identity{ID: "adm", Name: "Admin Empresa", Email: "admin@empresa.com", Role: shared.RoleCompanyAdmin}
)

type fakeAPI struct {
	updates       []pactum.CompanyUpdate
	modules       [][]string
	subscriptions []pactum.SubscriptionUpdate
	getErr        error
}

func (f *fakeAPI) GetCompany(_ context.Context, id string) (pactum.Company, error) {
	if f.getErr != nil {
		return pactum.Company{}, f.getErr
	}
	return pactum.Company{
		ID:                 id,
		Name:               "Constructora Norte",
		Email:              "info@norte.com",
		Status:             "active",
		SubscriptionStatus: "trial",
		ActiveModules:      []string{"crm"},
		Users:              []pactum.CompanyUser{{ID: "u9", Name: "Marta Díaz", Role: shared.RoleCompanyAdmin}},
	}, nil
}

func (f *fakeAPI) UpdateCompany(_ context.Context, id string, in pactum.CompanyUpdate) (pactum.Company, error) {
	f.updates = append(f.updates, in)
	return pactum.Company{ID: id}, nil
}

func (f *fakeAPI) AssignModules(_ context.Context, _ string, ids []string) error {
	f.modules = append(f.modules, ids)
	return nil
}

func (f *fakeAPI) UpdateSubscription(_ context.Context, _ string, in pactum.SubscriptionUpdate) error {
	f.subscriptions = append(f.subscriptions, in)
	return nil
}

func (f *fakeAPI) ListModules(context.Context) ([]pactum.Module, error) {
	return []pactum.Module{{ID: "crm", Name: "CRM"}, {ID: "projects", Name: "Proyectos"}}, nil
}

func setup(t *testing.T, api *fakeAPI) (*pagetest.Harness, http.Handler) {
	t.Helper()
	h := pagetest.New(t)
	handler := console.NewHandler(h.Logger, api, h.Pages)
	return h, h.Router(func(r chi.Router) { handler.MountRoutes(r) })
}

func TestCompanyDetail(t *testing.T) {
	h, router := setup(t, &fakeAPI{})
	sid := h.SignIn(t, super)

	res := h.Do(router, pagetest.Get("/dashboard/empresas/co1"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Constructora Norte")
	assert.Contains(t, body, "Marta Díaz")
	assert.Contains(t, body, "Proyectos")
}

func TestConsoleRejectsCompanyAdmin(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)

	res := h.Do(router, pagetest.Form("/dashboard/empresas/co1/modulos", url.Values{"modules": {"crm"}}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))
	assert.Empty(t, api.modules)
}

func TestUnknownCompanyRedirects(t *testing.T) {
	api := &fakeAPI{getErr: &pactum.RejectedError{Op: "admin.company", Status: http.StatusNotFound}}
	h, router := setup(t, api)
	sid := h.SignIn(t, super)

	res := h.Do(router, pagetest.Get("/dashboard/empresas/nope"), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))
	assert.Contains(t, h.Flashes(t, sid), pactum.MsgNotFound)
}

func TestAssignModulesAllowsEmptySelection(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, super)

	res := h.Do(router, pagetest.Form("/dashboard/empresas/co1/modulos", url.Values{}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, api.modules, 1)
	assert.Equal(t, []string{}, api.modules[0])
}

func TestUpdateSubscription(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, super)

	res := h.Do(router, pagetest.Form("/dashboard/empresas/co1/suscripcion", url.Values{
		"status":     {"active"},
		"plan_type":  {"professional"},
		"trial_days": {"15"},
	}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/empresas/co1", res.Header().Get("Location"))
	require.Len(t, api.subscriptions, 1)
	assert.Equal(t, pactum.SubscriptionUpdate{Status: "active", PlanType: "professional", TrialDaysExtension: 15}, api.subscriptions[0])
	assert.Contains(t, h.Flashes(t, sid), "Suscripción actualizada")
}

func TestUpdateCompanyValidates(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, super)

	res := h.Do(router, pagetest.Form("/dashboard/empresas/co1", url.Values{
		"name":   {"Constructora Norte"},
		"email":  {"no-es-email"},
		"status": {"active"},
	}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, api.updates)
	assert.Contains(t, h.Flashes(t, sid), "Ingresa un email válido")
}
