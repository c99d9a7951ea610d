package pactum

import (
	"context"
	"net/http"
)

func (c *API) ListCompanies(ctx context.Context) ([]Company, error) {
	var out []Company
	err := c.getJSON(ctx, "admin.companies.list", "/admin/companies", nil, &out)
	return out, err
}

func (c *API) GetCompany(ctx context.Context, id string) (Company, error) {
	var out Company
	err := c.getJSON(ctx, "admin.companies.get", pathf("/admin/companies/%s", id), nil, &out)
	return out, err
}

func (c *API) UpdateCompany(ctx context.Context, id string, in CompanyUpdate) (Company, error) {
	var out Company
	err := c.sendJSON(ctx, "admin.companies.update", http.MethodPut, pathf("/admin/companies/%s", id), in, &out)
	return out, err
}

// AssignModules replaces the active module set of a company.
func (c *API) AssignModules(ctx context.Context, companyID string, moduleIDs []string) error {
	if moduleIDs == nil {
		moduleIDs = []string{}
	}
	return c.sendJSON(ctx, "admin.companies.modules", http.MethodPost, pathf("/admin/companies/%s/modules", companyID), moduleIDs, nil)
}

func (c *API) UpdateSubscription(ctx context.Context, companyID string, in SubscriptionUpdate) error {
	return c.sendJSON(ctx, "admin.companies.subscription", http.MethodPost, pathf("/admin/companies/%s/subscription", companyID), in, nil)
}

func (c *API) GlobalMetrics(ctx context.Context) (GlobalMetrics, error) {
	var out GlobalMetrics
	err := c.getJSON(ctx, "admin.metrics", "/admin/metrics", nil, &out)
	return out, err
}

func (c *API) ListModules(ctx context.Context) ([]Module, error) {
	var out []Module
	err := c.getJSON(ctx, "modules.list", "/modules", nil, &out)
	return out, err
}

// PublicModules lists the module catalogue without credentials, for the
// registration page.
func (c *API) PublicModules(ctx context.Context) ([]Module, error) {
	var out []Module
	err := c.do(ctx, call{op: "modules.public", method: http.MethodGet, path: "/modules", anonymous: true}, &out)
	return out, err
}
