package pactum

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *API) ListCompanyUsers(ctx context.Context) ([]CompanyUser, error) {
	var out []CompanyUser
	err := c.getJSON(ctx, "company.users.list", "/company/users", nil, &out)
	return out, err
}

func (c *API) CreateCompanyUser(ctx context.Context, in CompanyUserInput) (CompanyUser, error) {
	var out CompanyUser
	err := c.sendJSON(ctx, "company.users.create", http.MethodPost, "/company/users", in, &out)
	return out, err
}

func (c *API) UpdateCompanyUser(ctx context.Context, id string, in CompanyUserInput) (CompanyUser, error) {
	var out CompanyUser
	err := c.sendJSON(ctx, "company.users.update", http.MethodPut, pathf("/company/users/%s", id), in, &out)
	return out, err
}

func (c *API) DeleteCompanyUser(ctx context.Context, id string) error {
	return c.sendJSON(ctx, "company.users.delete", http.MethodDelete, pathf("/company/users/%s", id), nil, nil)
}

// ListAssignableUsers returns the users a task can be assigned or reassigned to.
func (c *API) ListAssignableUsers(ctx context.Context) ([]CompanyUser, error) {
	var out []CompanyUser
	err := c.getJSON(ctx, "users.list", "/users", nil, &out)
	return out, err
}

func (c *API) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	err := c.getJSON(ctx, "dashboard.stats", "/dashboard/stats", nil, &out)
	return out, err
}

// ActivityLogs lists audit entries, optionally for one entity type.
func (c *API) ActivityLogs(ctx context.Context, entityType string, limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if entityType != "" {
		query.Set("entity_type", entityType)
	}
	var out []ActivityLog
	err := c.getJSON(ctx, "activity_logs.list", "/activity-logs", query, &out)
	return out, err
}
