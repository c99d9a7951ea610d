package pactum

import (
	"context"
	"net/http"
	"net/url"
)

func (c *API) ListClients(ctx context.Context) ([]Client, error) {
	var out []Client
	err := c.getJSON(ctx, "clients.list", "/clients", nil, &out)
	return out, err
}

func (c *API) GetClient(ctx context.Context, id string) (Client, error) {
	var out Client
	err := c.getJSON(ctx, "clients.get", pathf("/clients/%s", id), nil, &out)
	return out, err
}

func (c *API) CreateClient(ctx context.Context, in ClientInput) (Client, error) {
	var out Client
	err := c.sendJSON(ctx, "clients.create", http.MethodPost, "/clients", normalizeClient(in), &out)
	return out, err
}

func (c *API) UpdateClient(ctx context.Context, id string, in ClientInput) (Client, error) {
	var out Client
	err := c.sendJSON(ctx, "clients.update", http.MethodPut, pathf("/clients/%s", id), normalizeClient(in), &out)
	return out, err
}

func (c *API) DeleteClient(ctx context.Context, id string) error {
	return c.sendJSON(ctx, "clients.delete", http.MethodDelete, pathf("/clients/%s", id), nil, nil)
}

func normalizeClient(in ClientInput) ClientInput {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return in
}

func (c *API) ListActivities(ctx context.Context, filter ActivityFilter) ([]Activity, error) {
	query := url.Values{}
	if filter.ClientID != "" {
		query.Set("client_id", filter.ClientID)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}
	var out []Activity
	err := c.getJSON(ctx, "activities.list", "/activities", query, &out)
	return out, err
}

func (c *API) GetActivity(ctx context.Context, id string) (Activity, error) {
	var out Activity
	err := c.getJSON(ctx, "activities.get", pathf("/activities/%s", id), nil, &out)
	return out, err
}

func (c *API) CreateActivity(ctx context.Context, in ActivityInput) (Activity, error) {
	var out Activity
	err := c.sendJSON(ctx, "activities.create", http.MethodPost, "/activities", in, &out)
	return out, err
}

func (c *API) UpdateActivity(ctx context.Context, id string, in ActivityInput) (Activity, error) {
	var out Activity
	err := c.sendJSON(ctx, "activities.update", http.MethodPut, pathf("/activities/%s", id), in, &out)
	return out, err
}

func (c *API) DeleteActivity(ctx context.Context, id string) error {
	return c.sendJSON(ctx, "activities.delete", http.MethodDelete, pathf("/activities/%s", id), nil, nil)
}
