package pactum

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *API) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := c.getJSON(ctx, "projects.list", "/projects", nil, &out)
	return out, err
}

func (c *API) GetProject(ctx context.Context, id string) (Project, error) {
	var out Project
	err := c.getJSON(ctx, "projects.get", pathf("/projects/%s", id), nil, &out)
	return out, err
}

func (c *API) UpdateProject(ctx context.Context, id string, in ProjectUpdate) (Project, error) {
	var out Project
	err := c.sendJSON(ctx, "projects.update", http.MethodPut, pathf("/projects/%s", id), in, &out)
	return out, err
}

// ProjectForClient returns the first project owned by clientID.
func (c *API) ProjectForClient(ctx context.Context, clientID string) (Project, bool, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return Project{}, false, err
	}
	for _, p := range projects {
		if p.ClientID == clientID {
			return p, true, nil
		}
	}
	return Project{}, false, nil
}

func (c *API) ListPhases(ctx context.Context, projectID string) ([]Phase, error) {
	var out []Phase
	err := c.getJSON(ctx, "phases.list", "/phases", projectQuery(projectID), &out)
	return out, err
}

func (c *API) GetPhase(ctx context.Context, id string) (Phase, error) {
	var out Phase
	err := c.getJSON(ctx, "phases.get", pathf("/phases/%s", id), nil, &out)
	return out, err
}

func (c *API) UpdatePhase(ctx context.Context, id string, in PhaseUpdate) (Phase, error) {
	var out Phase
	err := c.sendJSON(ctx, "phases.update", http.MethodPut, pathf("/phases/%s", id), in, &out)
	return out, err
}

func (c *API) ApprovePhase(ctx context.Context, id string) error {
	return c.sendJSON(ctx, "phases.approve", http.MethodPost, pathf("/phases/%s/approve", id), nil, nil)
}

func (c *API) CommentPhase(ctx context.Context, id, text string) error {
	return c.sendJSON(ctx, "phases.comment", http.MethodPost, pathf("/phases/%s/comments", id), map[string]string{"text": text}, nil)
}

func (c *API) ListPayments(ctx context.Context, projectID string) ([]Payment, error) {
	var out []Payment
	err := c.getJSON(ctx, "payments.list", "/payments", projectQuery(projectID), &out)
	return out, err
}

func (c *API) UpdatePayment(ctx context.Context, id string, in PaymentUpdate) (Payment, error) {
	var out Payment
	err := c.sendJSON(ctx, "payments.update", http.MethodPut, pathf("/payments/%s", id), in, &out)
	return out, err
}

func projectQuery(projectID string) url.Values {
	if projectID == "" {
		return nil
	}
	return url.Values{"project_id": {projectID}}
}

func taskQuery(filter TaskFilter) url.Values {
	query := url.Values{}
	if filter.ProjectID != "" {
		query.Set("project_id", filter.ProjectID)
	}
	if filter.Week > 0 {
		query.Set("week", strconv.Itoa(filter.Week))
	}
	return query
}
