package pactum

import (
	"context"
	"net/http"

	"github.com/pactum-saas/pactum-web/internal/shared"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token. A 401 here is a rejection, not an
// expired session.
func (c *API) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.sendAnonymous(ctx, "auth.login", http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out)
	return out, err
}

// Me resolves the identity behind the current credential.
func (c *API) Me(ctx context.Context) (shared.Identity, error) {
	var out shared.Identity
	err := c.getJSON(ctx, "auth.me", "/auth/me", nil, &out)
	return out, err
}

// MeWithToken resolves the identity behind token without consulting the
// credentials bound to ctx. A 401 is reported as ErrAuthenticationExpired but
// triggers no invalidation; the caller owns that decision.
func (c *API) MeWithToken(ctx context.Context, token string) (shared.Identity, error) {
	var out shared.Identity
	err := c.getJSON(WithCredentials(ctx, staticToken(token)), "auth.me", "/auth/me", nil, &out)
	return out, err
}

// RegisterCompany creates a tenant company with its first administrator.
func (c *API) RegisterCompany(ctx context.Context, in CompanyRegistration) (LoginResult, error) {
	if in.SelectedModules == nil {
		in.SelectedModules = []string{}
	}
	var out LoginResult
	err := c.sendAnonymous(ctx, "public.register_company", http.MethodPost, "/public/register-company", in, &out)
	return out, err
}

func (c *API) sendAnonymous(ctx context.Context, op, method, path string, payload, out any) error {
	body, contentType, err := encodeJSON(op, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, call{op: op, method: method, path: path, body: body, contentType: contentType, anonymous: true}, out)
}

// staticToken is a credential source with nothing to invalidate.
type staticToken string

func (t staticToken) Token() string            { return string(t) }
func (staticToken) Invalidate(context.Context) {}
