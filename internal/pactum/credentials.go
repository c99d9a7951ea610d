package pactum

import "context"

// Credentials supplies the bearer token for outbound calls and receives the
// invalidation signal when the API answers 401.
type Credentials interface {
	Token() string
	// Invalidate clears the stored credential and cached identity and
	// schedules navigation to the login page.
	Invalidate(ctx context.Context)
}

type credentialsKey struct{}

// WithCredentials binds a credential source to ctx for every call made with it.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the credential source bound to ctx, if any.
func CredentialsFromContext(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}
