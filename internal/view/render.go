package view

import (
	"log/slog"
	"net/http"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/platform/httpx"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
)

// ForcedLogout is implemented by the request session store.
type ForcedLogout interface {
	ForcedLogout() bool
}

// Pages renders full pages with the layout data every handler needs.
type Pages struct {
	Engine *Engine
	CSRF   *shared.CSRFManager
	Logger *slog.Logger
	// Forced reports whether the request lost its credential mid-flight.
	Forced func(r *http.Request) ForcedLogout
}

// Data assembles the layout data for r. The flash is consumed.
func (p *Pages) Data(r *http.Request, title string, data any) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	td := TemplateData{
		Title:       title,
		CSRFToken:   p.CSRF.EnsureToken(sess),
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if id := shared.IdentityFromContext(r.Context()); id != nil {
		td.User = id
		td.Nav = rbac.NavFor(id.Role)
	}
	return td
}

// HTML renders name with status.
func (p *Pages) HTML(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if p.LoggedOut(w, r) {
		return
	}
	td := p.Data(r, title, data)
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := p.Engine.Render(w, name, td); err != nil {
		p.Logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		if status == http.StatusOK {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// Flash queues a notification for the next rendered page.
func (p *Pages) Flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}

// Redirect sends a 303 unless the credential was dropped, in which case the
// visitor goes to the login page instead.
func (p *Pages) Redirect(w http.ResponseWriter, r *http.Request, location string) {
	if p.LoggedOut(w, r) {
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// Fail turns an API error into a flash and a redirect to location. Canceled
// requests produce nothing.
func (p *Pages) Fail(w http.ResponseWriter, r *http.Request, err error, location string) {
	switch pactum.Classify(err) {
	case pactum.KindCanceled:
		return
	case pactum.KindAuthExpired:
		http.Redirect(w, r, rbac.PathLogin, http.StatusSeeOther)
		return
	}
	p.Logger.Warn("api request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	p.Flash(r, "error", pactum.UserMessage(err))
	p.Redirect(w, r, location)
}

// Retry decides how a failed form submission is answered. Unless the request
// must stop (cancellation or lost credential), it returns the status and the
// message to re-render the form with, so the submitted values are kept.
func (p *Pages) Retry(w http.ResponseWriter, r *http.Request, err error) (int, string, bool) {
	switch pactum.Classify(err) {
	case pactum.KindCanceled:
		return 0, "", false
	case pactum.KindAuthExpired:
		http.Redirect(w, r, rbac.PathLogin, http.StatusSeeOther)
		return 0, "", false
	case pactum.KindValidation:
	default:
		p.Logger.Warn("api request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	return httpx.ProblemStatus(err), pactum.UserMessage(err), true
}

// Warn records a non-fatal API failure as a flash for the page being rendered.
// It reports false when the request must stop (cancellation or lost credential).
func (p *Pages) Warn(r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	switch pactum.Classify(err) {
	case pactum.KindCanceled, pactum.KindAuthExpired:
		return false
	}
	p.Logger.Warn("api request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	p.Flash(r, "error", pactum.UserMessage(err))
	return true
}

// LoggedOut redirects to the login page when the credential was invalidated
// during this request.
func (p *Pages) LoggedOut(w http.ResponseWriter, r *http.Request) bool {
	if p.Forced == nil {
		return false
	}
	f := p.Forced(r)
	if f == nil || !f.ForcedLogout() {
		return false
	}
	http.Redirect(w, r, rbac.PathLogin, http.StatusSeeOther)
	return true
}
