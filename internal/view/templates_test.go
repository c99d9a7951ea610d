package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"":                           "",
		"2024-03-05":                 "05/03/2024",
		"2024-03-05T14:30:00":        "05/03/2024 14:30",
		"2024-03-05T14:30:00.123456": "05/03/2024 14:30",
		"2024-03-05T14:30:00Z":       "05/03/2024 14:30",
		"2024-03-05T14:30:00-06:00":  "05/03/2024 14:30",
		"mañana":                     "mañana",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatDate(in), in)
	}
}

func TestRenderLayoutCarriesSessionData(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	user := &shared.Identity{ID: "u1", Name: "Ana", Email: "ana@pactum.com", Role: shared.RoleCompanyAdmin}

	res := httptest.NewRecorder()
	err = engine.Render(res, "pages/public_contracts.html", TemplateData{
		Title:       "Contratos Pactum",
		CSRFToken:   "tok-123",
		Flash:       &shared.FlashMessage{Kind: "success", Message: "Listo"},
		CurrentPath: rbac.PathPublicContracts,
		User:        user,
		Nav:         rbac.NavFor(user.Role),
	})
	require.NoError(t, err)

	body := res.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))
	assert.Contains(t, body, `content="tok-123"`)
	assert.Contains(t, body, "Listo")
	assert.Contains(t, body, `href="/clientes"`)
	assert.Contains(t, body, "/static/js/events.js")
}

func TestRenderAnonymousSkipsEventStream(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	require.NoError(t, engine.Render(res, "pages/public_contracts.html", TemplateData{Title: "Contratos"}))

	assert.NotContains(t, res.Body.String(), "/static/js/events.js")
	assert.Contains(t, res.Body.String(), "/static/js/app.js")
}
