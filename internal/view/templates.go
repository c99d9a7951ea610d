package view

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *shared.Identity
	Nav         []rbac.NavItem
	Data        any
}

var printer = message.NewPrinter(language.LatinAmericanSpanish)

var statusLabels = map[string]string{
	pactum.StatusBacklog:    "Backlog",
	pactum.StatusTodo:       "Por Hacer",
	pactum.StatusInProgress: "En Progreso",
	pactum.StatusReview:     "En Revisión",
	pactum.StatusDone:       "Completado",

	"pendiente":     "Pendiente",
	"en_progreso":   "En Progreso",
	"completado":    "Completado",
	"completada":    "Completada",
	"pagado":        "Pagado",
	"vencido":       "Vencido",
	"planificacion": "Planificación",
	"pausado":       "Pausado",

	"active":    "Activa",
	"inactive":  "Inactiva",
	"suspended": "Suspendida",
	"cancelled": "Cancelada",
	"trial":     "Prueba",
	"expired":   "Expirada",
}

var priorityLabels = map[string]string{
	"low":    "Baja",
	"medium": "Media",
	"high":   "Alta",
	"urgent": "Urgente",
}

var entityLabels = map[string]string{
	"project":  "Proyecto",
	"task":     "Tarea",
	"phase":    "Fase",
	"payment":  "Pago",
	"client":   "Cliente",
	"activity": "Actividad",
	"user":     "Usuario",
}

var priorityOrder = []string{"low", "medium", "high", "urgent"}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": formatDate,
		"usd": func(amount float64) string {
			return printer.Sprintf("US$ %.2f", amount)
		},
		"cordobas": func(amount float64) string {
			return printer.Sprintf("C$ %.2f", amount)
		},
		"number": func(amount float64) string {
			return printer.Sprintf("%.2f", amount)
		},
		"percent": func(value float64) string {
			return printer.Sprintf("%.0f%%", value)
		},
		"statusLabel": func(status string) string {
			if label, ok := statusLabels[status]; ok {
				return label
			}
			return status
		},
		"priorityLabel": func(priority string) string {
			if label, ok := priorityLabels[priority]; ok {
				return label
			}
			return priority
		},
		"hasRole": func(id *shared.Identity, roles ...string) bool {
			if id == nil {
				return false
			}
			for _, role := range roles {
				if string(id.Role) == role {
					return true
				}
			}
			return false
		},
		"isActive": func(current, href string) bool {
			return current == href || strings.HasPrefix(current, href+"/")
		},
		"join": strings.Join,
		"fieldError": func(errs map[string]string, field string) string {
			return errs[field]
		},
		"entityLabel": func(entity string) string {
			if label, ok := entityLabels[entity]; ok {
				return label
			}
			return entity
		},
		"priorities": func() []string {
			return priorityOrder
		},
		"contains": func(list []string, value string) bool {
			return slices.Contains(list, value)
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates(), "layouts/*.html", "partials/*.html", "pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// Fragment executes a partial template outside the page layout, for streamed
// updates.
func (e *Engine) Fragment(w io.Writer, name string, data any) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}

// formatDate renders the API's ISO timestamps as dd/mm/yyyy, keeping the time
// when one is present.
func formatDate(value string) string {
	if value == "" {
		return ""
	}
	layouts := []struct {
		parse  string
		render string
	}{
		{time.RFC3339Nano, "02/01/2006 15:04"},
		{"2006-01-02T15:04:05.999999", "02/01/2006 15:04"},
		{"2006-01-02T15:04:05", "02/01/2006 15:04"},
		{"2006-01-02", "02/01/2006"},
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout.parse, value); err == nil {
			return t.Format(layout.render)
		}
	}
	return value
}
