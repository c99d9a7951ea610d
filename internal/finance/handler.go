// Package finance serves the owner's income allocation report.
package finance

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/view"
)

// API is the slice of the Pactum API used by the finance view.
type API interface {
	FinancialSummary(ctx context.Context) (pactum.FinancialSummary, error)
	FinancialReport(ctx context.Context) (pactum.FinancialReport, error)
	SaveFinancialReport(ctx context.Context, in pactum.FinancialReport) error
}

// Handler serves /financiero.
type Handler struct {
	logger *slog.Logger
	api    API
	pages  *view.Pages
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api API, pages *view.Pages) *Handler {
	return &Handler{logger: logger, api: api, pages: pages}
}

// MountRoutes registers the finance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.PathFinance, h.show)
	r.Post(rbac.PathFinance, h.save)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		g                     errgroup.Group
		report                pactum.FinancialReport
		summary               pactum.FinancialSummary
		reportErr, summaryErr error
	)
	g.Go(func() error {
		report, reportErr = h.api.FinancialReport(ctx)
		return nil
	})
	g.Go(func() error {
		summary, summaryErr = h.api.FinancialSummary(ctx)
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{reportErr, summaryErr} {
		if !h.pages.Warn(r, err) {
			h.pages.Fail(w, r, err, rbac.PathHome)
			return
		}
	}
	if summaryErr != nil {
		summary = report.Summarize()
	}
	h.render(w, r, http.StatusOK, report, summary, nil)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, report pactum.FinancialReport, summary pactum.FinancialSummary, errs map[string]string) {
	h.pages.HTML(w, r, status, "pages/finance.html", "Panel Financiero", map[string]any{
		"Report":  report,
		"Summary": summary,
		"Errors":  errs,
	})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	report, errs := ParseReport(r.PostForm)
	if len(errs) > 0 {
		h.render(w, r, http.StatusBadRequest, report, report.Summarize(), errs)
		return
	}
	if err := h.api.SaveFinancialReport(r.Context(), report); err != nil {
		if status, msg, ok := h.pages.Retry(w, r, err); ok {
			h.render(w, r, status, report, report.Summarize(), map[string]string{"general": msg})
		}
		return
	}
	h.logger.Info("financial report saved",
		slog.Int("payments", len(report.Payments)),
		slog.Int("reserves", len(report.Reserves)))
	h.pages.Flash(r, "success", "Reporte financiero guardado exitosamente")
	h.pages.Redirect(w, r, rbac.PathFinance)
}

// ParseReport reads a report from parallel form arrays. Rows without a
// concept are dropped; amounts must be non-negative numbers.
func ParseReport(form map[string][]string) (pactum.FinancialReport, map[string]string) {
	errs := map[string]string{}
	report := pactum.FinancialReport{Payments: []pactum.FinancialLine{}, Reserves: []pactum.FinancialLine{}}

	income, ok := amount(first(form["total_income"]))
	if !ok {
		errs["TotalIncome"] = "Ingresa un monto válido"
	}
	report.TotalIncome = income

	payments, ok := lines(form, "payment", "planned")
	if !ok {
		errs["Payments"] = "Revisa los montos de los pagos"
	}
	report.Payments = payments

	reserves, ok := lines(form, "reserve", "reserve")
	if !ok {
		errs["Reserves"] = "Revisa los montos de las reservas"
	}
	report.Reserves = reserves
	return report, errs
}

func lines(form map[string][]string, prefix, budget string) ([]pactum.FinancialLine, bool) {
	concepts := form[prefix+"_concept"]
	budgets := form[prefix+"_"+budget]
	executed := form[prefix+"_executed"]
	notes := form[prefix+"_note"]

	out := []pactum.FinancialLine{}
	valid := true
	for i, concept := range concepts {
		concept = strings.TrimSpace(concept)
		if concept == "" {
			continue
		}
		planned, okPlanned := amount(at(budgets, i))
		done, okDone := amount(at(executed, i))
		if !okPlanned || !okDone {
			valid = false
		}
		line := pactum.FinancialLine{Concept: concept, ExecutedAmount: done, StatusNote: strings.TrimSpace(at(notes, i))}
		if budget == "reserve" {
			line.ReserveAmount = planned
		} else {
			line.PlannedAmount = planned
		}
		out = append(out, line)
	}
	return out, valid
}

// amount parses a non-negative figure; blank is zero. Thousands separators
// are accepted.
func amount(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func first(values []string) string {
	return at(values, 0)
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
