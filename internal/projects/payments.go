package projects

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/view"
)

var paymentStatuses = []string{PaymentPending, PaymentPaid, PaymentOverdue}

func (h *Handler) payments(w http.ResponseWriter, r *http.Request) {
	project, ok := h.withProject(w, r, "Pagos")
	if !ok {
		return
	}
	payments, err := h.api.ListPayments(r.Context(), project.ID)
	h.pages.Warn(r, err)
	now := h.now()
	h.pages.HTML(w, r, http.StatusOK, "pages/payments.html", "Pagos del Proyecto", map[string]any{
		"Project":  project,
		"Payments": Rows(payments, now),
		"Stats":    CountPayments(payments, now),
		"Statuses": paymentStatuses,
		"Admin":    isAdmin(r),
		"Selector": h.selector(r),
	})
}

type paymentForm struct {
	Status    string `validate:"required,oneof=pendiente pagado vencido"`
	Reference string `validate:"max=120"`
	Notes     string `validate:"max=1000"`
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		h.pages.Flash(r, "error", "No tienes permisos para esta acción")
		h.pages.Redirect(w, r, rbac.PathPayments)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := paymentForm{
		Status:    r.PostFormValue("status"),
		Reference: strings.TrimSpace(r.PostFormValue("reference")),
		Notes:     strings.TrimSpace(r.PostFormValue("notes")),
	}
	if errs := view.FieldErrors(h.validator.Struct(form)); len(errs) > 0 {
		h.pages.Flash(r, "error", view.FirstError(errs))
		h.pages.Redirect(w, r, rbac.PathPayments)
		return
	}
	payment, err := h.api.UpdatePayment(r.Context(), chi.URLParam(r, "id"), pactum.PaymentUpdate{
		Status:    form.Status,
		Reference: form.Reference,
		Notes:     form.Notes,
	})
	if err != nil {
		h.pages.Fail(w, r, err, rbac.PathPayments)
		return
	}
	h.publish(r, events.Event{Topic: events.TopicProjectUpdated, ProjectID: payment.ProjectID})
	h.pages.Flash(r, "success", "Pago actualizado")
	h.pages.Redirect(w, r, rbac.PathPayments)
}
