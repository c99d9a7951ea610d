// Package projects serves the project pages: overview, dashboard, phases,
// payments, contract documents, activity and reassignment history, plus the
// company administrator's tenant scope selector.
package projects

import (
	"time"

	"github.com/pactum-saas/pactum-web/internal/pactum"
)

// Phase statuses.
const (
	PhasePending    = "pendiente"
	PhaseInProgress = "en_progreso"
	PhaseDone       = "completado"
)

// Payment statuses.
const (
	PaymentPending = "pendiente"
	PaymentPaid    = "pagado"
	PaymentOverdue = "vencido"
)

// Project statuses.
const (
	ProjectPlanning   = "planificacion"
	ProjectInProgress = "en_progreso"
	ProjectDone       = "completado"
	ProjectPaused     = "pausado"
)

// PaymentGrace is how long after its due date a pending payment is still on
// time.
const PaymentGrace = 48 * time.Hour

// TaskStats counts tasks by board progress.
type TaskStats struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
}

// PaymentStats aggregates a payment schedule. Amounts are in USD.
type PaymentStats struct {
	Total       int
	Paid        int
	Pending     int
	Delayed     int
	TotalAmount float64
	PaidAmount  float64
}

// PhaseStats counts phases by status.
type PhaseStats struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
}

// PaymentRow is a payment with its computed delay flag.
type PaymentRow struct {
	pactum.Payment
	Delayed bool
}

// CountTasks computes TaskStats.
func CountTasks(tasks []pactum.Task) TaskStats {
	s := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case pactum.StatusDone:
			s.Completed++
		case pactum.StatusInProgress:
			s.InProgress++
		case pactum.StatusBacklog, pactum.StatusTodo:
			s.Pending++
		}
	}
	return s
}

// CountPhases computes PhaseStats.
func CountPhases(phases []pactum.Phase) PhaseStats {
	s := PhaseStats{Total: len(phases)}
	for _, p := range phases {
		switch p.Status {
		case PhaseDone:
			s.Completed++
		case PhaseInProgress:
			s.InProgress++
		case PhasePending:
			s.Pending++
		}
	}
	return s
}

// Delayed reports whether a pending payment is past its due date by more
// than PaymentGrace, or was marked overdue by the API.
func Delayed(p pactum.Payment, now time.Time) bool {
	if p.Status == PaymentOverdue {
		return true
	}
	if p.Status != PaymentPending || p.DueDate == "" {
		return false
	}
	due, err := parseDate(p.DueDate)
	if err != nil {
		return false
	}
	return now.Sub(due) > PaymentGrace
}

// Rows flags delayed payments.
func Rows(payments []pactum.Payment, now time.Time) []PaymentRow {
	rows := make([]PaymentRow, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, PaymentRow{Payment: p, Delayed: Delayed(p, now)})
	}
	return rows
}

// CountPayments computes PaymentStats.
func CountPayments(payments []pactum.Payment, now time.Time) PaymentStats {
	s := PaymentStats{Total: len(payments)}
	for _, p := range payments {
		s.TotalAmount += p.AmountUSD
		switch p.Status {
		case PaymentPaid:
			s.Paid++
			s.PaidAmount += p.AmountUSD
		case PaymentPending:
			s.Pending++
		}
		if Delayed(p, now) {
			s.Delayed++
		}
	}
	return s
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Parse("2006-01-02", value)
}
