package dashboard

import (
	"time"

	"github.com/pactum-saas/pactum-web/internal/pactum"
)

// Range is the window of the team member dashboard.
type Range string

const (
	RangeToday Range = "hoy"
	RangeWeek  Range = "semana"
)

// ParseRange defaults to today.
func ParseRange(raw string) Range {
	if Range(raw) == RangeWeek {
		return RangeWeek
	}
	return RangeToday
}

// Since returns where the window starts.
func (r Range) Since(now time.Time) time.Time {
	if r == RangeWeek {
		return now.AddDate(0, 0, -7)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// TeamStats is a team member's own productivity over a Range.
type TeamStats struct {
	Tasks     int
	Completed int
	Hours     float64
	Comments  int
	Audios    int
}

// CompletionRate is the whole percentage of window tasks completed.
func (s TeamStats) CompletionRate() int {
	if s.Tasks == 0 {
		return 0
	}
	return s.Completed * 100 / s.Tasks
}

// HoursPerTask averages hours over completed tasks.
func (s TeamStats) HoursPerTask() float64 {
	if s.Completed == 0 {
		return 0
	}
	return s.Hours / float64(s.Completed)
}

// CommentsPerTask averages comments over window tasks.
func (s TeamStats) CommentsPerTask() float64 {
	if s.Tasks == 0 {
		return 0
	}
	return float64(s.Comments) / float64(s.Tasks)
}

// Mine keeps the tasks assigned to userID.
func Mine(tasks []pactum.Task, userID string) []pactum.Task {
	out := make([]pactum.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.AssignedTo == userID {
			out = append(out, t)
		}
	}
	return out
}

// ComputeTeamStats counts the window activity of userID. A task belongs to
// the window by its creation time (falling back to its last update); it
// counts as completed when done and last updated inside the window.
func ComputeTeamStats(tasks []pactum.Task, comments []pactum.Comment, userID string, since time.Time) TeamStats {
	var s TeamStats
	for _, t := range tasks {
		if t.AssignedTo != userID {
			continue
		}
		stamp := t.CreatedAt
		if stamp == "" {
			stamp = t.UpdatedAt
		}
		if inWindow(stamp, since) {
			s.Tasks++
		}
		if t.Status == pactum.StatusDone && inWindow(t.UpdatedAt, since) {
			s.Completed++
			s.Hours += t.ActualHours
		}
	}
	for _, c := range comments {
		if c.UserID != userID || !inWindow(c.CreatedAt, since) {
			continue
		}
		s.Comments++
		if c.AudioURL != "" {
			s.Audios++
		}
	}
	return s
}

func inWindow(stamp string, since time.Time) bool {
	if stamp == "" {
		return false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, stamp); err == nil {
			return !t.Before(since)
		}
	}
	return false
}
