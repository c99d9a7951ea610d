package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pactum-saas/pactum-web/internal/pactum"
)

func TestRangeSince(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), RangeToday.Since(now))
	assert.Equal(t, time.Date(2025, 3, 5, 15, 30, 0, 0, time.UTC), RangeWeek.Since(now))
	assert.Equal(t, RangeToday, ParseRange(""))
	assert.Equal(t, RangeToday, ParseRange("mes"))
	assert.Equal(t, RangeWeek, ParseRange("semana"))
}

func TestComputeTeamStats(t *testing.T) {
	since := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	tasks := []pactum.Task{
		{ID: "t1", AssignedTo: "u1", Status: pactum.StatusDone, ActualHours: 4, CreatedAt: "2025-03-06T10:00:00Z", UpdatedAt: "2025-03-07T10:00:00Z"},
		{ID: "t2", AssignedTo: "u1", Status: pactum.StatusDone, ActualHours: 2, CreatedAt: "2025-02-01T10:00:00Z", UpdatedAt: "2025-03-08T09:00:00"},
		{ID: "t3", AssignedTo: "u1", Status: pactum.StatusInProgress, CreatedAt: "2025-03-10T08:00:00Z"},
		{ID: "t4", AssignedTo: "u1", Status: pactum.StatusDone, ActualHours: 9, CreatedAt: "2025-01-01", UpdatedAt: "2025-01-02"},
		{ID: "t5", AssignedTo: "u2", Status: pactum.StatusDone, ActualHours: 7, CreatedAt: "2025-03-06T10:00:00Z", UpdatedAt: "2025-03-06T10:00:00Z"},
	}
	comments := []pactum.Comment{
		{UserID: "u1", Text: "listo", CreatedAt: "2025-03-06T11:00:00Z"},
		{UserID: "u1", AudioURL: "/audio/1.webm", CreatedAt: "2025-03-07T11:00:00Z"},
		{UserID: "u1", Text: "viejo", CreatedAt: "2025-02-07T11:00:00Z"},
		{UserID: "u2", Text: "otro", CreatedAt: "2025-03-07T11:00:00Z"},
	}

	stats := ComputeTeamStats(tasks, comments, "u1", since)

	assert.Equal(t, TeamStats{Tasks: 2, Completed: 2, Hours: 6, Comments: 2, Audios: 1}, stats)
	assert.Equal(t, 100, stats.CompletionRate())
	assert.InDelta(t, 3.0, stats.HoursPerTask(), 0.001)
	assert.InDelta(t, 1.0, stats.CommentsPerTask(), 0.001)
}

func TestTeamStatsRatiosWithoutTasks(t *testing.T) {
	var s TeamStats
	assert.Zero(t, s.CompletionRate())
	assert.Zero(t, s.HoursPerTask())
	assert.Zero(t, s.CommentsPerTask())
}

func TestMine(t *testing.T) {
	tasks := []pactum.Task{{ID: "a", AssignedTo: "u1"}, {ID: "b", AssignedTo: "u2"}, {ID: "c"}}
	got := Mine(tasks, "u1")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "a", got[0].ID)
	}
}
