// Package tasks serves the task list and the Kanban board.
package tasks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/pactum"
)

// Lister loads tasks for a board.
type Lister interface {
	ListTasks(ctx context.Context, filter pactum.TaskFilter) ([]pactum.Task, error)
}

// Column is one Kanban column.
type Column struct {
	Status string
	Tasks  []pactum.Task
}

// BoardView is one rendering of the board. Message is set when the last fetch
// failed; the columns are then empty.
type BoardView struct {
	ProjectID string
	Version   int64
	Columns   []Column
	Message   string
}

// Viewer identifies whose board is mounted.
type Viewer struct {
	// Scope is the bus scope, the visitor's session id.
	Scope string
	// ProjectID is the tenant pointer at mount time; empty lets the API
	// scope by the credential.
	ProjectID string
	// AssignedTo keeps only tasks assigned to this user when set.
	AssignedTo string
}

// Group sorts tasks into the Kanban columns in display order. Unknown
// statuses land in the backlog.
func Group(tasks []pactum.Task, assignedTo string) []Column {
	index := make(map[string]int, len(pactum.TaskStatuses))
	columns := make([]Column, len(pactum.TaskStatuses))
	for i, status := range pactum.TaskStatuses {
		index[status] = i
		columns[i] = Column{Status: status, Tasks: []pactum.Task{}}
	}
	for _, task := range tasks {
		if assignedTo != "" && task.AssignedTo != assignedTo {
			continue
		}
		i, ok := index[task.Status]
		if !ok {
			i = index[pactum.StatusBacklog]
		}
		columns[i].Tasks = append(columns[i].Tasks, task)
	}
	return columns
}

// Board is the server-side Kanban component. A mount lives as long as the
// browser keeps its stream open.
type Board struct {
	tasks  Lister
	bus    events.Bus
	logger *slog.Logger
}

// NewBoard constructs a Board.
func NewBoard(tasks Lister, bus events.Bus, logger *slog.Logger) *Board {
	return &Board{tasks: tasks, bus: bus, logger: logger}
}

type fetchResult struct {
	generation uint64
	tasks      []pactum.Task
	err        error
}

// Mount fetches the board for viewer and pushes it, then refetches on every
// tenant scope change until ctx is done. A scope change cancels the fetch in
// flight and starts exactly one new fetch for the new pointer; responses of
// superseded fetches are dropped. Mount returns nil on unmount, the error of
// push, or pactum.ErrAuthenticationExpired when the credential was lost.
func (b *Board) Mount(ctx context.Context, viewer Viewer, push func(BoardView) error) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	updates, err := b.bus.Subscribe(ctx, viewer.Scope, events.TopicTenantScope)
	if err != nil {
		return err
	}

	results := make(chan fetchResult)
	var (
		generation uint64
		version    int64
		projectID  = viewer.ProjectID
	)
	cancelFetch := b.fetch(ctx, &wg, generation, projectID, results)
	for {
		select {
		case <-ctx.Done():
			cancelFetch()
			return nil
		case evt, ok := <-updates:
			if !ok {
				cancelFetch()
				return nil
			}
			if evt.Version <= version {
				continue
			}
			version = evt.Version
			cancelFetch()
			generation++
			projectID = evt.ProjectID
			cancelFetch = b.fetch(ctx, &wg, generation, projectID, results)
		case res := <-results:
			if res.generation != generation || ctx.Err() != nil {
				continue
			}
			next := BoardView{ProjectID: projectID, Version: version}
			if res.err != nil {
				switch pactum.Classify(res.err) {
				case pactum.KindCanceled:
					continue
				case pactum.KindAuthExpired:
					return res.err
				}
				b.logger.Warn("board fetch failed", slog.String("project_id", projectID), slog.Any("error", res.err))
				next.Columns = Group(nil, "")
				next.Message = pactum.UserMessage(res.err)
			} else {
				next.Columns = Group(res.tasks, viewer.AssignedTo)
			}
			if err := push(next); err != nil {
				return err
			}
		}
	}
}

func (b *Board) fetch(ctx context.Context, wg *sync.WaitGroup, generation uint64, projectID string, results chan<- fetchResult) context.CancelFunc {
	fetchCtx, cancel := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		tasks, err := b.tasks.ListTasks(fetchCtx, pactum.TaskFilter{ProjectID: projectID})
		select {
		case results <- fetchResult{generation: generation, tasks: tasks, err: err}:
		case <-ctx.Done():
		}
	}()
	return cancel
}
