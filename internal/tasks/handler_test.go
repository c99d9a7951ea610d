package tasks_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/tasks"
	_ "github.com/pactum-saas/pactum-web/internal/testing/guard"
	"github.com/pactum-saas/pactum-web/internal/testing/pagetest"
)

var (
	admin  = shared.Identity{ID: "adm", Name: "Admin Empresa", Email: "admin@empresa.com", Role: shared.RoleCompanyAdmin}
	member = shared.Identity{ID: "tm1", Name: "Tomás Miembro", Email: "tm@empresa.com", Role: shared.RoleTeamMember}
	owner  = shared.Identity{ID: "u1", Name: "Ursula Cliente", Email: "u@cliente.com", Role: shared.RoleUser}
)

type fakeAPI struct {
	mu       sync.Mutex
	tasks    []pactum.Task
	listErr  error
	filters  []pactum.TaskFilter
	created  []pactum.TaskInput
	moved    map[string]string
	deleted  []string
	comments []string
	moveErr  error
}

func (f *fakeAPI) ListTasks(_ context.Context, filter pactum.TaskFilter) ([]pactum.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.tasks, f.listErr
}

func (f *fakeAPI) CreateTask(_ context.Context, in pactum.TaskInput) (pactum.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return pactum.Task{ID: "new", ProjectID: in.ProjectID, Title: in.Title, Status: in.Status}, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id string, in pactum.TaskInput) (pactum.Task, error) {
	return pactum.Task{ID: id, Title: in.Title}, nil
}

func (f *fakeAPI) MoveTask(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	if f.moved == nil {
		f.moved = map[string]string{}
	}
	f.moved[id] = status
	return nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) ReassignTask(context.Context, string, pactum.ReassignInput) error { return nil }

func (f *fakeAPI) ListTaskComments(context.Context, string) ([]pactum.Comment, error) {
	return []pactum.Comment{{ID: "c1", Text: "Revisado por QA", UserName: "Ana"}}, nil
}

func (f *fakeAPI) AddTaskComment(_ context.Context, _ string, text string, audio *pactum.FilePart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if audio != nil {
		data, _ := io.ReadAll(audio.Content)
		text += "+audio:" + string(data)
	}
	f.comments = append(f.comments, text)
	return nil
}

func (f *fakeAPI) ListTaskAttachments(context.Context, string) ([]pactum.Attachment, error) {
	return nil, nil
}

func (f *fakeAPI) UploadTaskAttachment(_ context.Context, _ string, filename string, _ io.Reader) (pactum.Attachment, error) {
	return pactum.Attachment{ID: "a1", Filename: filename}, nil
}

func (f *fakeAPI) DeleteTaskAttachment(context.Context, string, string) error { return nil }

func (f *fakeAPI) ListProjects(context.Context) ([]pactum.Project, error) {
	return []pactum.Project{{ID: "p1", Name: "Portal Cliente"}}, nil
}

func (f *fakeAPI) ListAssignableUsers(context.Context) ([]pactum.CompanyUser, error) {
	return []pactum.CompanyUser{{ID: "tm1", Name: "Tomás Miembro"}}, nil
}

func setup(t *testing.T, api *fakeAPI) (*pagetest.Harness, http.Handler) {
	t.Helper()
	h := pagetest.New(t)
	handler := tasks.NewHandler(h.Logger, api, tasks.NewBoard(api, h.Bus, h.Logger), h.Pages)
	return h, h.Router(func(r chi.Router) { handler.MountRoutes(r) })
}

func sampleTasks() []pactum.Task {
	return []pactum.Task{
		{ID: "t1", ProjectID: "p1", Title: "Diseñar login", Status: pactum.StatusTodo, Priority: "high", AssignedTo: "tm1"},
		{ID: "t2", ProjectID: "p1", Title: "Configurar CI", Status: pactum.StatusDone, Priority: "low", AssignedTo: "tm2"},
	}
}

func TestTeamMemberSeesOnlyOwnTasks(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	h, router := setup(t, api)
	sid := h.SignIn(t, member)

	res := h.Do(router, pagetest.Get("/tareas"), sid)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Diseñar login")
	assert.NotContains(t, res.Body.String(), "Configurar CI")

	res = h.Do(router, pagetest.Get("/tareas?todas=1"), sid)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Configurar CI")
}

func TestCompanyAdminListUsesTenantScope(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)
	h.Scope(t, sid, "c1", "p1")

	res := h.Do(router, pagetest.Get("/tareas"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotEmpty(t, api.filters)
	assert.Equal(t, "p1", api.filters[0].ProjectID)
}

func TestListRendersEmptyOnFailure(t *testing.T) {
	api := &fakeAPI{listErr: &pactum.RejectedError{Op: "tasks.list", Status: http.StatusInternalServerError, Detail: "base de datos caída"}}
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Get("/tareas"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), pactum.MsgGeneric)
}

func TestCreateTaskValidationKeepsInput(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)

	res := h.Do(router, pagetest.Form("/tareas", url.Values{
		"project_id": {"p1"},
		"title":      {"ab"},
		"priority":   {"medium"},
	}), sid)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), `value="ab"`)
	assert.Empty(t, api.created)
}

func TestCreateTaskDefaultsToBacklog(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)

	res := h.Do(router, pagetest.Form("/tareas", url.Values{
		"project_id": {"p1"},
		"title":      {"Integrar pagos"},
		"priority":   {"high"},
	}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, api.created, 1)
	assert.Equal(t, pactum.StatusBacklog, api.created[0].Status)
	assert.Contains(t, h.Flashes(t, sid), "Tarea creada")
}

func TestDeleteRequiresCompanyAdmin(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Form("/tareas/t1/eliminar", url.Values{}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, api.deleted)
}

func TestMoveTaskAnswersJSON(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, member)

	req := httptest.NewRequest(http.MethodPost, "/kanban/t1/estado", strings.NewReader(`{"status":"review"}`))
	req.Header.Set("Content-Type", "application/json")
	res := h.Do(router, req, sid)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"id":"t1","status":"review"}`, res.Body.String())
	assert.Equal(t, "review", api.moved["t1"])
}

func TestMoveTaskRejectsUnknownStatus(t *testing.T) {
	api := &fakeAPI{}
	h, router := setup(t, api)
	sid := h.SignIn(t, member)

	res := h.Do(router, pagetest.Form("/kanban/t1/estado", url.Values{"status": {"archived"}}), sid)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	assert.Empty(t, api.moved)
}

func TestMoveTaskPassesServerDetail(t *testing.T) {
	api := &fakeAPI{moveErr: &pactum.RejectedError{Op: "tasks.move", Status: http.StatusUnprocessableEntity, Detail: "La tarea está bloqueada"}}
	h, router := setup(t, api)
	sid := h.SignIn(t, member)

	res := h.Do(router, pagetest.Form("/kanban/t1/estado", url.Values{"status": {"done"}}), sid)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "La tarea está bloqueada")
}

func TestKanbanPageRendersColumns(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Get("/kanban"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	for _, label := range []string{"Backlog", "Por Hacer", "En Progreso", "En Revisión", "Completado"} {
		assert.Contains(t, body, label)
	}
	assert.Contains(t, body, "Configurar CI")
}

func TestTaskDetailShowsComments(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Get("/tareas/t1"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Revisado por QA")
}

func TestUnknownTaskRedirectsWithFlash(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Get("/tareas/nope"), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/tareas", res.Header().Get("Location"))
	assert.Contains(t, h.Flashes(t, sid), pactum.MsgNotFound)
}

func TestCommentRequiresContent(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Form("/tareas/t1/comentarios", url.Values{"text": {"  "}}), sid)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, api.comments)

	res = h.Do(router, pagetest.Form("/tareas/t1/comentarios", url.Values{"text": {"Listo para revisión"}}), sid)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, []string{"Listo para revisión"}, api.comments)
}
