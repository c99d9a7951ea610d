package projects_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/projects"
	"github.com/pactum-saas/pactum-web/internal/shared"
	_ "github.com/pactum-saas/pactum-web/internal/testing/guard"
	"github.com/pactum-saas/pactum-web/internal/testing/pagetest"
)

var (
	admin  = shared.Identity{ID: "adm", Name: "Admin Empresa", Email: "admin@empresa.com", Role: shared.RoleCompanyAdmin}
	owner  = shared.Identity{ID: "u1", Name: "Ursula Cliente", Email: "u@cliente.com", Role: shared.RoleUser}
	member = shared.Identity{ID: "tm1", Name: "Tomás Miembro", Email: "tm@empresa.com", Role: shared.RoleTeamMember}
)

type fakeAPI struct {
	mu        sync.Mutex
	projects  map[string]pactum.Project
	byClient  map[string]string
	payments  []pactum.Payment
	updated   []pactum.ProjectUpdate
	approved  []string
	updateErr error
	projectFn func() ([]pactum.Project, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		projects: map[string]pactum.Project{
			"p1": {ID: "p1", Name: "Portal Cliente", ClientID: "c1", Status: projects.ProjectInProgress, ProgressPercentage: 40},
			"p2": {ID: "p2", Name: "App Logística", ClientID: "c2", Status: projects.ProjectPlanning},
		},
		byClient: map[string]string{"c1": "p1", "c2": "p2"},
	}
}

func (f *fakeAPI) ListProjects(context.Context) ([]pactum.Project, error) {
	if f.projectFn != nil {
		return f.projectFn()
	}
	return []pactum.Project{f.projects["p1"]}, nil
}

func (f *fakeAPI) GetProject(_ context.Context, id string) (pactum.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return pactum.Project{}, &pactum.RejectedError{Op: "projects.get", Status: http.StatusNotFound}
	}
	return p, nil
}

func (f *fakeAPI) UpdateProject(_ context.Context, id string, in pactum.ProjectUpdate) (pactum.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return pactum.Project{}, f.updateErr
	}
	f.updated = append(f.updated, in)
	p := f.projects[id]
	p.Name = *in.Name
	return p, nil
}

func (f *fakeAPI) ProjectForClient(_ context.Context, clientID string) (pactum.Project, bool, error) {
	id, ok := f.byClient[clientID]
	if !ok {
		return pactum.Project{}, false, nil
	}
	return f.projects[id], true, nil
}

func (f *fakeAPI) ListClients(context.Context) ([]pactum.Client, error) {
	return []pactum.Client{{ID: "c1", Name: "Cliente Uno"}, {ID: "c2", Name: "Cliente Dos"}}, nil
}

func (f *fakeAPI) ListTasks(context.Context, pactum.TaskFilter) ([]pactum.Task, error) {
	return []pactum.Task{{ID: "t1", Status: pactum.StatusDone}, {ID: "t2", Status: pactum.StatusTodo}}, nil
}

func (f *fakeAPI) ListPhases(context.Context, string) ([]pactum.Phase, error) {
	return []pactum.Phase{{ID: "f1", Name: "Descubrimiento", Status: projects.PhaseDone, Week: 1}}, nil
}

func (f *fakeAPI) UpdatePhase(_ context.Context, id string, _ pactum.PhaseUpdate) (pactum.Phase, error) {
	return pactum.Phase{ID: id, ProjectID: "p1"}, nil
}

func (f *fakeAPI) ApprovePhase(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, id)
	return nil
}

func (f *fakeAPI) CommentPhase(context.Context, string, string) error { return nil }

func (f *fakeAPI) ListPayments(context.Context, string) ([]pactum.Payment, error) {
	return f.payments, nil
}

func (f *fakeAPI) UpdatePayment(_ context.Context, id string, in pactum.PaymentUpdate) (pactum.Payment, error) {
	return pactum.Payment{ID: id, ProjectID: "p1", Status: in.Status}, nil
}

func (f *fakeAPI) ListContracts(context.Context, string) ([]pactum.Document, error) {
	return []pactum.Document{{ID: "d1", Name: "contrato-firmado.pdf"}}, nil
}

func (f *fakeAPI) UploadContract(_ context.Context, projectID, filename string, _ io.Reader) (pactum.Document, error) {
	return pactum.Document{ID: "d2", ProjectID: projectID, Name: filename}, nil
}

func (f *fakeAPI) ListProjectDocuments(context.Context, string) ([]pactum.Document, error) {
	return nil, nil
}

func (f *fakeAPI) UploadProjectDocument(_ context.Context, projectID, _, filename string, _ io.Reader) (pactum.Document, error) {
	return pactum.Document{ID: "d3", ProjectID: projectID, Name: filename}, nil
}

func (f *fakeAPI) DeleteProjectDocument(context.Context, string, string) error { return nil }

func (f *fakeAPI) ActivityLogs(context.Context, string, int) ([]pactum.ActivityLog, error) {
	return []pactum.ActivityLog{{ID: "l1", EntityType: "task", Action: "update", UserName: "Ana"}}, nil
}

func (f *fakeAPI) ReassignmentHistory(context.Context) ([]pactum.Reassignment, error) {
	return []pactum.Reassignment{{ID: "r1", TaskTitle: "Diseñar login", FromUserName: "Ana", ToUserName: "Luis", Reason: "Vacaciones"}}, nil
}

func setup(t *testing.T, api *fakeAPI) (*pagetest.Harness, http.Handler) {
	t.Helper()
	h := pagetest.New(t)
	handler := projects.NewHandler(h.Logger, api, h.Bus, h.Pages)
	return h, h.Router(func(r chi.Router) { handler.MountRoutes(r) })
}

func subscribe(t *testing.T, bus events.Bus, scope string) <-chan events.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := bus.Subscribe(ctx, scope)
	require.NoError(t, err)
	return ch
}

func receive(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return events.Event{}
	}
}

func TestScopeSwitchPersistsPointerAndPublishes(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)
	updates := subscribe(t, h.Bus, sid)

	res := h.Do(router, pagetest.Form("/scope", url.Values{"client_id": {"c2"}, "return": {"/kanban"}}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/kanban", res.Header().Get("Location"))
	sess := h.Session(t, sid)
	assert.Equal(t, "c2", sess.Get(shared.KeyClientScope))
	assert.Equal(t, "p2", sess.Get(shared.KeyProjectScope))
	assert.Equal(t, "p2", sess.Get(shared.KeyViewingProject))

	evt := receive(t, updates)
	assert.Equal(t, events.TopicTenantScope, evt.Topic)
	assert.Equal(t, "p2", evt.ProjectID)
	assert.Equal(t, int64(1), evt.Version)
}

func TestScopeSwitchToSamePointerIsSilent(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)
	h.Scope(t, sid, "c1", "p1")
	updates := subscribe(t, h.Bus, sid)

	res := h.Do(router, pagetest.Form("/scope", url.Values{"client_id": {"c1"}}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	select {
	case evt := <-updates:
		t.Fatalf("unexpected event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScopeRejectsOffsiteReturn(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)

	res := h.Do(router, pagetest.Form("/scope", url.Values{"client_id": {"c1"}, "return": {"//evil.example"}}), sid)

	assert.Equal(t, "/proyecto", res.Header().Get("Location"))
}

func TestScopeClientWithoutProject(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)

	res := h.Do(router, pagetest.Form("/scope", url.Values{"client_id": {"c404"}}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, h.Session(t, sid).Get(shared.KeyProjectScope))
	assert.Contains(t, h.Flashes(t, sid), "El cliente seleccionado no tiene un proyecto asignado")
}

func TestScopeIsReservedToCompanyAdmins(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Form("/scope", url.Values{"client_id": {"c2"}}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/proyecto", res.Header().Get("Location"))
	assert.Empty(t, h.Session(t, sid).Get(shared.KeyClientScope))
}

func TestProjectPageForClientUser(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Get("/proyecto"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Portal Cliente")
	assert.Contains(t, res.Body.String(), "Descubrimiento")
}

func TestProjectPageAsksAdminToPickClient(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)

	res := h.Do(router, pagetest.Get("/proyecto"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Cliente Dos")
	assert.Contains(t, res.Body.String(), `action="/scope"`)
}

func TestProjectPageFollowsAdminScope(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)
	h.Scope(t, sid, "c2", "p2")

	res := h.Do(router, pagetest.Get("/proyecto"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "App Logística")
}

func TestProjectUpdatePublishesProjectUpdated(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)
	h.Scope(t, sid, "c1", "p1")
	updates := subscribe(t, h.Bus, sid)

	res := h.Do(router, pagetest.Form("/proyecto/p1", url.Values{
		"name":   {"Portal Cliente v2"},
		"status": {projects.ProjectInProgress},
	}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, api.updated, 1)
	assert.Equal(t, "Portal Cliente v2", *api.updated[0].Name)
	evt := receive(t, updates)
	assert.Equal(t, events.TopicProjectUpdated, evt.Topic)
	assert.Equal(t, "p1", evt.ProjectID)
}

func TestProjectUpdateValidatesStatus(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)
	h.Scope(t, sid, "c1", "p1")

	res := h.Do(router, pagetest.Form("/proyecto/p1", url.Values{
		"name":   {"Portal renombrado"},
		"status": {"cerrado"},
		"notes":  {"Notas sin guardar"},
	}), sid)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, api.updated)
	assert.Contains(t, res.Body.String(), `value="Portal renombrado"`)
	assert.Contains(t, res.Body.String(), "Notas sin guardar")
}

func TestProjectUpdateFailureKeepsSubmittedValues(t *testing.T) {
	failures := map[string]error{
		"server":  &pactum.RejectedError{Op: "projects.update", Status: http.StatusInternalServerError},
		"network": fmt.Errorf("projects.update: %w", pactum.ErrNetwork),
	}
	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			api := newFakeAPI()
			api.updateErr = failure
			h, router := setup(t, api)
			sid := h.SignIn(t, admin)
			h.Scope(t, sid, "c1", "p1")

			res := h.Do(router, pagetest.Form("/proyecto/p1", url.Values{
				"name":   {"Portal renombrado"},
				"status": {projects.ProjectPaused},
				"notes":  {"Notas sin guardar"},
			}), sid)

			assert.Equal(t, http.StatusBadGateway, res.Code)
			body := res.Body.String()
			assert.Contains(t, body, `value="Portal renombrado"`)
			assert.Contains(t, body, "Notas sin guardar")
			assert.Contains(t, body, pactum.UserMessage(failure))
		})
	}
}

func TestTeamMemberIsSentToTasksFromPayments(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, member)

	res := h.Do(router, pagetest.Get("/pagos"), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/tareas", res.Header().Get("Location"))
}

func TestPaymentsFlagDelays(t *testing.T) {
	api := newFakeAPI()
	api.payments = []pactum.Payment{
		{ID: "pay1", Description: "Anticipo", Status: projects.PaymentPaid, AmountUSD: 1500},
		{ID: "pay2", Description: "Entrega fase 2", Status: projects.PaymentPending, AmountUSD: 800, DueDate: "2020-01-01"},
	}
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Get("/pagos"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Entrega fase 2")
	assert.Contains(t, body, "Retrasado")
}

func TestApprovePhase(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)

	res := h.Do(router, pagetest.Form("/fases/f1/aprobar", url.Values{}), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, []string{"f1"}, api.approved)
	assert.Contains(t, h.Flashes(t, sid), "Fase aprobada")
}

func TestReassignmentHistory(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, admin)

	res := h.Do(router, pagetest.Get("/reasignaciones"), sid)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Vacaciones")
}

func TestProjectFetchLosingCredentialRedirectsToLogin(t *testing.T) {
	api := newFakeAPI()
	h, router := setup(t, api)
	sid := h.SignIn(t, owner)
	api.projectFn = func() ([]pactum.Project, error) {
		return nil, pactum.ErrAuthenticationExpired
	}

	res := h.Do(router, pagetest.Get("/proyecto"), sid)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))
}
