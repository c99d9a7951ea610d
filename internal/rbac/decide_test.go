package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pactum-saas/pactum-web/internal/shared"
)

var allRoles = []shared.Role{shared.RoleSuperAdmin, shared.RoleCompanyAdmin, shared.RoleUser, shared.RoleTeamMember}

var protectedPaths = []string{
	PathDashboard, PathProject, PathProjectDashboard, PathTasks, PathKanban,
	PathPhases, PathPayments, PathContract, PathProjectActivities,
	PathClients, PathActivities, PathFinance, PathReassignments, PathAdmin,
}

func userWith(role shared.Role, email string) shared.SessionState {
	return shared.SessionState{User: &shared.Identity{ID: "u1", Name: "Ana", Email: email, Role: role}}
}

func TestDecideLoadingMakesNoDecision(t *testing.T) {
	table := NewTable("")
	for _, path := range append(protectedPaths, PathHome, PathLogin, "/nope") {
		d := table.Decide(path, shared.SessionState{Loading: true})
		assert.Equal(t, ActionLoading, d.Action, path)
		assert.Empty(t, d.Location, path)
	}
}

func TestDecideAnonymousGoesToLogin(t *testing.T) {
	table := NewTable("")
	for _, path := range protectedPaths {
		d := table.Decide(path, shared.SessionState{})
		assert.Equal(t, Decision{Action: ActionRedirect, Location: PathLogin}, d, path)
	}
	assert.Equal(t, ActionRender, table.Decide(PathLogin, shared.SessionState{}).Action)
	assert.Equal(t, ActionRender, table.Decide(PathHome, shared.SessionState{}).Action)
}

func TestDecideLoginRedirectsAuthenticatedToLanding(t *testing.T) {
	table := NewTable("")
	expected := map[shared.Role]string{
		shared.RoleSuperAdmin:   PathDashboard,
		shared.RoleCompanyAdmin: PathDashboard,
		shared.RoleTeamMember:   PathDashboard,
		shared.RoleUser:         PathProject,
	}
	for role, landing := range expected {
		d := table.Decide(PathLogin, userWith(role, "x@pactum.com"))
		assert.Equal(t, Decision{Action: ActionRedirect, Location: landing}, d, string(role))
	}
}

func TestDecideDenialAlwaysRedirectsToFallback(t *testing.T) {
	table := NewTable("")
	for _, role := range allRoles {
		state := userWith(role, "someone@pactum.com")
		for _, path := range protectedPaths {
			rule, ok := table.Lookup(path)
			assert.True(t, ok, path)
			d := table.Decide(path, state)
			if Allows(rule, state.User) {
				assert.Equal(t, ActionRender, d.Action, "%s %s", role, path)
				continue
			}
			assert.Equal(t, ActionRedirect, d.Action, "%s %s", role, path)
			want := DefaultLanding(role)
			if target, ok := rule.Fallback[role]; ok {
				want = target
			}
			assert.Equal(t, want, d.Location, "%s %s", role, path)

			// The landing itself must render so denial never loops.
			assert.Equal(t, ActionRender, table.Decide(d.Location, state).Action, "%s landing %s", role, d.Location)
		}
	}
}

func TestDecideTeamMemberBouncedToTasks(t *testing.T) {
	table := NewTable("")
	state := userWith(shared.RoleTeamMember, "dev@pactum.com")
	for _, path := range []string{PathPhases, PathPayments, PathContract, PathClients, PathActivities, PathProjectActivities, "/fases/abc"} {
		assert.Equal(t, Decision{Action: ActionRedirect, Location: PathTasks}, table.Decide(path, state), path)
	}
	assert.Equal(t, ActionRender, table.Decide(PathTasks, state).Action)
	assert.Equal(t, ActionRender, table.Decide(PathKanban, state).Action)
}

func TestDecideFinanceIsEmailPredicate(t *testing.T) {
	table := NewTable("admin@pactum.com")

	d := table.Decide(PathFinance, userWith(shared.RoleCompanyAdmin, "admin@pactum.com"))
	assert.Equal(t, ActionRender, d.Action)

	d = table.Decide(PathFinance, userWith(shared.RoleCompanyAdmin, "other@pactum.com"))
	assert.Equal(t, Decision{Action: ActionRedirect, Location: PathDashboard}, d)

	d = table.Decide(PathFinance, userWith(shared.RoleSuperAdmin, "root@pactum.com"))
	assert.Equal(t, Decision{Action: ActionRedirect, Location: PathDashboard}, d)

	d = table.Decide(PathFinance, userWith(shared.RoleUser, "admin@pactum.com"))
	assert.Equal(t, ActionRender, d.Action, "predicate is an attribute check, not a role check")
}

func TestDecideUnknownPathGoesHome(t *testing.T) {
	table := NewTable("")
	for _, state := range []shared.SessionState{{}, userWith(shared.RoleCompanyAdmin, "a@b.c")} {
		assert.Equal(t, Decision{Action: ActionRedirect, Location: PathHome}, table.Decide("/no-existe", state))
	}
}

func TestLookupSubPaths(t *testing.T) {
	table := NewTable("")
	rule, ok := table.Lookup("/clientes/42/editar")
	assert.True(t, ok)
	assert.Equal(t, []shared.Role{shared.RoleCompanyAdmin}, rule.Roles)

	_, ok = table.Lookup("/dashboard-proyecto")
	assert.True(t, ok)

	rule, ok = table.Lookup("/kanban/stream")
	assert.True(t, ok)
	assert.Len(t, rule.Roles, 3)
}

func TestNavForRoles(t *testing.T) {
	assert.Equal(t, []NavItem{{Name: "Dashboard", Href: PathDashboard}}, NavFor(shared.RoleSuperAdmin))
	assert.Equal(t, NavFor(shared.RoleUser), NavFor(shared.RoleTeamMember))
	assert.Len(t, NavFor(shared.RoleUser), 3)
	assert.Equal(t, "Clientes", NavFor(shared.RoleCompanyAdmin)[1].Name)
	assert.Equal(t, NavFor(shared.RoleCompanyAdmin), NavFor(shared.Role("SOMETHING_ELSE")))
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateResolving, StateOf(shared.SessionState{Loading: true}))
	assert.Equal(t, StateUnauthenticated, StateOf(shared.SessionState{}))
	assert.Equal(t, StateAuthenticated, StateOf(userWith(shared.RoleUser, "u@x.y")))
}
