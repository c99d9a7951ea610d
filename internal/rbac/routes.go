package rbac

import (
	"strings"

	"github.com/pactum-saas/pactum-web/internal/shared"
)

// Browser-facing paths.
const (
	PathHome              = "/"
	PathLogin             = "/login"
	PathLogout            = "/logout"
	PathRegister          = "/registro"
	PathPublicContracts   = "/contratos-pactum"
	PathPublicInvestments = "/inversiones"
	PathDashboard         = "/dashboard"
	PathProject           = "/proyecto"
	PathProjectDashboard  = "/dashboard-proyecto"
	PathTasks             = "/tareas"
	PathKanban            = "/kanban"
	PathPhases            = "/fases"
	PathPayments          = "/pagos"
	PathContract          = "/contrato"
	PathProjectActivities = "/actividades-proyecto"
	PathClients           = "/clientes"
	PathActivities        = "/actividades"
	PathFinance           = "/financiero"
	PathReassignments     = "/reasignaciones"
	PathAdmin             = "/admin"
	PathScope             = "/scope"
	PathEvents            = "/events"
)

// DefaultFinanceEmail is the only identity allowed to open the finance view
// unless configured otherwise.
const DefaultFinanceEmail = "admin@pactum.com"

// NavItem is one entry of the primary navigation.
type NavItem struct {
	Name string
	Href string
}

// DefaultLanding returns where a role lands after login or on denial.
func DefaultLanding(role shared.Role) string {
	switch role {
	case shared.RoleUser:
		return PathProject
	default:
		return PathDashboard
	}
}

// NavFor returns the primary navigation for role.
func NavFor(role shared.Role) []NavItem {
	switch role {
	case shared.RoleSuperAdmin:
		return []NavItem{{Name: "Dashboard", Href: PathDashboard}}
	case shared.RoleUser, shared.RoleTeamMember:
		return []NavItem{
			{Name: "Mi Proyecto", Href: PathProject},
			{Name: "Tareas", Href: PathTasks},
			{Name: "Tablero Kanban", Href: PathKanban},
		}
	default:
		return []NavItem{
			{Name: "Dashboard", Href: PathDashboard},
			{Name: "Clientes", Href: PathClients},
			{Name: "Actividades", Href: PathActivities},
		}
	}
}

// EmailIs builds the attribute predicate used by the finance view. The match
// is exact apart from case and surrounding space; it is never widened to a role.
func EmailIs(email string) Predicate {
	want := strings.ToLower(strings.TrimSpace(email))
	return func(id *shared.Identity) bool {
		if id == nil || want == "" {
			return false
		}
		return strings.ToLower(strings.TrimSpace(id.Email)) == want
	}
}

// notRole admits every identity except those holding role. Unknown roles are
// treated as company administrators and must keep a reachable landing.
func notRole(role shared.Role) Predicate {
	return func(id *shared.Identity) bool {
		return id != nil && id.Role != role
	}
}

// Table maps a first path segment ("/clientes") to its Rule.
type Table map[string]Rule

// NewTable builds the Pactum route table. financeEmail gates /financiero.
func NewTable(financeEmail string) Table {
	if strings.TrimSpace(financeEmail) == "" {
		financeEmail = DefaultFinanceEmail
	}
	toTasks := map[shared.Role]string{shared.RoleTeamMember: PathTasks}
	projectViewers := []shared.Role{shared.RoleUser, shared.RoleTeamMember, shared.RoleCompanyAdmin}
	projectOwners := []shared.Role{shared.RoleUser, shared.RoleCompanyAdmin}
	admins := []shared.Role{shared.RoleCompanyAdmin}

	return Table{
		PathHome:              {Public: true},
		PathPublicContracts:   {Public: true},
		PathPublicInvestments: {Public: true},
		PathLogin:             {GuestOnly: true},
		PathRegister:          {GuestOnly: true},

		PathDashboard:        {Predicate: notRole(shared.RoleUser)},
		PathProject:          {Roles: projectViewers},
		PathProjectDashboard: {Roles: projectOwners},
		PathTasks:            {Roles: projectViewers},
		PathKanban:           {Roles: projectViewers},

		PathPhases:            {Roles: projectOwners, Fallback: toTasks},
		PathPayments:          {Roles: projectOwners, Fallback: toTasks},
		PathContract:          {Roles: projectOwners, Fallback: toTasks},
		PathProjectActivities: {Roles: projectOwners, Fallback: toTasks},
		PathClients:           {Roles: admins, Fallback: toTasks},
		PathActivities:        {Roles: admins, Fallback: toTasks},

		PathReassignments: {Roles: admins},
		PathAdmin:         {Roles: admins},
		PathScope:         {Roles: admins},
		PathEvents:        {},
		PathFinance:       {Predicate: EmailIs(financeEmail)},
	}
}

// Lookup finds the rule governing path. Sub-paths inherit the rule of their
// first segment; "/" only matches itself.
func (t Table) Lookup(path string) (Rule, bool) {
	if path == "" {
		path = PathHome
	}
	if path == PathHome {
		rule, ok := t[PathHome]
		return rule, ok
	}
	trimmed := strings.TrimPrefix(path, "/")
	segment := trimmed
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		segment = trimmed[:i]
	}
	rule, ok := t["/"+segment]
	return rule, ok
}
