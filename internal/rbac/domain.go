// Package rbac decides, per request path, whether the current session may see
// a page or must be redirected somewhere else.
package rbac

import "github.com/pactum-saas/pactum-web/internal/shared"

// Action is the outcome of an authorization decision.
type Action int

const (
	// ActionRender lets the page handler run.
	ActionRender Action = iota
	// ActionRedirect sends the visitor to Decision.Location.
	ActionRedirect
	// ActionLoading renders a neutral loading page; no decision was taken.
	ActionLoading
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionRedirect:
		return "redirect"
	case ActionLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a Rule against a session.
type Decision struct {
	Action   Action
	Location string
}

// State is the router state derived from the session snapshot.
type State int

const (
	StateResolving State = iota
	StateUnauthenticated
	StateAuthenticated
)

// StateOf derives the router state from a session snapshot.
func StateOf(s shared.SessionState) State {
	switch {
	case s.Loading:
		return StateResolving
	case s.User == nil:
		return StateUnauthenticated
	default:
		return StateAuthenticated
	}
}

// Predicate is an attribute check evaluated after the role check.
type Predicate func(id *shared.Identity) bool

// Rule declares who may see a path.
type Rule struct {
	// Public paths render for everyone, authenticated or not.
	Public bool
	// GuestOnly paths render only without a session; users go to their landing.
	GuestOnly bool
	// Roles lists the roles allowed; empty means any authenticated identity.
	Roles []shared.Role
	// Predicate must also hold when set.
	Predicate Predicate
	// Fallback overrides the redirect target for specific roles on denial.
	Fallback map[shared.Role]string
}

// SessionReader exposes the session snapshot to the router.
type SessionReader interface {
	Snapshot() shared.SessionState
}
