package rbac

import "github.com/pactum-saas/pactum-web/internal/shared"

// Decide evaluates the route table for path against the session snapshot.
// Denials always resolve to a redirect; there is no error outcome.
func (t Table) Decide(path string, s shared.SessionState) Decision {
	if s.Loading {
		return Decision{Action: ActionLoading}
	}
	rule, ok := t.Lookup(path)
	if !ok {
		return Decision{Action: ActionRedirect, Location: PathHome}
	}
	if rule.Public {
		return Decision{Action: ActionRender}
	}
	if rule.GuestOnly {
		if s.User != nil {
			return Decision{Action: ActionRedirect, Location: DefaultLanding(s.User.Role)}
		}
		return Decision{Action: ActionRender}
	}
	if s.User == nil {
		return Decision{Action: ActionRedirect, Location: PathLogin}
	}
	if Allows(rule, s.User) {
		return Decision{Action: ActionRender}
	}
	return Decision{Action: ActionRedirect, Location: fallbackFor(rule, s.User.Role)}
}

// Allows reports whether id satisfies the role set and predicate of rule.
func Allows(rule Rule, id *shared.Identity) bool {
	if id == nil {
		return false
	}
	if len(rule.Roles) > 0 && !id.HasRole(rule.Roles...) {
		return false
	}
	if rule.Predicate != nil && !rule.Predicate(id) {
		return false
	}
	return true
}

func fallbackFor(rule Rule, role shared.Role) string {
	if target, ok := rule.Fallback[role]; ok && target != "" {
		return target
	}
	return DefaultLanding(role)
}
