package shared

import "strings"

// Role is the closed set of capabilities an identity can carry.
type Role string

// Roles issued by the Pactum API.
const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleUser         Role = "USER"
	RoleTeamMember   Role = "TEAM_MEMBER"
)

// Identity describes the authenticated actor as returned by the API.
type Identity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// HasRole reports whether the identity holds one of the given roles.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// Initials returns up to two uppercase initials of the display name.
func (i *Identity) Initials() string {
	if i == nil || strings.TrimSpace(i.Name) == "" {
		return "U"
	}
	var b strings.Builder
	for _, part := range strings.Fields(i.Name) {
		b.WriteString(strings.ToUpper(string([]rune(part)[:1])))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}

// SessionState is the read-only view of the session store.
type SessionState struct {
	User    *Identity
	Loading bool
}

// Authenticated reports whether a resolved identity is present.
func (s SessionState) Authenticated() bool {
	return !s.Loading && s.User != nil
}
