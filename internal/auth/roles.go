package auth

// Role is the access level carried in a monitor API token. Viewer covers the
// read-only status, cycle, and export endpoints; operator and admin cover
// everything else.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleOrder = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// ParseRole maps a claim value onto a known role.
func ParseRole(value string) (Role, bool) {
	role := Role(value)
	if _, known := roleOrder[role]; !known {
		return "", false
	}
	return role, true
}

// Satisfies reports whether the role grants at least the required level.
func (r Role) Satisfies(required Role) bool {
	return roleOrder[r] >= roleOrder[required]
}
