package rbac

// Role is the closed set of user classes. The set is not extensible at
// runtime; anything the database hands us that is not in this set resolves
// to Intern, the most restrictive role.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleBD         Role = "BD"
	RoleSales      Role = "Sales"
	RoleTelecaller Role = "Telecaller"
	RoleIntern     Role = "Intern"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:      {},
	RoleBD:         {},
	RoleSales:      {},
	RoleTelecaller: {},
	RoleIntern:     {},
}

// ResolveRole maps an arbitrary role string to a Role. Unknown input resolves
// to Intern rather than failing, so a bad row in the users table downgrades
// access instead of breaking logins.
func ResolveRole(s string) Role {
	r := Role(s)
	if _, ok := knownRoles[r]; ok {
		return r
	}
	return RoleIntern
}

// IsKnown reports whether s names a member of the closed role set.
func IsKnown(s string) bool {
	_, ok := knownRoles[Role(s)]
	return ok
}

// Roles returns all roles, Admin first.
func Roles() []Role {
	return []Role{RoleAdmin, RoleBD, RoleSales, RoleTelecaller, RoleIntern}
}
