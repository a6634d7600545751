package rbac

// Resource and action names used by the permission matrix.
const (
	ResourceLeads    = "leads"
	ResourceAccounts = "accounts"
	ResourceUsers    = "users"
	ResourceStages   = "stages"

	ActionView          = "view"
	ActionCreate        = "create"
	ActionEdit          = "edit"
	ActionAssign        = "assign"
	ActionDelete        = "delete"
	ActionResetPassword = "reset_password"
)

type actionSet map[string]struct{}

func actions(names ...string) actionSet {
	s := make(actionSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Matrix is the static role -> resource -> actions table. Every role has an
// entry for every resource, possibly empty. Lookups never short-circuit on
// Admin here; the route guard owns that bypass.
type Matrix struct {
	entries map[Role]map[string]actionSet
}

// NewMatrix returns the process-wide permission table.
func NewMatrix() *Matrix {
	return &Matrix{
		entries: map[Role]map[string]actionSet{
			RoleAdmin: {
				ResourceLeads:    actions(ActionView, ActionCreate, ActionEdit, ActionAssign, ActionDelete),
				ResourceAccounts: actions(ActionView, ActionCreate, ActionEdit, ActionDelete),
				ResourceUsers:    actions(ActionView, ActionCreate, ActionEdit, ActionDelete, ActionResetPassword),
				ResourceStages:   actions(ActionView),
			},
			RoleBD: {
				ResourceLeads:    actions(ActionView, ActionCreate, ActionEdit, ActionAssign),
				ResourceAccounts: actions(ActionView, ActionCreate, ActionEdit),
				ResourceUsers:    actions(ActionView),
				ResourceStages:   actions(ActionView),
			},
			RoleSales: {
				ResourceLeads:    actions(ActionView, ActionCreate, ActionEdit),
				ResourceAccounts: actions(ActionView, ActionEdit),
				ResourceUsers:    actions(),
				ResourceStages:   actions(ActionView),
			},
			RoleTelecaller: {
				ResourceLeads:    actions(ActionView, ActionEdit),
				ResourceAccounts: actions(ActionView),
				ResourceUsers:    actions(),
				ResourceStages:   actions(ActionView),
			},
			RoleIntern: {
				ResourceLeads:    actions(ActionView),
				ResourceAccounts: actions(ActionView),
				ResourceUsers:    actions(),
				ResourceStages:   actions(ActionView),
			},
		},
	}
}

// Can reports whether role may perform action on resource. Unknown roles fall
// back to the Intern entry; unknown resources deny. Fail closed.
func (m *Matrix) Can(role Role, resource, action string) bool {
	entry, ok := m.entries[role]
	if !ok {
		entry = m.entries[RoleIntern]
	}

	res, ok := entry[resource]
	if !ok {
		return false
	}

	_, ok = res[action]
	return ok
}

// Resources returns the resource names the matrix knows about.
func (m *Matrix) Resources() []string {
	return []string{ResourceLeads, ResourceAccounts, ResourceUsers, ResourceStages}
}
