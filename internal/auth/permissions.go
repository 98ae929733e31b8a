package auth

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermDeviceRead   Permission = "device:read"
	PermDeviceWrite  Permission = "device:write"
	PermDeviceDelete Permission = "device:delete"
	PermImport       Permission = "inventory:import"
	PermExport       Permission = "inventory:export"
	PermMaintenance  Permission = "system:maintenance"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermDeviceRead,
		PermExport,
	},
	RoleOperator: {
		PermDeviceRead,
		PermExport,
		PermDeviceWrite,
		PermImport,
	},
	RoleAdmin: {
		PermDeviceRead,
		PermExport,
		PermDeviceWrite,
		PermImport,
		PermDeviceDelete,
		PermMaintenance,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
