package auth

import "errors"

// Role represents an authorisation tier.
type Role string

const (
	// RoleViewer can read the registry and its history.
	RoleViewer Role = "viewer"

	// RoleOperator registers and relocates devices.
	RoleOperator Role = "operator"

	// RoleAdmin can also delete devices and run maintenance.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role in ascending privilege.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// Can reports whether the principal holds perm.
func (p *Principal) Can(perm Permission) bool {
	return p != nil && HasPermission(p.Role, perm)
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
