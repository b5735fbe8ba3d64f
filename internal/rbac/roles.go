package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleVisitor  = "visitor"
	RolePIC      = "pic"
	RoleManager  = "manager"
	RoleSecurity = "security"
	RoleAdmin    = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsPrivileged reports roles that may act on permits they do not own
// (cancellation on behalf of a visitor, credential regeneration).
func IsPrivileged(role string) bool {
	switch role {
	case RolePIC, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}
