package models

// Role defines what a portal user may do
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleCoordinator
}

// Actor identifies the authenticated user performing an operation, for audit
type Actor struct {
	UserID   int64
	Username string
	Role     Role
}
