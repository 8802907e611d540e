package operator

import "time"

// Role grants access to operations.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Operator is an authenticated identity acting on the lot.
type Operator struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// IsAdmin reports whether the operator has the admin role.
func (o Operator) IsAdmin() bool {
	return o.Role == RoleAdmin
}
