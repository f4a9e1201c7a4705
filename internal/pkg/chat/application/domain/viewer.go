package chat

// Role identifies which surface of the platform the caller belongs to.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor || r == RoleAdmin
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

func (r Role) IsVendor() bool { return r == RoleVendor }

// Viewer is the authenticated identity a derived closure state is computed
// for. It is constructed by the auth middleware and passed explicitly down the
// pipeline; nothing reads it from ambient request state.
type Viewer struct {
	UserID string
	Role   Role
}
