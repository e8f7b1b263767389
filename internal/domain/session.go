package domain

// Capability is resolved once per session from the user's role and decides
// which station view is mounted.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityWaiterView
	CapabilityAdminView
)

func (c Capability) String() string {
	switch c {
	case CapabilityAdminView:
		return "admin-view"
	case CapabilityWaiterView:
		return "waiter-view"
	default:
		return "none"
	}
}

func ResolveCapability(role Role) Capability {
	switch role {
	case RoleAdmin:
		return CapabilityAdminView
	case RoleWaiter:
		return CapabilityWaiterView
	default:
		return CapabilityNone
	}
}

// Session is the authenticated identity of one operator. The three fields
// are set and cleared together.
type Session struct {
	Token    string `json:"token"`
	Role     Role   `json:"role"`
	Username string `json:"username"`
}

func (s Session) Valid() bool {
	return s.Token != "" && s.Role.Valid() && s.Username != ""
}

func (s Session) Capability() Capability {
	if !s.Valid() {
		return CapabilityNone
	}
	return ResolveCapability(s.Role)
}
