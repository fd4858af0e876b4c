package models

// Role is the marketplace role an actor is acting in.
type Role string

const (
	RoleRenter   Role = "RENTER"
	RoleLandlord Role = "LANDLORD"
	RoleAdmin    Role = "ADMIN"
	// RoleSystem is used by webhooks and scheduled jobs.
	RoleSystem Role = "SYSTEM"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleRenter, RoleLandlord, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who is performing an operation. It is passed explicitly into
// every service call.
type Actor struct {
	ID   uint `json:"id"`
	Role Role `json:"role"`
}

// SystemActor is the actor used for webhook deliveries and scheduled jobs.
func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// IsPrivileged reports whether the actor bypasses ownership checks.
func (a Actor) IsPrivileged() bool {
	return a.IsAdmin() || a.IsSystem()
}
