package model

import "strings"

// Role is the authority name the backend assigns to a user.
type Role string

const (
	RoleAdmin      Role = "ROLE_ADMIN"
	RoleEngineer   Role = "ROLE_INGENIEUR"
	RoleTechnician Role = "ROLE_TECHNICIEN"
)

// Roles lists every role the backend knows about, in display order.
var Roles = []Role{RoleAdmin, RoleEngineer, RoleTechnician}

// Label returns a short human-readable name for the role.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleEngineer:
		return "Engineer"
	case RoleTechnician:
		return "Technician"
	default:
		return strings.TrimPrefix(string(r), "ROLE_")
	}
}

// Session is the authenticated identity of the current user.
// The backend is the source of truth; this is only a client-side mirror.
type Session struct {
	// UserID is the backend's numeric user ID, kept as a string.
	UserID string `json:"id"`

	// DisplayName is "First Last" as returned at login.
	DisplayName string `json:"name"`

	// Email is the login identifier.
	Email string `json:"email"`

	// Role controls which views are reachable.
	Role Role `json:"role"`

	// Token is the bearer token used for HTTP and the real-time channel.
	Token string `json:"token"`
}

// Valid reports whether the session carries every required field.
// A partial session is treated as unauthenticated.
func (s Session) Valid() bool {
	return s.Token != "" && s.UserID != "" && s.Email != "" && s.Role != ""
}

// Name returns the display name, falling back to the local part of the email.
func (s Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if i := strings.Index(s.Email, "@"); i > 0 {
		return s.Email[:i]
	}
	return s.Email
}

// HasRole reports whether the session's role is one of roles.
func (s Session) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
