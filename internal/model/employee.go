package model

import (
	"encoding/json"
	"strconv"
)

// RoleRef is the backend's nested role object ({"name": "ROLE_ADMIN"}).
type RoleRef struct {
	Name Role `json:"name"`
}

// Employee is a user account as listed by the admin endpoints.
type Employee struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Role      RoleRef `json:"role"`
}

// FullName returns "First Last".
func (e Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	default:
		return e.FirstName + " " + e.LastName
	}
}

// IDString returns the numeric ID as a string.
func (e Employee) IDString() string {
	return strconv.FormatInt(e.ID, 10)
}

// EmployeeInput is the create/update payload for /admin/users.
// Password is required on create and optional on update.
type EmployeeInput struct {
	Email     string  `json:"email,omitempty" validate:"required,email"`
	FirstName string  `json:"firstName,omitempty" validate:"required"`
	LastName  string  `json:"lastName,omitempty" validate:"required"`
	Password  string  `json:"password,omitempty" validate:"omitempty,min=6"`
	Latitude  float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Role      Role    `json:"-" validate:"required,oneof=ROLE_ADMIN ROLE_INGENIEUR ROLE_TECHNICIEN"`
}

// MarshalJSON nests the role the way the backend expects it.
func (in EmployeeInput) MarshalJSON() ([]byte, error) {
	type alias EmployeeInput
	return json.Marshal(struct {
		alias
		Role *RoleRef `json:"role,omitempty"`
	}{
		alias: alias(in),
		Role:  roleRef(in.Role),
	})
}

func roleRef(r Role) *RoleRef {
	if r == "" {
		return nil
	}
	return &RoleRef{Name: r}
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=6"`
	ConfirmPassword string  `json:"-" validate:"eqfield=Password"`
	FirstName       string  `json:"firstName" validate:"required"`
	LastName        string  `json:"lastName" validate:"required"`
	Latitude        float64 `json:"latitude" validate:"latitude"`
	Longitude       float64 `json:"longitude" validate:"longitude"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the backend's reply to a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	Email string      `json:"email"`
	Role  Role        `json:"role"`
	Name  string      `json:"name"`
	ID    json.Number `json:"id"`
}

// Session converts the login reply into a session.
func (r LoginResponse) Session() Session {
	return Session{
		UserID:      r.ID.String(),
		DisplayName: r.Name,
		Email:       r.Email,
		Role:        r.Role,
		Token:       r.Token,
	}
}

// CountByRole tallies employees per role.
func CountByRole(list []Employee) map[Role]int {
	counts := make(map[Role]int, len(Roles))
	for _, e := range list {
		counts[e.Role.Name]++
	}
	return counts
}
