package domain

import "time"

// Role enumerates account roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account that submits tickets or administers the desk.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PendingApproval reports whether the approval gate blocks this account.
// Only USER accounts are gated; administrators pass regardless of the flag.
func (u *User) PendingApproval() bool {
	return u != nil && u.Role == RoleUser && !u.IsActive
}
