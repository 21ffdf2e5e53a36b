package domain

import "time"

// Session describes an issued session token.
type Session struct {
	ID        string
	UserID    string
	Role      Role
	IsActive  bool
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
