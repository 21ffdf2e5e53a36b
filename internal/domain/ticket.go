package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusSolved TicketStatus = "solved"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusSolved
}

// Ticket is a user-submitted support request.
type Ticket struct {
	UUID        string
	Number      int64
	UserID      string
	Subject     string
	Description string
	Priority    string
	Status      TicketStatus
	Resolution  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Owner fields are populated by lookups that join users.
	OwnerName  string
	OwnerEmail string
}

// Key is the human-facing ticket number, e.g. INFO-0042.
func (t *Ticket) Key() string {
	return fmt.Sprintf("INFO-%04d", t.Number)
}

// IsSolved reports whether the ticket has been closed.
func (t *Ticket) IsSolved() bool {
	return t.Status == TicketStatusSolved
}
