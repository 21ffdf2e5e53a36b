package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketSolved    EventType = "ticket_solved"
	EventTicketDeleted   EventType = "ticket_deleted"
	EventUserRegistered  EventType = "user_registered"
	EventUserApproved    EventType = "user_approved"
	EventUserRoleChanged EventType = "user_role_changed"
)

// AllTypes lists every event type, for sinks that mirror everything.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketSolved,
	EventTicketDeleted,
	EventUserRegistered,
	EventUserApproved,
	EventUserRoleChanged,
}

// Event represents a domain event emitted by services. SubjectID is the
// ticket uuid for ticket events and the user id for account events.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number   int64  `json:"number"`
	Subject  string `json:"subject"`
	Priority string `json:"priority"`
}

// TicketSolvedPayload payload.
type TicketSolvedPayload struct {
	Number     int64  `json:"number"`
	Resolution string `json:"resolution"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string `json:"email"`
}

// UserRoleChangedPayload payload.
type UserRoleChangedPayload struct {
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}
