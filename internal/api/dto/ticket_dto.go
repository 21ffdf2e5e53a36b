package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string `json:"subject" form:"subject"`
	Description string `json:"description" form:"description"`
	Priority    string `json:"priority" form:"priority"`
}

// UpdateTicketRequest payload. Status may be omitted; the only accepted
// value is "solved".
type UpdateTicketRequest struct {
	Status     *string `json:"status"`
	Resolution string  `json:"resolution" form:"resolution"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string              `json:"id"`
	Number     int64               `json:"number"`
	Key        string              `json:"key"`
	Subject    string              `json:"subject"`
	Priority   string              `json:"priority"`
	Status     domain.TicketStatus `json:"status"`
	Resolution *string             `json:"resolution"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// TicketOwner is the embedded owner block on ticket details.
type TicketOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string      `json:"description"`
	UserID      string      `json:"userId"`
	User        TicketOwner `json:"user"`
}

// TicketListResponse wraps one page of tickets.
type TicketListResponse struct {
	Items    []TicketSummary `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	HasNext  bool            `json:"hasNext"`
}

// MarkdownPreviewRequest payload.
type MarkdownPreviewRequest struct {
	Text string `json:"text"`
}

// TicketHistoryEntry is one audit trail row.
type TicketHistoryEntry struct {
	ID          string         `json:"id"`
	ChangeType  string         `json:"changeType"`
	ChangedByID *string        `json:"changedBy,omitempty"`
	OldValue    map[string]any `json:"oldValue,omitempty"`
	NewValue    map[string]any `json:"newValue,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
