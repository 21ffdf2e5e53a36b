package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrResolutionRequired rejects a close without a usable resolution note.
var ErrResolutionRequired = apperrors.NewValidationError("Resolution message is required to close a ticket", nil)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    string
}

// TicketListInput describes an owner's listing request.
type TicketListInput struct {
	Query    string
	Status   string
	Page     int
	PageSize int
}

// TicketPage is one page of listing results.
type TicketPage struct {
	Items    []domain.Ticket
	Page     int
	PageSize int
	HasNext  bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket opens a ticket owned by the caller.
func (s *TicketService) CreateTicket(ctx context.Context, caller *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		UUID:        uuid.NewString(),
		UserID:      caller.ID,
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Priority:    strings.TrimSpace(input.Priority),
		Status:      domain.TicketStatusOpen,
	}

	missing := []string{}
	if ticket.Subject == "" {
		missing = append(missing, "subject")
	}
	if ticket.Description == "" {
		missing = append(missing, "description")
	}
	if ticket.Priority == "" {
		missing = append(missing, "priority")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("All fields are required", map[string]any{"missing": missing})
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.OwnerName = caller.Name
	ticket.OwnerEmail = caller.Email

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.UUID,
		ActorID:   caller.ID,
		Payload: events.TicketCreatedPayload{
			Number:   ticket.Number,
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// ListOwnTickets returns the caller's tickets, newest first.
func (s *TicketService) ListOwnTickets(ctx context.Context, caller *domain.User, input TicketListInput) (*TicketPage, error) {
	page := input.Page
	if page <= 0 {
		page = 1
	}
	size := input.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	filter := repository.TicketFilter{
		UserID: &caller.ID,
		Limit:  size + 1,
		Offset: (page - 1) * size,
	}
	if status := strings.ToLower(strings.TrimSpace(input.Status)); status != "" {
		st := domain.TicketStatus(status)
		if !st.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": input.Status})
		}
		filter.Statuses = []domain.TicketStatus{st}
	}
	if query := strings.TrimSpace(input.Query); query != "" {
		filter.SearchTerm = &query
	}

	items, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	result := &TicketPage{Items: items, Page: page, PageSize: size}
	if len(items) > size {
		result.Items = items[:size]
		result.HasNext = true
	}
	return result, nil
}

// Resolve loads the ticket a ref points at.
func (s *TicketService) Resolve(ctx context.Context, ref TicketRef) (*domain.Ticket, error) {
	var (
		ticket *domain.Ticket
		err    error
	)
	switch {
	case ref.UUID != "":
		ticket, err = s.tickets.GetByUUID(ctx, ref.UUID)
	case ref.Number > 0:
		ticket, err = s.tickets.GetByNumber(ctx, ref.Number)
	default:
		return nil, apperrors.NewValidationError("invalid ticket id", nil)
	}
	if err != nil {
		return nil, ticketLookupError(err)
	}
	return ticket, nil
}

// GetTicket returns a ticket visible to its owner or an administrator.
func (s *TicketService) GetTicket(ctx context.Context, caller *domain.User, ref TicketRef) (*domain.Ticket, error) {
	ticket, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != caller.ID && !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("you do not have access to this ticket")
	}
	return ticket, nil
}

// CloseTicket moves an open ticket to solved. Only the owner may close and
// the trimmed resolution must be non-empty.
func (s *TicketService) CloseTicket(ctx context.Context, caller *domain.User, ref TicketRef, resolution string) (*domain.Ticket, error) {
	ticket, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != caller.ID {
		return nil, apperrors.NewForbidden("only the ticket owner can close this ticket")
	}
	note := strings.TrimSpace(resolution)
	if note == "" {
		return nil, ErrResolutionRequired
	}
	if ticket.IsSolved() {
		return nil, apperrors.NewConflict("ticket is already solved", map[string]any{"id": ticket.UUID})
	}

	ticket.Status = domain.TicketStatusSolved
	ticket.Resolution = &note
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, ticketLookupError(err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketSolved,
		SubjectID: ticket.UUID,
		ActorID:   caller.ID,
		Payload:   events.TicketSolvedPayload{Number: ticket.Number, Resolution: note},
	})
	return ticket, nil
}

// DeleteTicket removes a ticket. Only the owner may delete.
func (s *TicketService) DeleteTicket(ctx context.Context, caller *domain.User, ref TicketRef) (*domain.Ticket, error) {
	ticket, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != caller.ID {
		return nil, apperrors.NewForbidden("only the ticket owner can delete this ticket")
	}
	if err := s.tickets.Delete(ctx, ticket.UUID); err != nil {
		return nil, ticketLookupError(err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketDeleted,
		SubjectID: ticket.UUID,
		ActorID:   caller.ID,
	})
	return ticket, nil
}

func ticketLookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}
