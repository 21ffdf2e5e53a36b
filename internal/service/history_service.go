package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// HistoryService keeps the per-ticket audit trail, fed by ticket events.
type HistoryService struct {
	history repository.TicketHistoryRepository
	tickets *TicketService
	logger  *zap.Logger
}

// HistoryDependencies bundles collaborators for the history service.
type HistoryDependencies struct {
	HistoryRepo   repository.TicketHistoryRepository
	TicketService *TicketService
	Logger        *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(deps HistoryDependencies) *HistoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{history: deps.HistoryRepo, tickets: deps.TicketService, logger: logger}
}

// RegisterHandlers subscribes the recorder to ticket events.
func (s *HistoryService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, s.recordCreated)
	dispatcher.Subscribe(events.EventTicketSolved, s.recordSolved)
}

// ListForTicket returns the trail of a ticket the caller may read.
func (s *HistoryService) ListForTicket(ctx context.Context, caller *domain.User, ref TicketRef) ([]domain.TicketHistory, *domain.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, caller, ref)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticket.UUID)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return entries, ticket, nil
}

func (s *HistoryService) recordCreated(ctx context.Context, event events.Event) error {
	newValue := map[string]any{"status": string(domain.TicketStatusOpen)}
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		newValue["priority"] = payload.Priority
	}
	return s.record(ctx, event, domain.ChangeTypeCreated, nil, newValue)
}

func (s *HistoryService) recordSolved(ctx context.Context, event events.Event) error {
	return s.record(ctx, event, domain.ChangeTypeStatus,
		map[string]any{"status": string(domain.TicketStatusOpen)},
		map[string]any{"status": string(domain.TicketStatusSolved)})
}

func (s *HistoryService) record(ctx context.Context, event events.Event, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	entry := &domain.TicketHistory{
		TicketUUID: event.SubjectID,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if event.ActorID != "" {
		actor := event.ActorID
		entry.ChangedByID = &actor
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("record ticket history failed",
			zap.String("ticket_id", event.SubjectID),
			zap.String("change_type", string(change)),
			zap.Error(err))
		return err
	}
	return nil
}
