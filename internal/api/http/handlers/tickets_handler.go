package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	history *service.HistoryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, historyService *service.HistoryService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, history: historyService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal.User, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	c.Location("/api/tickets/" + ticket.UUID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	page, err := h.service.ListOwnTickets(c.UserContext(), principal.User, service.TicketListInput{
		Query:    c.Query("query"),
		Status:   c.Query("status"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketSummary(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:    items,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasNext:  page.HasNext,
	}})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ref, err := service.ParseTicketRef(c.Params("id"))
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal.User, ref)
	if err != nil {
		return err
	}
	markDeprecatedRef(c, ref, ticket)
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateTicket PATCH /api/tickets/:id. The only supported change is the
// close transition.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ref, err := service.ParseTicketRef(c.Params("id"))
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status != nil && !strings.EqualFold(strings.TrimSpace(*req.Status), string(domain.TicketStatusSolved)) {
		return apperrors.NewValidationError("status can only be set to solved", map[string]any{"status": *req.Status})
	}

	ticket, err := h.service.CloseTicket(c.UserContext(), principal.User, ref, req.Resolution)
	if err != nil {
		return err
	}
	markDeprecatedRef(c, ref, ticket)
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ref, err := service.ParseTicketRef(c.Params("id"))
	if err != nil {
		return err
	}
	ticket, err := h.service.DeleteTicket(c.UserContext(), principal.User, ref)
	if err != nil {
		return err
	}
	markDeprecatedRef(c, ref, ticket)
	return c.SendStatus(http.StatusNoContent)
}

// ListHistory GET /api/tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ref, err := service.ParseTicketRef(c.Params("id"))
	if err != nil {
		return err
	}
	entries, ticket, err := h.history.ListForTicket(c.UserContext(), principal.User, ref)
	if err != nil {
		return err
	}
	markDeprecatedRef(c, ref, ticket)
	items := make([]dto.TicketHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryEntry{
			ID:          entry.ID,
			ChangeType:  string(entry.ChangeType),
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// markDeprecatedRef points numeric-alias callers at the canonical URL.
func markDeprecatedRef(c *fiber.Ctx, ref service.TicketRef, ticket *domain.Ticket) {
	if !ref.IsAlias() {
		return
	}
	c.Set("Deprecation", "true")
	c.Set("Link", fmt.Sprintf(`</api/tickets/%s>; rel="canonical"`, ticket.UUID))
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:         ticket.UUID,
		Number:     ticket.Number,
		Key:        ticket.Key(),
		Subject:    ticket.Subject,
		Priority:   ticket.Priority,
		Status:     ticket.Status,
		Resolution: ticket.Resolution,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Description:   ticket.Description,
		UserID:        ticket.UserID,
		User: dto.TicketOwner{
			ID:    ticket.UserID,
			Name:  ticket.OwnerName,
			Email: ticket.OwnerEmail,
		},
	}
}
