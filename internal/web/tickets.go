package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

type ticketListView struct {
	Tickets []domain.Ticket
	Query   string
	Status  string
	Page    int
	HasNext bool
}

type ticketView struct {
	Ticket   *domain.Ticket
	History  []domain.TicketHistory
	CanClose bool
}

// ListTickets GET /tickets.
func (h *Handler) ListTickets(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	input := service.TicketListInput{
		Query:  c.Query("query"),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
	}
	page, err := h.tickets.ListOwnTickets(c.UserContext(), principal.User, input)
	if err != nil {
		setFlash(c, flashFromError(err), h.cookieSecure)
		return c.Redirect("/tickets", http.StatusSeeOther)
	}
	view := ticketListView{
		Tickets: page.Items,
		Query:   input.Query,
		Status:  input.Status,
		Page:    page.Page,
		HasNext: page.HasNext,
	}
	return h.views.render(c, http.StatusOK, "tickets", h.page(c, "My tickets", view))
}

// CreateTicket POST /tickets.
func (h *Handler) CreateTicket(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var form dto.CreateTicketRequest
	if err := c.BodyParser(&form); err != nil {
		return h.redirectWith(c, "/tickets", Flash{Message: "Invalid form submission"})
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.User, service.TicketCreateInput{
		Subject:     form.Subject,
		Description: form.Description,
		Priority:    form.Priority,
	})
	if err != nil {
		return h.redirectWith(c, "/tickets", flashFromError(err))
	}
	return h.redirectWith(c, "/tickets/"+ticket.UUID, flashOK("Ticket "+ticket.Key()+" created"))
}

// ShowTicket GET /tickets/:id. Numeric ids redirect to the canonical URL.
func (h *Handler) ShowTicket(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	ref, err := service.ParseTicketRef(c.Params("id"))
	if err != nil {
		return h.renderError(c, http.StatusNotFound, "Ticket not found", "That ticket does not exist.")
	}
	var (
		ticket  *domain.Ticket
		history []domain.TicketHistory
	)
	if h.history != nil {
		history, ticket, err = h.history.ListForTicket(c.UserContext(), principal.User, ref)
	} else {
		ticket, err = h.tickets.GetTicket(c.UserContext(), principal.User, ref)
	}
	if err != nil {
		flash := flashFromError(err)
		return h.renderError(c, statusOf(err), "Ticket unavailable", flash.Message)
	}
	if ref.IsAlias() {
		return c.Redirect("/tickets/"+ticket.UUID, http.StatusMovedPermanently)
	}
	view := ticketView{
		Ticket:   ticket,
		History:  history,
		CanClose: ticket.UserID == principal.User.ID && !ticket.IsSolved(),
	}
	return h.views.render(c, http.StatusOK, "ticket", h.page(c, ticket.Key(), view))
}

// CloseTicket POST /tickets/:id/close.
func (h *Handler) CloseTicket(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	back := "/tickets/" + c.Params("id")
	ref, err := service.ParseTicketRef(c.Params("id"))
	if err != nil {
		return h.redirectWith(c, "/tickets", flashFromError(err))
	}
	var form dto.UpdateTicketRequest
	if err := c.BodyParser(&form); err != nil {
		return h.redirectWith(c, back, Flash{Message: "Invalid form submission"})
	}
	ticket, err := h.tickets.CloseTicket(c.UserContext(), principal.User, ref, form.Resolution)
	if err != nil {
		return h.redirectWith(c, back, flashFromError(err))
	}
	return h.redirectWith(c, "/tickets/"+ticket.UUID, flashOK("Ticket marked as solved"))
}
