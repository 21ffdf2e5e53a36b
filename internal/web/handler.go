// Package web serves the server-rendered pages and form actions.
package web

import (
	"net/http"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

const csrfContextKey = "csrf"

// Config wires the web handler.
type Config struct {
	Auth         *service.AuthService
	Tickets      *service.TicketService
	History      *service.HistoryService
	Users        *service.UserService
	Sessions     *auth.AuthMiddleware
	Enforcer     *casbin.Enforcer
	Location     *time.Location
	CookieSecure bool
	Logger       *zap.Logger
}

// Handler renders pages and processes form posts.
type Handler struct {
	auth         *service.AuthService
	tickets      *service.TicketService
	history      *service.HistoryService
	users        *service.UserService
	sessions     *auth.AuthMiddleware
	enforcer     *casbin.Enforcer
	cookieSecure bool
	logger       *zap.Logger
	views        *renderer
}

// NewHandler parses the embedded templates and builds the handler.
func NewHandler(cfg Config) (*Handler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	views, err := newRenderer(loc)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		auth:         cfg.Auth,
		tickets:      cfg.Tickets,
		history:      cfg.History,
		users:        cfg.Users,
		sessions:     cfg.Sessions,
		enforcer:     cfg.Enforcer,
		cookieSecure: cfg.CookieSecure,
		logger:       logger,
		views:        views,
	}, nil
}

// RegisterRoutes mounts the web routes on app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	protect := csrf.New(csrf.Config{
		KeyLookup:      "form:_csrf",
		CookieName:     "helpdesk_csrf",
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		CookieSecure:   h.cookieSecure,
		Expiration:     2 * time.Hour,
		ContextKey:     csrfContextKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return h.renderError(c, http.StatusForbidden, "Forbidden", "Your form session expired. Reload the page and try again.")
		},
	})

	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/tickets") })

	app.Get("/login", protect, h.LoginPage)
	app.Post("/login", protect, h.Login)
	app.Get("/register", protect, h.RegisterPage)
	app.Post("/register", protect, h.Register)
	app.Get("/pending-approval", protect, h.PendingPage)
	app.Post("/logout", protect, h.Logout)

	member := []fiber.Handler{protect, h.requireSession, h.authorize}
	app.Get("/tickets", append(member, h.ListTickets)...)
	app.Post("/tickets", append(member, h.CreateTicket)...)
	app.Get("/tickets/:id", append(member, h.ShowTicket)...)
	app.Post("/tickets/:id/close", append(member, h.CloseTicket)...)

	app.Get("/admin/dashboard", append(member, h.AdminDashboard)...)
	app.Post("/admin/users/:id", append(member, h.AdminUpdateUser)...)
}

// requireSession resolves the caller from the session cookie. Anonymous
// visitors go to /login; unapproved accounts go to /pending-approval.
func (h *Handler) requireSession(c *fiber.Ctx) error {
	principal, err := h.sessions.Resolve(c)
	if err != nil {
		return c.Redirect("/login")
	}
	if principal.User.PendingApproval() {
		return c.Redirect("/pending-approval")
	}
	auth.SetPrincipal(c, principal)
	return c.Next()
}

// authorize applies the route policy and renders a page on denial.
func (h *Handler) authorize(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.Redirect("/login")
	}
	allowed, err := h.enforcer.Enforce(string(principal.User.Role), auth.PolicyPath(c), c.Method())
	if err != nil {
		h.logger.Error("policy check failed", zap.Error(err))
		return h.renderError(c, http.StatusInternalServerError, "Error", "Something went wrong.")
	}
	if !allowed {
		return h.renderError(c, http.StatusForbidden, "Forbidden", "You do not have access to this page.")
	}
	return c.Next()
}

// currentUser returns the signed-in user for pages that do not require one.
func (h *Handler) currentUser(c *fiber.Ctx) *domain.User {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.User
	}
	if c.Cookies(h.sessions.CookieName()) == "" {
		return nil
	}
	principal, err := h.sessions.Resolve(c)
	if err != nil {
		return nil
	}
	return principal.User
}

func (h *Handler) page(c *fiber.Ctx, title string, data any) pageData {
	token, _ := c.Locals(csrfContextKey).(string)
	return pageData{
		Title: title,
		User:  h.currentUser(c),
		Flash: popFlash(c, h.cookieSecure),
		CSRF:  token,
		Data:  data,
	}
}

func (h *Handler) renderError(c *fiber.Ctx, status int, title, message string) error {
	return h.views.render(c, status, "error", h.page(c, title, message))
}

// redirectWith stores the action outcome and redirects (post/redirect/get).
func (h *Handler) redirectWith(c *fiber.Ctx, location string, flash Flash) error {
	setFlash(c, flash, h.cookieSecure)
	return c.Redirect(location, http.StatusSeeOther)
}
