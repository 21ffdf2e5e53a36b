package http

import (
	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// WebRoutes mounts server-rendered pages.
type WebRoutes interface {
	RegisterRoutes(app *fiber.App)
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Metrics         *handlers.MetricsHandler
	Users           *handlers.UsersHandler
	Tickets         *handlers.TicketsHandler
	AdminUsers      *handlers.AdminUsersHandler
	Markdown        *handlers.MarkdownHandler
	AuthMiddleware  *auth.AuthMiddleware
	Enforcer        *casbin.Enforcer
	LoginRatePerMin int
	Web             WebRoutes
	Logger          *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	authorize := auth.Authorize(cfg.Enforcer, cfg.Logger)
	session := []fiber.Handler{cfg.AuthMiddleware.Handle, authorize}
	approved := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireApproved(), authorize}

	api := app.Group("/api")
	api.Post("/register", cfg.Users.Register)
	api.Post("/auth/login", loginLimiter(cfg.LoginRatePerMin), cfg.Users.Login)

	// Session routes stay reachable for accounts awaiting approval.
	api.Post("/auth/logout", append(session, cfg.Users.Logout)...)
	api.Get("/me", append(session, cfg.Users.Me)...)
	api.Post("/markdown/preview", append(session, cfg.Markdown.Preview)...)

	tickets := api.Group("/tickets", approved...)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)

	admin := api.Group("/admin", approved...)
	admin.Get("/users", cfg.AdminUsers.List)
	admin.Patch("/users", cfg.AdminUsers.Update)

	if cfg.Web != nil {
		cfg.Web.RegisterRoutes(app)
	}
}
