package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
)

// LoginPage GET /login.
func (h *Handler) LoginPage(c *fiber.Ctx) error {
	if user := h.currentUser(c); user != nil && !user.PendingApproval() {
		return c.Redirect("/tickets")
	}
	return h.views.render(c, http.StatusOK, "login", h.page(c, "Log in", nil))
}

// Login POST /login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var form dto.UserLoginRequest
	if err := c.BodyParser(&form); err != nil {
		return h.redirectWith(c, "/login", Flash{Message: "Invalid form submission"})
	}
	_, session, err := h.auth.Login(c.UserContext(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPendingApproval) {
			return c.Redirect("/pending-approval", http.StatusSeeOther)
		}
		return h.redirectWith(c, "/login", flashFromError(err))
	}
	auth.SetSessionCookie(c, h.sessions.CookieName(), session, h.cookieSecure)
	return h.redirectWith(c, "/tickets", flashOK("Welcome back"))
}

// RegisterPage GET /register.
func (h *Handler) RegisterPage(c *fiber.Ctx) error {
	return h.views.render(c, http.StatusOK, "register", h.page(c, "Register", nil))
}

// Register POST /register.
func (h *Handler) Register(c *fiber.Ctx) error {
	var form dto.UserRegisterRequest
	if err := c.BodyParser(&form); err != nil {
		return h.redirectWith(c, "/register", Flash{Message: "Invalid form submission"})
	}
	_, err := h.auth.RegisterUser(c.UserContext(), service.RegisterInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		return h.redirectWith(c, "/register", flashFromError(err))
	}
	return h.redirectWith(c, "/pending-approval", flashOK("Registration successful"))
}

// PendingPage GET /pending-approval.
func (h *Handler) PendingPage(c *fiber.Ctx) error {
	return h.views.render(c, http.StatusOK, "pending", h.page(c, "Pending approval", nil))
}

// Logout POST /logout.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if principal, err := h.sessions.Resolve(c); err == nil {
		if err := h.auth.Logout(c.UserContext(), principal.Claims); err != nil {
			h.logger.Warn("logout revocation failed", zap.Error(err))
		}
	}
	auth.ClearSessionCookie(c, h.sessions.CookieName(), h.cookieSecure)
	return h.redirectWith(c, "/login", flashOK("You have been logged out"))
}
