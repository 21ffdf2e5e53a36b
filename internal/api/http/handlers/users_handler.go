package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth         *service.AuthService
	cookieName   string
	cookieSecure bool
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cookieName string, cookieSecure bool) *UsersHandler {
	return &UsersHandler{auth: authService, cookieName: cookieName, cookieSecure: cookieSecure}
}

// Register handles POST /api/register. New accounts wait for approval, so no
// session is issued.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("Email and password are required", nil)
	}

	user, err := h.auth.RegisterUser(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":    dto.NewUserResponse(user),
		"message": "Registration successful. An administrator must approve your account before you can sign in.",
	})
}

// Login handles POST /api/auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(c, h.cookieName, session, h.cookieSecure)

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
			User:      dto.NewUserResponse(user),
		},
	})
}

// Logout handles POST /api/auth/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), principal.Claims); err != nil {
		return err
	}
	auth.ClearSessionCookie(c, h.cookieName, h.cookieSecure)
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(principal.User)})
}
