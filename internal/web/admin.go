package web

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

type adminView struct {
	Users []domain.User
}

// AdminDashboard GET /admin/dashboard.
func (h *Handler) AdminDashboard(c *fiber.Ctx) error {
	users, err := h.users.ListUsers(c.UserContext())
	if err != nil {
		return h.renderError(c, statusOf(err), "Error", flashFromError(err).Message)
	}
	return h.views.render(c, http.StatusOK, "admin", h.page(c, "User management", adminView{Users: users}))
}

// AdminUpdateUser POST /admin/users/:id. The form carries isActive and/or role.
func (h *Handler) AdminUpdateUser(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var patch service.UserPatch
	if raw := c.FormValue("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return h.redirectWith(c, "/admin/dashboard", Flash{Message: "invalid isActive value"})
		}
		patch.IsActive = &active
	}
	if raw := c.FormValue("role"); raw != "" {
		patch.Role = &raw
	}

	user, err := h.users.UpdateUser(c.UserContext(), principal.User, c.Params("id"), patch)
	if err != nil {
		return h.redirectWith(c, "/admin/dashboard", flashFromError(err))
	}
	return h.redirectWith(c, "/admin/dashboard", flashOK("Updated "+user.Email))
}

func statusOf(err error) int {
	return apperrors.ToDomainError(err).HTTPStatus
}
