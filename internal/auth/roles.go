package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ErrPendingApproval is returned to USER accounts an administrator has not activated.
var ErrPendingApproval = apperrors.NewDomainError("PENDING_APPROVAL", "Account pending admin approval", fiber.StatusForbidden, nil)

// RequireApproved rejects USER accounts that are still awaiting approval.
func RequireApproved() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.User.PendingApproval() {
			return ErrPendingApproval
		}
		return c.Next()
	}
}
