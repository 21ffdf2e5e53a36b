package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/markdown"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const maxPreviewBytes = 64 << 10

// MarkdownHandler renders resolution previews.
type MarkdownHandler struct{}

// NewMarkdownHandler constructs handler.
func NewMarkdownHandler() *MarkdownHandler {
	return &MarkdownHandler{}
}

// Preview POST /api/markdown/preview.
func (h *MarkdownHandler) Preview(c *fiber.Ctx) error {
	var req dto.MarkdownPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Text) > maxPreviewBytes {
		return apperrors.NewValidationError("text too long", map[string]any{"max_bytes": maxPreviewBytes})
	}
	html, err := markdown.Render(req.Text)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"html": html})
}
