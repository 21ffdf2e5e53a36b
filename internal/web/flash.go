package web

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const flashCookie = "helpdesk_flash"

// Flash is the outcome of a form action, shown once on the next page.
type Flash struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func flashOK(message string) Flash {
	return Flash{Success: true, Message: message}
}

// flashFromError turns a service error into a user-facing message. Internal
// failures are not described.
func flashFromError(err error) Flash {
	de := apperrors.ToDomainError(err)
	if de.HTTPStatus >= 500 {
		return Flash{Message: "Something went wrong. Please try again."}
	}
	return Flash{Message: de.Message}
}

func setFlash(c *fiber.Ctx, flash Flash, secure bool) {
	raw, err := json.Marshal(flash)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(5 * time.Minute),
	})
}

// popFlash reads and clears the pending flash, if any.
func popFlash(c *fiber.Ctx, secure bool) *Flash {
	value := c.Cookies(flashCookie)
	if value == "" {
		return nil
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flash Flash
	if err := json.Unmarshal(raw, &flash); err != nil || flash.Message == "" {
		return nil
	}
	return &flash
}
