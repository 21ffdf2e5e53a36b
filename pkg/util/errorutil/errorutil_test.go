package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", NewValidationError("bad", nil), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"wrapped forbidden", fmt.Errorf("close: %w", NewForbidden("nope")), http.StatusForbidden, "FORBIDDEN"},
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped no rows", fmt.Errorf("lookup: %w", pgx.ErrNoRows), http.StatusNotFound, "NOT_FOUND"},
		{"fiber not found", fiber.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"fiber rate limit", fiber.ErrTooManyRequests, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"plain", cause, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			if de.HTTPStatus != tt.status {
				t.Errorf("status = %d, want %d", de.HTTPStatus, tt.status)
			}
			if de.Code != tt.code {
				t.Errorf("code = %q, want %q", de.Code, tt.code)
			}
		})
	}
}

func TestToDomainErrorNil(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if MapError(nil) != nil {
		t.Fatal("expected nil from MapError(nil)")
	}
}

func TestInternalErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("internal error should unwrap to its cause")
	}
	if err.(*DomainError).Message != "internal server error" {
		t.Fatalf("internal message leaked cause: %q", err.(*DomainError).Message)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NewNotFound("ticket", nil)) {
		t.Error("NewNotFound should be not found")
	}
	if IsNotFound(NewConflict("dup", nil)) {
		t.Error("conflict should not be not found")
	}
}
