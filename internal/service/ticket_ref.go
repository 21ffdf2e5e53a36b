package service

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// TicketRef identifies a ticket by its canonical UUID or its legacy number.
type TicketRef struct {
	UUID   string
	Number int64
}

// IsAlias reports whether the ref came from the numeric alias.
func (r TicketRef) IsAlias() bool {
	return r.UUID == "" && r.Number > 0
}

// ParseTicketRef accepts a UUID (any case) or a positive base-10 number.
func ParseTicketRef(raw string) (TicketRef, error) {
	raw = strings.TrimSpace(raw)
	lowered := strings.ToLower(raw)
	if len(lowered) == 36 && uuidPattern.MatchString(lowered) {
		return TicketRef{UUID: lowered}, nil
	}
	if raw != "" && raw[0] != '+' && raw[0] != '-' {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			return TicketRef{Number: n}, nil
		}
	}
	return TicketRef{}, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": raw})
}
