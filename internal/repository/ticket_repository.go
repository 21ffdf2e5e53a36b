package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	UserID     *string
	Statuses   []domain.TicketStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update persists status and resolution. The owner is never rewritten.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByUUID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.uuid, t.number, t.user_id, t.subject, t.description, t.priority, t.status,
               t.resolution, t.created_at, t.updated_at, COALESCE(u.name, ''), u.email
        FROM tickets t JOIN users u ON u.id = t.user_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (uuid, user_id, subject, description, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING number, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.UUID,
		ticket.UserID,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
	).Scan(&ticket.Number, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, resolution=$2, updated_at=NOW()
        WHERE uuid=$3
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.Resolution,
		ticket.UUID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByUUID(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.uuid=$1`, id))
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.number=$1`, number))
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE uuid=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("t.user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.subject) LIKE %s OR LOWER(t.description) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.number DESC LIMIT %d OFFSET %d`,
		ticketSelect, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.UUID,
		&ticket.Number,
		&ticket.UserID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Resolution,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.OwnerName,
		&ticket.OwnerEmail,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

const maxPageSize = 100

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	// One row past the largest page lets callers see whether more follow.
	if limit > maxPageSize+1 {
		limit = maxPageSize + 1
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
