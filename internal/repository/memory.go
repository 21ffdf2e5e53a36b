package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MemoryStore backs both in-memory repositories so ticket lookups can join
// owner details the way the Postgres queries do. It is used when no DSN is
// configured and by tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	tickets    map[string]domain.Ticket
	history    map[string][]domain.TicketHistory
	nextNumber int64
	now        func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		tickets: make(map[string]domain.Ticket),
		history: make(map[string][]domain.TicketHistory),
		now:     time.Now,
	}
}

// Users returns a UserRepository view of the store.
func (s *MemoryStore) Users() UserRepository {
	return &memoryUserRepository{store: s}
}

// Tickets returns a TicketRepository view of the store.
func (s *MemoryStore) Tickets() TicketRepository {
	return &memoryTicketRepository{store: s}
}

// History returns a TicketHistoryRepository view of the store.
func (s *MemoryStore) History() TicketHistoryRepository {
	return &memoryHistoryRepository{store: s}
}

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.Clone(strings.ToLower(user.Email))
	for _, existing := range s.users {
		if existing.Email == email {
			return ErrDuplicate
		}
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	stored.Name = strings.Clone(user.Name)
	stored.PasswordHash = strings.Clone(user.PasswordHash)
	s.users[user.ID] = stored
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Name = strings.Clone(user.Name)
	existing.PasswordHash = strings.Clone(user.PasswordHash)
	existing.Role = user.Role
	existing.IsActive = user.IsActive
	existing.UpdatedAt = s.now()
	s.users[user.ID] = existing
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type memoryTicketRepository struct {
	store *MemoryStore
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ticket.UserID]; !ok {
		return pgx.ErrNoRows
	}
	if _, exists := s.tickets[ticket.UUID]; exists {
		return ErrDuplicate
	}
	s.nextNumber++
	now := s.now()
	ticket.Number = s.nextNumber
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	stored.OwnerName, stored.OwnerEmail = "", ""
	stored.UUID = strings.Clone(ticket.UUID)
	stored.UserID = strings.Clone(ticket.UserID)
	stored.Subject = strings.Clone(ticket.Subject)
	stored.Description = strings.Clone(ticket.Description)
	stored.Priority = strings.Clone(ticket.Priority)
	stored.Resolution = cloneOptional(ticket.Resolution)
	s.tickets[stored.UUID] = stored
	return nil
}

func (r *memoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tickets[ticket.UUID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Status = ticket.Status
	existing.Resolution = cloneOptional(ticket.Resolution)
	existing.UpdatedAt = s.now()
	s.tickets[ticket.UUID] = existing
	ticket.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *memoryTicketRepository) GetByUUID(_ context.Context, id string) (*domain.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.tickets[strings.ToLower(id)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s.withOwner(ticket), nil
}

func (r *memoryTicketRepository) GetByNumber(_ context.Context, number int64) (*domain.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ticket := range s.tickets {
		if ticket.Number == number {
			return s.withOwner(ticket), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryTicketRepository) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tickets, id)
	delete(s.history, id)
	return nil
}

func (r *memoryTicketRepository) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	matched := []domain.Ticket{}
	for _, ticket := range s.tickets {
		if filter.UserID != nil && ticket.UserID != *filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(ticket.Subject), search) &&
			!strings.Contains(strings.ToLower(ticket.Description), search) {
			continue
		}
		matched = append(matched, *s.withOwner(ticket))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Number > matched[j].Number
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	if offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// withOwner must be called with the lock held.
func (s *MemoryStore) withOwner(ticket domain.Ticket) *domain.Ticket {
	if owner, ok := s.users[ticket.UserID]; ok {
		ticket.OwnerName = owner.Name
		ticket.OwnerEmail = owner.Email
	}
	return &ticket
}

// cloneOptional detaches s from request buffers it may still share.
func cloneOptional(s *string) *string {
	if s == nil {
		return nil
	}
	c := strings.Clone(*s)
	return &c
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

type memoryHistoryRepository struct {
	store *MemoryStore
}

func (r *memoryHistoryRepository) Create(_ context.Context, entry *domain.TicketHistory) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[entry.TicketUUID]; !ok {
		return pgx.ErrNoRows
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now()
	s.history[entry.TicketUUID] = append(s.history[entry.TicketUUID], *entry)
	return nil
}

func (r *memoryHistoryRepository) ListByTicket(_ context.Context, ticketUUID string) ([]domain.TicketHistory, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[ticketUUID]
	result := make([]domain.TicketHistory, len(entries))
	copy(result, entries)
	return result, nil
}
