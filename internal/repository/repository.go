package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Set groups the repositories a process needs.
type Set struct {
	Users   UserRepository
	Tickets TicketRepository
	History TicketHistoryRepository
	// InMemory is true when no database backs the set.
	InMemory bool
}

// NewSet returns Postgres repositories for pool, or an in-memory set when
// pool is nil.
func NewSet(pool *pgxpool.Pool) Set {
	if pool == nil {
		store := NewMemoryStore()
		return Set{Users: store.Users(), Tickets: store.Tickets(), History: store.History(), InMemory: true}
	}
	return Set{
		Users:   NewUserRepository(pool),
		Tickets: NewTicketRepository(pool),
		History: NewTicketHistoryRepository(pool),
	}
}
