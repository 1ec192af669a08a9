package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pcurran/diarist/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.ConversationStore = (*ConversationStoreImpl)(nil)
	_ store.AppointmentStore  = (*AppointmentStoreImpl)(nil)
)

// Store is the central PostgreSQL-backed persistence layer. It holds a single
// [pgxpool.Pool] and exposes the two store interfaces:
//
//   - [Store.Conversations] returns a [ConversationStoreImpl] implementing
//     [store.ConversationStore]
//   - [Store.Appointments] returns an [AppointmentStoreImpl] implementing
//     [store.AppointmentStore]
//
// All operations are safe for concurrent use.
type Store struct {
	pool          *pgxpool.Pool
	conversations *ConversationStoreImpl
	appointments  *AppointmentStoreImpl
}

// NewStore creates a new Store, establishes a connection pool to the
// PostgreSQL database at dsn, and runs [Migrate] to ensure all required
// tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{
		pool:          pool,
		conversations: &ConversationStoreImpl{pool: pool},
		appointments:  &AppointmentStoreImpl{pool: pool},
	}, nil
}

// Conversations returns the conversation store implementation.
func (s *Store) Conversations() *ConversationStoreImpl { return s.conversations }

// Appointments returns the appointment store implementation.
func (s *Store) Appointments() *AppointmentStoreImpl { return s.appointments }

// Ping verifies database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying connection pool.
// It should be called when the Store is no longer needed, typically via defer.
func (s *Store) Close() {
	s.pool.Close()
}
