// Package postgres provides the PostgreSQL-backed implementation of the
// conversation and appointment stores.
//
// Both stores share a single [pgxpool.Pool]. [Migrate] is idempotent and runs
// automatically on [NewStore], so no external migration tooling is required.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
//
//	conv, _ := st.Conversations().CreateConversation(ctx)
//	_ = st.Conversations().AppendTurns(ctx, conv.ID, turns)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT         PRIMARY KEY,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS turns (
    id               BIGSERIAL    PRIMARY KEY,
    conversation_id  TEXT         NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    role             TEXT         NOT NULL CHECK (role IN ('user', 'assistant', 'tool_result')),
    content          TEXT         NOT NULL DEFAULT '',
    tool_call        JSONB,
    result           JSONB,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation_id
    ON turns (conversation_id, id);
`

const ddlAppointments = `
CREATE TABLE IF NOT EXISTS appointments (
    event_id         TEXT         PRIMARY KEY,
    conversation_id  TEXT         NOT NULL,
    title            TEXT         NOT NULL DEFAULT '',
    start_time       TIMESTAMPTZ  NOT NULL,
    end_time         TIMESTAMPTZ  NOT NULL,
    status           TEXT         NOT NULL DEFAULT 'scheduled',
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_appointments_conversation_id
    ON appointments (conversation_id, created_at);
`

// Migrate creates or ensures all required tables and indexes exist. It is
// idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS) and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlConversations,
		ddlAppointments,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
