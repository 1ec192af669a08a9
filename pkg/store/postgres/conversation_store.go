package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pcurran/diarist/pkg/store"
	"github.com/pcurran/diarist/pkg/types"
)

// pgErrForeignKeyViolation is the PostgreSQL error code for a foreign key
// constraint violation, raised when a turn references a missing conversation.
const pgErrForeignKeyViolation = "23503"

// ConversationStoreImpl is the turn log backed by the conversations and
// turns tables.
//
// Obtain one via [Store.Conversations] rather than constructing directly.
// All methods are safe for concurrent use.
type ConversationStoreImpl struct {
	pool *pgxpool.Pool
}

// CreateConversation implements [store.ConversationStore]. Conversation IDs
// are random UUIDs.
func (s *ConversationStoreImpl) CreateConversation(ctx context.Context) (store.Conversation, error) {
	const q = `
		INSERT INTO conversations (id)
		VALUES ($1)
		RETURNING id, created_at, updated_at`

	var c store.Conversation
	err := s.pool.QueryRow(ctx, q, uuid.NewString()).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return store.Conversation{}, fmt.Errorf("conversation store: create: %w", err)
	}
	return c, nil
}

// GetConversation implements [store.ConversationStore].
func (s *ConversationStoreImpl) GetConversation(ctx context.Context, id string) (store.Conversation, error) {
	const q = `
		SELECT id, created_at, updated_at
		FROM   conversations
		WHERE  id = $1`

	var c store.Conversation
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Conversation{}, store.ErrConversationNotFound
	}
	if err != nil {
		return store.Conversation{}, fmt.Errorf("conversation store: get: %w", err)
	}
	return c, nil
}

// ListConversations implements [store.ConversationStore]. Conversations are
// returned most recently updated first.
func (s *ConversationStoreImpl) ListConversations(ctx context.Context) ([]store.Conversation, error) {
	const q = `
		SELECT id, created_at, updated_at
		FROM   conversations
		ORDER  BY updated_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("conversation store: list: %w", err)
	}
	convs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Conversation, error) {
		var c store.Conversation
		err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("conversation store: scan conversations: %w", err)
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	return convs, nil
}

// AppendTurns implements [store.ConversationStore]. All turns of a cycle are
// inserted in a single transaction so the durable log never ends mid-cycle;
// tool calls and tool results, when present, are stored as JSONB.
func (s *ConversationStoreImpl) AppendTurns(ctx context.Context, conversationID string, turns []types.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `
			INSERT INTO turns (conversation_id, role, content, tool_call, result, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`

		for _, turn := range turns {
			toolCall, err := marshalNullable(turn.ToolCall)
			if err != nil {
				return fmt.Errorf("encode tool call: %w", err)
			}
			result, err := marshalNullable(turn.Result)
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			if _, err := tx.Exec(ctx, q,
				conversationID,
				string(turn.Role),
				turn.Content,
				toolCall,
				result,
				turn.Timestamp,
			); err != nil {
				return err
			}
		}

		const touch = `UPDATE conversations SET updated_at = now() WHERE id = $1`
		_, err := tx.Exec(ctx, touch, conversationID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKeyViolation {
			return store.ErrConversationNotFound
		}
		return fmt.Errorf("conversation store: append turns: %w", err)
	}
	return nil
}

// LoadHistory implements [store.ConversationStore]. Turns are returned in
// append order (oldest first).
func (s *ConversationStoreImpl) LoadHistory(ctx context.Context, conversationID string) ([]types.Turn, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	const q = `
		SELECT role, content, tool_call, result, created_at
		FROM   turns
		WHERE  conversation_id = $1
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation store: load history: %w", err)
	}
	return collectTurns(rows)
}

// collectTurns scans pgx rows into a slice of Turn values.
func collectTurns(rows pgx.Rows) ([]types.Turn, error) {
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Turn, error) {
		var (
			t        types.Turn
			role     string
			toolCall []byte
			result   []byte
		)
		if err := row.Scan(&role, &t.Content, &toolCall, &result, &t.Timestamp); err != nil {
			return types.Turn{}, err
		}
		t.Role = types.TurnRole(role)
		if toolCall != nil {
			t.ToolCall = new(types.ToolCall)
			if err := json.Unmarshal(toolCall, t.ToolCall); err != nil {
				return types.Turn{}, err
			}
		}
		if result != nil {
			t.Result = new(types.ToolInvocationResult)
			if err := json.Unmarshal(result, t.Result); err != nil {
				return types.Turn{}, err
			}
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("conversation store: scan rows: %w", err)
	}
	if turns == nil {
		turns = []types.Turn{}
	}
	return turns, nil
}

// marshalNullable encodes v as JSON, or returns nil for a nil pointer so
// the column stays NULL.
func marshalNullable(v any) ([]byte, error) {
	switch x := v.(type) {
	case *types.ToolCall:
		if x == nil {
			return nil, nil
		}
	case *types.ToolInvocationResult:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
