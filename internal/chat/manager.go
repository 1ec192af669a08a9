package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pcurran/diarist/internal/observe"
	"github.com/pcurran/diarist/pkg/store"
	"github.com/pcurran/diarist/pkg/types"
)

// persistTimeout bounds the cycle-end history writes. They run on a context
// detached from the caller so a disconnect cannot lose completed turns.
const persistTimeout = 10 * time.Second

// Manager is the entry point the API layer calls. It serializes cycles per
// conversation, rehydrates state from the durable turn log, runs the
// orchestration loop, and persists the new turns at cycle end.
//
// All exported methods are safe for concurrent use. Cycles for different
// conversations run fully independently.
type Manager struct {
	loop          *Loop
	conversations store.ConversationStore
	appointments  store.AppointmentStore
	logger        *slog.Logger
	metrics       *observe.Metrics

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted // conversation id → in-flight cycle lock
}

// ManagerOption configures a [Manager] during construction.
type ManagerOption func(*Manager)

// WithManagerMetrics attaches metric instruments to the manager.
func WithManagerMetrics(m *observe.Metrics) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithManagerAppointments attaches the appointment mirror so the manager can
// serve appointment listings.
func WithManagerAppointments(s store.AppointmentStore) ManagerOption {
	return func(mgr *Manager) {
		mgr.appointments = s
	}
}

// NewManager creates a Manager over the given loop and turn log.
func NewManager(loop *Loop, conversations store.ConversationStore, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		loop:          loop,
		conversations: conversations,
		logger:        logger,
		locks:         make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartConversation creates a new empty conversation.
func (m *Manager) StartConversation(ctx context.Context) (store.Conversation, error) {
	return m.conversations.CreateConversation(ctx)
}

// History returns the persisted turn log of a conversation.
func (m *Manager) History(ctx context.Context, conversationID string) ([]types.Turn, error) {
	return m.conversations.LoadHistory(ctx, conversationID)
}

// Conversations returns all conversations, most recently updated first.
func (m *Manager) Conversations(ctx context.Context) ([]store.Conversation, error) {
	return m.conversations.ListConversations(ctx)
}

// Appointments returns the mirrored appointments of a conversation. The
// conversation must exist.
func (m *Manager) Appointments(ctx context.Context, conversationID string) ([]store.Appointment, error) {
	if m.appointments == nil {
		return nil, errors.New("chat: appointment mirror not configured")
	}
	if _, err := m.conversations.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return m.appointments.ListAppointments(ctx, conversationID)
}

// HandleUserMessage runs one full orchestration cycle for userText and
// returns the user-facing reply. It is synchronous: the state machine runs
// to DONE or ABORTED before it returns.
//
// A second message for the same conversation while a cycle is in flight is
// rejected with [ErrConversationBusy]; the caller should retry after the
// current cycle completes. Messages for other conversations are unaffected.
func (m *Manager) HandleUserMessage(ctx context.Context, conversationID, userText string) (string, error) {
	if userText == "" {
		return "", errors.New("chat: empty user message")
	}

	if !m.tryAcquireCycle(conversationID) {
		if m.metrics != nil {
			m.metrics.ConversationsBusy.Add(ctx, 1)
		}
		return "", ErrConversationBusy
	}
	defer m.releaseCycle(conversationID)

	if m.metrics != nil {
		m.metrics.ActiveCycles.Add(ctx, 1)
		defer m.metrics.ActiveCycles.Add(ctx, -1)
	}

	history, err := m.conversations.LoadHistory(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("chat: load history: %w", err)
	}

	state := NewConversationState(conversationID, history)
	userTurn := types.UserTurn(userText)
	if err := state.Append(userTurn); err != nil {
		return "", err
	}

	result, err := m.loop.RunCycle(ctx, state)
	if err != nil {
		// Invariant violation. Always a defect, never user-facing.
		m.logger.Error("orchestration cycle failed", "conversation_id", conversationID, "error", err)
		return "", err
	}

	if err := m.persistCycle(ctx, conversationID, userTurn, result.NewTurns); err != nil {
		return "", err
	}

	m.logger.Info("cycle complete",
		"conversation_id", conversationID,
		"state", string(result.State),
		"tool_calls", len(result.Results),
	)
	return FormatReply(result.FinalTurn, result.Results), nil
}

// persistCycle writes the user turn and every turn the cycle produced as one
// atomic batch: a transient store failure leaves the durable log exactly as
// it was before the cycle, never ending on an unanswered tool call. It runs
// detached from the caller's cancellation: once tools have executed, their
// results must reach the log even if no reply reaches the original caller.
func (m *Manager) persistCycle(ctx context.Context, conversationID string, userTurn types.Turn, newTurns []types.Turn) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	turns := append([]types.Turn{userTurn}, newTurns...)
	if err := m.conversations.AppendTurns(pctx, conversationID, turns); err != nil {
		return fmt.Errorf("chat: persist cycle: %w", err)
	}
	return nil
}

// tryAcquireCycle takes the per-conversation cycle lock, creating it on
// first use. It never blocks: a held lock means a cycle is in flight and the
// caller reports busy.
func (m *Manager) tryAcquireCycle(conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[conversationID]
	if !ok {
		lock = semaphore.NewWeighted(1)
		m.locks[conversationID] = lock
	}
	return lock.TryAcquire(1)
}

// releaseCycle releases and evicts the conversation's cycle lock, so the
// map only holds entries for in-flight cycles. Acquisition only happens
// under m.mu and never blocks, so no goroutine retains an evicted semaphore.
func (m *Manager) releaseCycle(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lock, ok := m.locks[conversationID]; ok {
		lock.Release(1)
		delete(m.locks, conversationID)
	}
}
