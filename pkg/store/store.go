// Package store defines the persistence interfaces for conversations and
// scheduled appointments.
//
// Two concerns live here:
//
//   - [ConversationStore] is the durable turn log. Every turn of every cycle
//     is appended as it happens so that a conversation can be replayed into
//     model context on the next user message.
//   - [AppointmentStore] is a local mirror of calendar mutations made through
//     the assistant. It exists for reporting and reconciliation and is never
//     the source of truth; the calendar provider is.
//
// The canonical implementation is [github.com/pcurran/diarist/pkg/store/postgres].
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pcurran/diarist/pkg/types"
)

// ErrConversationNotFound is returned when a conversation ID does not exist.
var ErrConversationNotFound = errors.New("store: conversation not found")

// ErrAppointmentNotFound is returned when no appointment row matches the
// given calendar event ID.
var ErrAppointmentNotFound = errors.New("store: appointment not found")

// Conversation is a single persistent chat thread.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentStatus describes the lifecycle of a mirrored appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a local record of a calendar event the assistant created.
// EventID is the provider's event identifier.
type Appointment struct {
	EventID        string
	ConversationID string
	Title          string
	Start          time.Time
	End            time.Time
	Status         AppointmentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ConversationStore persists conversations and their turn logs.
//
// AppendTurns must preserve insertion order: LoadHistory returns turns in
// exactly the order they were appended.
type ConversationStore interface {
	// CreateConversation creates a new empty conversation and returns it.
	CreateConversation(ctx context.Context) (Conversation, error)

	// GetConversation returns the conversation with the given ID, or
	// [ErrConversationNotFound].
	GetConversation(ctx context.Context, id string) (Conversation, error)

	// ListConversations returns all conversations, most recently updated
	// first.
	ListConversations(ctx context.Context) ([]Conversation, error)

	// AppendTurns appends the turns to the conversation's log atomically:
	// either every turn is persisted, in order, or none is. A cycle that
	// ends on an assistant turn with a pending tool call must never become
	// durable, so the log always rehydrates into a valid state. It returns
	// [ErrConversationNotFound] if the conversation does not exist.
	AppendTurns(ctx context.Context, conversationID string, turns []types.Turn) error

	// LoadHistory returns all turns of the conversation in append order.
	// A conversation with no turns yields an empty (non-nil) slice.
	LoadHistory(ctx context.Context, conversationID string) ([]types.Turn, error)
}

// AppointmentStore mirrors calendar mutations made by the assistant.
type AppointmentStore interface {
	// RecordAppointment inserts a new appointment row. Inserting an event ID
	// that already exists overwrites the prior row.
	RecordAppointment(ctx context.Context, a Appointment) error

	// UpdateAppointment rewrites the title and time range of an existing
	// appointment. It returns [ErrAppointmentNotFound] if no row matches.
	UpdateAppointment(ctx context.Context, eventID, title string, start, end time.Time) error

	// CancelAppointment marks the appointment as cancelled. It returns
	// [ErrAppointmentNotFound] if no row matches.
	CancelAppointment(ctx context.Context, eventID string) error

	// ListAppointments returns all appointments for a conversation, most
	// recently created first.
	ListAppointments(ctx context.Context, conversationID string) ([]Appointment, error)
}
