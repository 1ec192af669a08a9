// Package mock provides in-memory test doubles for the store interfaces.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pcurran/diarist/pkg/store"
	"github.com/pcurran/diarist/pkg/types"
)

// Compile-time interface checks.
var (
	_ store.ConversationStore = (*ConversationStore)(nil)
	_ store.AppointmentStore  = (*AppointmentStore)(nil)
)

// ConversationStore is an in-memory mock implementation of
// [store.ConversationStore].
//
// Set the Err fields to inject failures. When an Err field is nil the
// operation succeeds against the in-memory maps.
type ConversationStore struct {
	mu sync.Mutex

	// CreateErr, if non-nil, is returned by CreateConversation.
	CreateErr error

	// AppendErr, if non-nil, is returned by AppendTurns. Like the real
	// store, a failed append leaves the log untouched.
	AppendErr error

	// LoadErr, if non-nil, is returned by LoadHistory.
	LoadErr error

	// AppendCalls records every turn passed to AppendTurns, in order,
	// including turns from failed batches.
	AppendCalls []AppendCall

	conversations map[string]store.Conversation
	histories     map[string][]types.Turn
	nextID        int
}

// AppendCall records a single turn passed to AppendTurns.
type AppendCall struct {
	ConversationID string
	Turn           types.Turn
}

// CreateConversation creates a conversation with a generated ID.
func (s *ConversationStore) CreateConversation(_ context.Context) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return store.Conversation{}, s.CreateErr
	}
	if s.conversations == nil {
		s.conversations = make(map[string]store.Conversation)
		s.histories = make(map[string][]types.Turn)
	}
	s.nextID++
	c := store.Conversation{
		ID:        fmt.Sprintf("conv-%d", s.nextID),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.conversations[c.ID] = c
	s.histories[c.ID] = nil
	return c, nil
}

// GetConversation returns the conversation with the given ID.
func (s *ConversationStore) GetConversation(_ context.Context, id string) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return store.Conversation{}, store.ErrConversationNotFound
	}
	return c, nil
}

// AppendTurns appends the turns to the conversation's in-memory log. The
// whole batch either lands or is dropped, matching the real store.
func (s *ConversationStore) AppendTurns(_ context.Context, conversationID string, turns []types.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, turn := range turns {
		s.AppendCalls = append(s.AppendCalls, AppendCall{ConversationID: conversationID, Turn: turn})
	}
	if s.AppendErr != nil {
		return s.AppendErr
	}
	if _, ok := s.conversations[conversationID]; !ok {
		return store.ErrConversationNotFound
	}
	s.histories[conversationID] = append(s.histories[conversationID], turns...)
	return nil
}

// ListConversations returns all known conversations.
func (s *ConversationStore) ListConversations(_ context.Context) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	return out, nil
}

// LoadHistory returns a copy of the conversation's turn log.
func (s *ConversationStore) LoadHistory(_ context.Context, conversationID string) ([]types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, store.ErrConversationNotFound
	}
	history := s.histories[conversationID]
	out := make([]types.Turn, len(history))
	copy(out, history)
	return out, nil
}

// AppointmentStore is an in-memory mock implementation of
// [store.AppointmentStore].
type AppointmentStore struct {
	mu sync.Mutex

	// RecordErr, if non-nil, is returned by RecordAppointment.
	RecordErr error

	// UpdateErr, if non-nil, is returned by UpdateAppointment.
	UpdateErr error

	// CancelErr, if non-nil, is returned by CancelAppointment.
	CancelErr error

	// ListErr, if non-nil, is returned by ListAppointments.
	ListErr error

	// RecordCalls records every RecordAppointment invocation in order.
	RecordCalls []store.Appointment

	appointments map[string]store.Appointment
}

// RecordAppointment stores the appointment keyed by event ID.
func (s *AppointmentStore) RecordAppointment(_ context.Context, a store.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RecordCalls = append(s.RecordCalls, a)
	if s.RecordErr != nil {
		return s.RecordErr
	}
	if s.appointments == nil {
		s.appointments = make(map[string]store.Appointment)
	}
	if a.Status == "" {
		a.Status = store.AppointmentScheduled
	}
	s.appointments[a.EventID] = a
	return nil
}

// UpdateAppointment rewrites the title and time range of a stored appointment.
func (s *AppointmentStore) UpdateAppointment(_ context.Context, eventID, title string, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	a, ok := s.appointments[eventID]
	if !ok {
		return store.ErrAppointmentNotFound
	}
	a.Title = title
	a.Start = start
	a.End = end
	s.appointments[eventID] = a
	return nil
}

// CancelAppointment flips the stored appointment's status to cancelled.
func (s *AppointmentStore) CancelAppointment(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CancelErr != nil {
		return s.CancelErr
	}
	a, ok := s.appointments[eventID]
	if !ok {
		return store.ErrAppointmentNotFound
	}
	a.Status = store.AppointmentCancelled
	s.appointments[eventID] = a
	return nil
}

// ListAppointments returns all appointments recorded for a conversation.
func (s *AppointmentStore) ListAppointments(_ context.Context, conversationID string) ([]store.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []store.Appointment
	for _, a := range s.appointments {
		if a.ConversationID == conversationID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Appointment returns the stored appointment for eventID (test helper).
func (s *AppointmentStore) Appointment(eventID string) (store.Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[eventID]
	return a, ok
}
