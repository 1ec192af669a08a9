// Package calendar defines the Client interface for calendar providers.
//
// A calendar client wraps a remote calendar service (e.g., Google Calendar)
// and exposes the event operations the diarist tool executor dispatches to.
// Authentication is a pre-validated credential handed to the client at
// construction time; credential refresh and expiry handling live outside this
// package.
//
// Implementors must be safe for concurrent use and must translate provider
// failures into this package's sentinel errors so callers can classify them
// without knowing the underlying transport.
package calendar

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Client implementations. Wrap them with
// fmt.Errorf("...: %w", err) so callers can use errors.Is.
var (
	// ErrAuthExpired means the calendar credential was rejected and the user
	// must re-authenticate.
	ErrAuthExpired = errors.New("calendar: credential expired or revoked")

	// ErrNotFound means the referenced event does not exist (or was already
	// cancelled).
	ErrNotFound = errors.New("calendar: event not found")

	// ErrConflict means the provider rejected the mutation due to a
	// concurrent modification.
	ErrConflict = errors.New("calendar: conflicting modification")

	// ErrUnavailable means the provider could not be reached or answered
	// with a transient server error.
	ErrUnavailable = errors.New("calendar: provider unavailable")
)

// Event is a calendar appointment.
type Event struct {
	// ID is the provider-assigned event identifier. Empty on events that have
	// not been created yet.
	ID string

	// Title is the event summary line.
	Title string

	// Description is an optional free-text body.
	Description string

	// Start is the inclusive start time.
	Start time.Time

	// End is the exclusive end time. Must be strictly after Start.
	End time.Time
}

// EventPatch describes a partial update to an existing event. Nil fields are
// left unchanged.
type EventPatch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
}

// IsZero reports whether the patch changes nothing.
func (p EventPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Start == nil && p.End == nil
}

// Range is a half-open time window [From, To). A zero To means unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// Client is the abstraction over any calendar backend.
//
// All methods must respect context cancellation and deadlines; a deadline
// that fires mid-call should surface as an error wrapping [ErrUnavailable]
// or the context error.
type Client interface {
	// CreateEvent inserts ev and returns it with the provider-assigned ID.
	// CreateEvent is not idempotent: repeated calls with identical fields
	// create duplicate events.
	CreateEvent(ctx context.Context, ev Event) (Event, error)

	// ListEvents returns the events overlapping r, ordered by start time.
	ListEvents(ctx context.Context, r Range) ([]Event, error)

	// UpdateEvent applies patch to the event identified by id and returns the
	// updated event.
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (Event, error)

	// CancelEvent removes the event identified by id.
	CancelEvent(ctx context.Context, id string) error
}
