// Package mock provides an in-memory test double for the calendar.Client
// interface.
//
// The Client stores events in a map and records every call, so tests can
// script provider failures and assert on exactly which operations the tool
// executor performed.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pcurran/diarist/pkg/calendar"
)

// Compile-time interface check.
var _ calendar.Client = (*Client)(nil)

// CreateCall records a single invocation of CreateEvent.
type CreateCall struct {
	Event calendar.Event
}

// ListCall records a single invocation of ListEvents.
type ListCall struct {
	Range calendar.Range
}

// UpdateCall records a single invocation of UpdateEvent.
type UpdateCall struct {
	ID    string
	Patch calendar.EventPatch
}

// CancelCall records a single invocation of CancelEvent.
type CancelCall struct {
	ID string
}

// Client is an in-memory mock implementation of calendar.Client.
//
// Set the Err fields to inject failures (typically one of the calendar
// sentinel errors). When an Err field is nil the operation succeeds against
// the in-memory event map.
type Client struct {
	mu sync.Mutex

	// --- Injected failures ---

	// CreateErr, if non-nil, is returned by CreateEvent.
	CreateErr error

	// ListErr, if non-nil, is returned by ListEvents.
	ListErr error

	// UpdateErr, if non-nil, is returned by UpdateEvent.
	UpdateErr error

	// CancelErr, if non-nil, is returned by CancelEvent.
	CancelErr error

	// --- Call records (read after test) ---

	CreateCalls []CreateCall
	ListCalls   []ListCall
	UpdateCalls []UpdateCall
	CancelCalls []CancelCall

	events map[string]calendar.Event
	nextID int
}

// CreateEvent stores ev under a generated ID and returns it.
func (c *Client) CreateEvent(_ context.Context, ev calendar.Event) (calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CreateCalls = append(c.CreateCalls, CreateCall{Event: ev})
	if c.CreateErr != nil {
		return calendar.Event{}, c.CreateErr
	}

	if c.events == nil {
		c.events = make(map[string]calendar.Event)
	}
	c.nextID++
	ev.ID = fmt.Sprintf("evt-%d", c.nextID)
	c.events[ev.ID] = ev
	return ev, nil
}

// ListEvents returns stored events overlapping r, ordered by start time.
func (c *Client) ListEvents(_ context.Context, r calendar.Range) ([]calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ListCalls = append(c.ListCalls, ListCall{Range: r})
	if c.ListErr != nil {
		return nil, c.ListErr
	}

	var out []calendar.Event
	for _, ev := range c.events {
		if !r.From.IsZero() && !ev.End.After(r.From) {
			continue
		}
		if !r.To.IsZero() && !ev.Start.Before(r.To) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// UpdateEvent applies patch to the stored event with the given id.
func (c *Client) UpdateEvent(_ context.Context, id string, patch calendar.EventPatch) (calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.UpdateCalls = append(c.UpdateCalls, UpdateCall{ID: id, Patch: patch})
	if c.UpdateErr != nil {
		return calendar.Event{}, c.UpdateErr
	}

	ev, ok := c.events[id]
	if !ok {
		return calendar.Event{}, calendar.ErrNotFound
	}
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	c.events[id] = ev
	return ev, nil
}

// CancelEvent removes the stored event with the given id.
func (c *Client) CancelEvent(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CancelCalls = append(c.CancelCalls, CancelCall{ID: id})
	if c.CancelErr != nil {
		return c.CancelErr
	}

	if _, ok := c.events[id]; !ok {
		return calendar.ErrNotFound
	}
	delete(c.events, id)
	return nil
}

// Events returns a snapshot of all stored events (test helper).
func (c *Client) Events() []calendar.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]calendar.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
