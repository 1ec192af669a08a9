// Package google implements calendar.Client against the Google Calendar v3 API.
//
// The client operates on a single calendar (default "primary") using a
// pre-validated OAuth2 token source. Token refresh is the token source's
// concern; when the credential is rejected outright the client surfaces
// [calendar.ErrAuthExpired].
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pcurran/diarist/pkg/calendar"
)

// Compile-time interface check.
var _ calendar.Client = (*Client)(nil)

// defaultListLimit caps the number of events returned by a single list call.
const defaultListLimit = 50

// Client implements [calendar.Client] backed by the Google Calendar v3 API.
type Client struct {
	svc        *gcal.Service
	calendarID string
	listLimit  int64
}

// Option configures a [Client] during construction.
type Option func(*Client)

// WithCalendarID selects a calendar other than "primary".
func WithCalendarID(id string) Option {
	return func(c *Client) { c.calendarID = id }
}

// WithListLimit overrides the maximum number of events returned per list call.
func WithListLimit(n int64) Option {
	return func(c *Client) { c.listLimit = n }
}

// New creates a Client using the given token source. The token source must
// already carry a valid (or refreshable) credential with calendar scope.
func New(ctx context.Context, ts oauth2.TokenSource, opts ...Option) (*Client, error) {
	if ts == nil {
		return nil, errors.New("google calendar: token source must not be nil")
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("google calendar: create service: %w", err)
	}

	c := &Client{
		svc:        svc,
		calendarID: "primary",
		listLimit:  defaultListLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateEvent implements [calendar.Client].
func (c *Client) CreateEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	created, err := c.svc.Events.Insert(c.calendarID, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, fmt.Errorf("google calendar: insert: %w", normalizeError(err))
	}
	return fromGoogleEvent(created)
}

// ListEvents implements [calendar.Client].
func (c *Client) ListEvents(ctx context.Context, r calendar.Range) ([]calendar.Event, error) {
	call := c.svc.Events.List(c.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(c.listLimit).
		Context(ctx)
	if !r.From.IsZero() {
		call = call.TimeMin(r.From.Format(time.RFC3339))
	}
	if !r.To.IsZero() {
		call = call.TimeMax(r.To.Format(time.RFC3339))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("google calendar: list: %w", normalizeError(err))
	}

	events := make([]calendar.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev, convErr := fromGoogleEvent(item)
		if convErr != nil {
			// Skip events we cannot parse (e.g. malformed third-party
			// entries) rather than failing the whole listing.
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// UpdateEvent implements [calendar.Client].
func (c *Client) UpdateEvent(ctx context.Context, id string, patch calendar.EventPatch) (calendar.Event, error) {
	if id == "" {
		return calendar.Event{}, fmt.Errorf("google calendar: update: %w", calendar.ErrNotFound)
	}

	delta := &gcal.Event{}
	if patch.Title != nil {
		delta.Summary = *patch.Title
	}
	if patch.Description != nil {
		delta.Description = *patch.Description
	}
	if patch.Start != nil {
		delta.Start = &gcal.EventDateTime{DateTime: patch.Start.Format(time.RFC3339)}
	}
	if patch.End != nil {
		delta.End = &gcal.EventDateTime{DateTime: patch.End.Format(time.RFC3339)}
	}

	updated, err := c.svc.Events.Patch(c.calendarID, id, delta).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, fmt.Errorf("google calendar: patch: %w", normalizeError(err))
	}
	return fromGoogleEvent(updated)
}

// CancelEvent implements [calendar.Client].
func (c *Client) CancelEvent(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("google calendar: delete: %w", calendar.ErrNotFound)
	}
	if err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("google calendar: delete: %w", normalizeError(err))
	}
	return nil
}

// toGoogleEvent converts our Event into the wire representation. Times are
// sent as RFC 3339 with their zone offset preserved.
func toGoogleEvent(ev calendar.Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
	}
}

// fromGoogleEvent converts a wire event into our Event. All-day events carry
// a date instead of a datetime; they are parsed at midnight UTC.
func fromGoogleEvent(item *gcal.Event) (calendar.Event, error) {
	start, err := parseEventTime(item.Start)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("google calendar: event %s start: %w", item.Id, err)
	}
	end, err := parseEventTime(item.End)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("google calendar: event %s end: %w", item.Id, err)
	}
	return calendar.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
	}, nil
}

func parseEventTime(edt *gcal.EventDateTime) (time.Time, error) {
	if edt == nil {
		return time.Time{}, errors.New("missing time")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	if edt.Date != "" {
		return time.Parse("2006-01-02", edt.Date)
	}
	return time.Time{}, errors.New("missing time")
}

// normalizeError maps transport and API failures onto the calendar package's
// sentinel errors so the executor can classify them without importing
// googleapi.
func normalizeError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401 || gerr.Code == 403:
			return fmt.Errorf("%w: %s", calendar.ErrAuthExpired, gerr.Message)
		case gerr.Code == 404 || gerr.Code == 410:
			return fmt.Errorf("%w: %s", calendar.ErrNotFound, gerr.Message)
		case gerr.Code == 409 || gerr.Code == 412:
			return fmt.Errorf("%w: %s", calendar.ErrConflict, gerr.Message)
		case gerr.Code == 429 || gerr.Code >= 500:
			return fmt.Errorf("%w: %s", calendar.ErrUnavailable, gerr.Message)
		}
		return err
	}

	var nerr net.Error
	if errors.As(err, &nerr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", calendar.ErrUnavailable, err)
	}
	return err
}
