package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pcurran/diarist/pkg/calendar"
	"github.com/pcurran/diarist/pkg/store"
	"github.com/pcurran/diarist/pkg/types"
)

// defaultToolTimeout bounds the wall-clock time of a single calendar call.
const defaultToolTimeout = 15 * time.Second

// Executor performs calendar operations on behalf of the model. It is the
// only component with external side effects, which is why every outcome is
// a [types.ToolInvocationResult] rather than an error: a failed call must
// still produce a turn so the model can explain the failure to the user.
//
// Calendar calls run on a context detached from the caller's cancellation.
// A client disconnect must not abandon an in-flight calendar mutation, so
// each call is bounded by the executor's own timeout instead.
type Executor struct {
	cal          calendar.Client
	appointments store.AppointmentStore
	timeout      time.Duration
	logger       *slog.Logger
}

// ExecutorOption configures an [Executor] during construction.
type ExecutorOption func(*Executor)

// WithToolTimeout sets the per-call wall-clock timeout for calendar
// operations. The default is 15 seconds.
func WithToolTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithAppointmentMirror makes the executor record successful calendar
// mutations into the given appointment store. Mirror write failures are
// logged, never surfaced: the calendar provider stays the source of truth.
func WithAppointmentMirror(s store.AppointmentStore) ExecutorOption {
	return func(e *Executor) {
		e.appointments = s
	}
}

// NewExecutor creates an Executor dispatching to the given calendar client.
func NewExecutor(cal calendar.Client, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		cal:     cal,
		timeout: defaultToolTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates the call's arguments and dispatches to the matching
// calendar operation. conversationID is only used for the appointment mirror.
//
// Execute never returns an error: validation failures, provider failures,
// and timeouts all come back as failure results with a normalized ErrorKind.
func (e *Executor) Execute(ctx context.Context, conversationID string, call types.ToolCall) types.ToolInvocationResult {
	// Finish the in-flight calendar call even if the caller goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	switch call.Name {
	case ToolCreateEvent:
		return e.createEvent(ctx, conversationID, call)
	case ToolListEvents:
		return e.listEvents(ctx, call)
	case ToolUpdateEvent:
		return e.updateEvent(ctx, call)
	case ToolCancelEvent:
		return e.cancelEvent(ctx, call)
	case ToolCheckAvailability:
		return e.checkAvailability(ctx, call)
	default:
		return types.FailureResult(call.Name, call.ID, types.ErrKindUnknownTool,
			fmt.Sprintf("no tool named %q", call.Name))
	}
}

func (e *Executor) createEvent(ctx context.Context, conversationID string, call types.ToolCall) types.ToolInvocationResult {
	args, err := parseCreateEventArgs(call.Arguments)
	if err != nil {
		return types.FailureResult(call.Name, call.ID, types.ErrKindValidation, err.Error())
	}

	ev, err := e.cal.CreateEvent(ctx, calendar.Event{
		Title:       args.Title,
		Description: args.Description,
		Start:       args.Start,
		End:         args.End,
	})
	if err != nil {
		return e.providerFailure(call, "create event", err)
	}

	e.mirror(ctx, func(mctx context.Context) error {
		return e.appointments.RecordAppointment(mctx, store.Appointment{
			EventID:        ev.ID,
			ConversationID: conversationID,
			Title:          ev.Title,
			Start:          ev.Start,
			End:            ev.End,
			Status:         store.AppointmentScheduled,
		})
	})

	return types.SuccessResult(call.Name, call.ID, map[string]any{
		"event_id":   ev.ID,
		"title":      ev.Title,
		"start_time": ev.Start.Format(timeLayout),
		"end_time":   ev.End.Format(timeLayout),
	})
}

func (e *Executor) listEvents(ctx context.Context, call types.ToolCall) types.ToolInvocationResult {
	args, err := parseListEventsArgs(call.Arguments)
	if err != nil {
		return types.FailureResult(call.Name, call.ID, types.ErrKindValidation, err.Error())
	}

	events, err := e.cal.ListEvents(ctx, calendar.Range{From: args.From, To: args.To})
	if err != nil {
		return e.providerFailure(call, "list events", err)
	}

	return types.SuccessResult(call.Name, call.ID, map[string]any{
		"count":  len(events),
		"events": eventPayloads(events),
	})
}

func (e *Executor) updateEvent(ctx context.Context, call types.ToolCall) types.ToolInvocationResult {
	args, err := parseUpdateEventArgs(call.Arguments)
	if err != nil {
		return types.FailureResult(call.Name, call.ID, types.ErrKindValidation, err.Error())
	}

	ev, err := e.cal.UpdateEvent(ctx, args.EventID, calendar.EventPatch{
		Title:       args.Title,
		Description: args.Description,
		Start:       args.Start,
		End:         args.End,
	})
	if err != nil {
		return e.providerFailure(call, "update event", err)
	}

	e.mirror(ctx, func(mctx context.Context) error {
		return e.appointments.UpdateAppointment(mctx, ev.ID, ev.Title, ev.Start, ev.End)
	})

	return types.SuccessResult(call.Name, call.ID, map[string]any{
		"event_id":   ev.ID,
		"title":      ev.Title,
		"start_time": ev.Start.Format(timeLayout),
		"end_time":   ev.End.Format(timeLayout),
	})
}

func (e *Executor) cancelEvent(ctx context.Context, call types.ToolCall) types.ToolInvocationResult {
	args, err := parseCancelEventArgs(call.Arguments)
	if err != nil {
		return types.FailureResult(call.Name, call.ID, types.ErrKindValidation, err.Error())
	}

	if err := e.cal.CancelEvent(ctx, args.EventID); err != nil {
		return e.providerFailure(call, "cancel event", err)
	}

	e.mirror(ctx, func(mctx context.Context) error {
		return e.appointments.CancelAppointment(mctx, args.EventID)
	})

	return types.SuccessResult(call.Name, call.ID, map[string]any{
		"event_id":  args.EventID,
		"cancelled": true,
	})
}

func (e *Executor) checkAvailability(ctx context.Context, call types.ToolCall) types.ToolInvocationResult {
	args, err := parseCheckAvailabilityArgs(call.Arguments)
	if err != nil {
		return types.FailureResult(call.Name, call.ID, types.ErrKindValidation, err.Error())
	}

	conflicts, err := e.cal.ListEvents(ctx, calendar.Range{From: args.Start, To: args.End})
	if err != nil {
		return e.providerFailure(call, "check availability", err)
	}

	return types.SuccessResult(call.Name, call.ID, map[string]any{
		"available": len(conflicts) == 0,
		"conflicts": eventPayloads(conflicts),
	})
}

// mirror runs fn against the appointment store, if one is configured.
func (e *Executor) mirror(ctx context.Context, fn func(context.Context) error) {
	if e.appointments == nil {
		return
	}
	if err := fn(ctx); err != nil {
		e.logger.Warn("appointment mirror write failed", "error", err)
	}
}

// providerFailure normalizes a calendar client error into a failure result
// with one of the closed ErrorKind values.
func (e *Executor) providerFailure(call types.ToolCall, op string, err error) types.ToolInvocationResult {
	kind := classifyCalendarError(err)
	e.logger.Warn("calendar call failed",
		"tool", call.Name,
		"op", op,
		"kind", string(kind),
		"error", err,
	)
	return types.FailureResult(call.Name, call.ID, kind, fmt.Sprintf("%s: %v", op, err))
}

func classifyCalendarError(err error) types.ErrorKind {
	switch {
	case errors.Is(err, calendar.ErrAuthExpired):
		return types.ErrKindAuthExpired
	case errors.Is(err, calendar.ErrNotFound):
		return types.ErrKindNotFound
	case errors.Is(err, calendar.ErrConflict):
		return types.ErrKindConflict
	case errors.Is(err, calendar.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return types.ErrKindUnavailable
	default:
		return types.ErrKindUnknown
	}
}

func eventPayloads(events []calendar.Event) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"event_id":    ev.ID,
			"title":       ev.Title,
			"description": ev.Description,
			"start_time":  ev.Start.Format(timeLayout),
			"end_time":    ev.End.Format(timeLayout),
		})
	}
	return out
}
