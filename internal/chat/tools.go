package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Tool names. The closed set of calendar actions the model may request.
const (
	ToolCreateEvent       = "create_event"
	ToolListEvents        = "list_events"
	ToolUpdateEvent       = "update_event"
	ToolCancelEvent       = "cancel_event"
	ToolCheckAvailability = "check_availability"
)

// timeLayout is the wire format for all date/time tool arguments.
const timeLayout = time.RFC3339

// createEventArgs are the validated arguments of the create_event tool.
type createEventArgs struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// listEventsArgs are the validated arguments of the list_events tool.
// Zero From/To mean an unbounded range on that side.
type listEventsArgs struct {
	From time.Time
	To   time.Time
}

// updateEventArgs are the validated arguments of the update_event tool.
// Nil fields are left untouched on the event.
type updateEventArgs struct {
	EventID     string
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
}

// cancelEventArgs are the validated arguments of the cancel_event tool.
type cancelEventArgs struct {
	EventID string
}

// checkAvailabilityArgs are the validated arguments of the
// check_availability tool.
type checkAvailabilityArgs struct {
	Start time.Time
	End   time.Time
}

// rawArgs is the loosely typed shape tool arguments arrive in from the model.
type rawArgs struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	EventID     *string `json:"event_id"`
}

func decodeRawArgs(arguments string) (rawArgs, error) {
	var raw rawArgs
	if arguments == "" {
		return raw, nil
	}
	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		return rawArgs{}, fmt.Errorf("arguments are not valid JSON: %v", err)
	}
	return raw, nil
}

// requireString returns the value of an argument, or an error naming it when
// missing or empty.
func requireString(name string, v *string) (string, error) {
	if v == nil || *v == "" {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	return *v, nil
}

// requireTime parses a mandatory RFC 3339 timestamp argument.
func requireTime(name string, v *string) (time.Time, error) {
	s, err := requireString(name, v)
	if err != nil {
		return time.Time{}, err
	}
	return parseTimeArg(name, s)
}

// optionalTime parses an optional RFC 3339 timestamp argument. A nil or empty
// value yields a nil pointer.
func optionalTime(name string, v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := parseTimeArg(name, *v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseTimeArg(name, s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %q is not a valid RFC 3339 timestamp: %q", name, s)
	}
	return t, nil
}

func parseCreateEventArgs(arguments string) (createEventArgs, error) {
	raw, err := decodeRawArgs(arguments)
	if err != nil {
		return createEventArgs{}, err
	}

	var (
		args createEventArgs
		errs []error
	)
	if args.Title, err = requireString("title", raw.Title); err != nil {
		errs = append(errs, err)
	}
	if args.Start, err = requireTime("start_time", raw.StartTime); err != nil {
		errs = append(errs, err)
	}
	if args.End, err = requireTime("end_time", raw.EndTime); err != nil {
		errs = append(errs, err)
	}
	if raw.Description != nil {
		args.Description = *raw.Description
	}
	if len(errs) > 0 {
		return createEventArgs{}, errors.Join(errs...)
	}

	if !args.Start.Before(args.End) {
		return createEventArgs{}, errors.New("start_time must be strictly before end_time")
	}
	return args, nil
}

func parseListEventsArgs(arguments string) (listEventsArgs, error) {
	raw, err := decodeRawArgs(arguments)
	if err != nil {
		return listEventsArgs{}, err
	}

	var args listEventsArgs
	from, err := optionalTime("start_time", raw.StartTime)
	if err != nil {
		return listEventsArgs{}, err
	}
	to, err := optionalTime("end_time", raw.EndTime)
	if err != nil {
		return listEventsArgs{}, err
	}
	if from != nil {
		args.From = *from
	}
	if to != nil {
		args.To = *to
	}
	if from != nil && to != nil && !args.From.Before(args.To) {
		return listEventsArgs{}, errors.New("start_time must be strictly before end_time")
	}
	return args, nil
}

func parseUpdateEventArgs(arguments string) (updateEventArgs, error) {
	raw, err := decodeRawArgs(arguments)
	if err != nil {
		return updateEventArgs{}, err
	}

	var args updateEventArgs
	if args.EventID, err = requireString("event_id", raw.EventID); err != nil {
		return updateEventArgs{}, err
	}
	args.Title = raw.Title
	args.Description = raw.Description
	if args.Start, err = optionalTime("start_time", raw.StartTime); err != nil {
		return updateEventArgs{}, err
	}
	if args.End, err = optionalTime("end_time", raw.EndTime); err != nil {
		return updateEventArgs{}, err
	}

	if args.Title == nil && args.Description == nil && args.Start == nil && args.End == nil {
		return updateEventArgs{}, errors.New("at least one of title, description, start_time, end_time must be provided")
	}
	if args.Start != nil && args.End != nil && !args.Start.Before(*args.End) {
		return updateEventArgs{}, errors.New("start_time must be strictly before end_time")
	}
	return args, nil
}

func parseCancelEventArgs(arguments string) (cancelEventArgs, error) {
	raw, err := decodeRawArgs(arguments)
	if err != nil {
		return cancelEventArgs{}, err
	}

	var args cancelEventArgs
	if args.EventID, err = requireString("event_id", raw.EventID); err != nil {
		return cancelEventArgs{}, err
	}
	return args, nil
}

func parseCheckAvailabilityArgs(arguments string) (checkAvailabilityArgs, error) {
	raw, err := decodeRawArgs(arguments)
	if err != nil {
		return checkAvailabilityArgs{}, err
	}

	var (
		args checkAvailabilityArgs
		errs []error
	)
	if args.Start, err = requireTime("start_time", raw.StartTime); err != nil {
		errs = append(errs, err)
	}
	if args.End, err = requireTime("end_time", raw.EndTime); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return checkAvailabilityArgs{}, errors.Join(errs...)
	}
	if !args.Start.Before(args.End) {
		return checkAvailabilityArgs{}, errors.New("start_time must be strictly before end_time")
	}
	return args, nil
}

// DefaultRegistry builds the registry of calendar tools exposed to the model.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	specs := []ToolSpec{
		{
			Name:        ToolCreateEvent,
			Description: "Create a new calendar appointment.",
			Arguments: map[string]ArgumentSpec{
				"title":       {Type: "string", Required: true, Description: "Short title of the appointment."},
				"start_time":  {Type: "string", Required: true, Description: "Start of the appointment as an RFC 3339 timestamp, e.g. 2026-09-01T14:00:00Z."},
				"end_time":    {Type: "string", Required: true, Description: "End of the appointment as an RFC 3339 timestamp. Must be after start_time."},
				"description": {Type: "string", Required: false, Description: "Optional longer description."},
			},
		},
		{
			Name:        ToolListEvents,
			Description: "List calendar appointments in a time range.",
			Arguments: map[string]ArgumentSpec{
				"start_time": {Type: "string", Required: false, Description: "Inclusive lower bound of the range as an RFC 3339 timestamp. Omit for no lower bound."},
				"end_time":   {Type: "string", Required: false, Description: "Exclusive upper bound of the range as an RFC 3339 timestamp. Omit for no upper bound."},
			},
		},
		{
			Name:        ToolUpdateEvent,
			Description: "Reschedule or retitle an existing appointment. Only the provided fields change.",
			Arguments: map[string]ArgumentSpec{
				"event_id":    {Type: "string", Required: true, Description: "Identifier of the appointment, as returned by create_event or list_events."},
				"title":       {Type: "string", Required: false, Description: "New title."},
				"description": {Type: "string", Required: false, Description: "New description."},
				"start_time":  {Type: "string", Required: false, Description: "New start as an RFC 3339 timestamp."},
				"end_time":    {Type: "string", Required: false, Description: "New end as an RFC 3339 timestamp."},
			},
		},
		{
			Name:        ToolCancelEvent,
			Description: "Cancel an existing appointment.",
			Arguments: map[string]ArgumentSpec{
				"event_id": {Type: "string", Required: true, Description: "Identifier of the appointment to cancel."},
			},
		},
		{
			Name:        ToolCheckAvailability,
			Description: "Check whether a time range is free of appointments.",
			Arguments: map[string]ArgumentSpec{
				"start_time": {Type: "string", Required: true, Description: "Start of the range as an RFC 3339 timestamp."},
				"end_time":   {Type: "string", Required: true, Description: "End of the range as an RFC 3339 timestamp. Must be after start_time."},
			},
		},
	}

	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			// Names above are distinct constants, so this is unreachable.
			panic(err)
		}
	}
	return r
}
