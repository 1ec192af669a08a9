package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/pcurran/diarist/pkg/types"
)

// FormatReply renders the terminal assistant turn into the user-facing reply
// string, annotated with a short disclosure of the calendar actions taken
// during the cycle.
//
// Only success results contribute disclosures. Failures are narrated by the
// model itself in the final turn's content, so repeating them here would
// duplicate the apology.
//
// FormatReply is a pure function: the same inputs always produce the same
// output.
func FormatReply(finalTurn types.Turn, results []types.ToolInvocationResult) string {
	reply := strings.TrimSpace(finalTurn.Content)

	var disclosures []string
	for _, r := range results {
		if d := disclosure(r); d != "" {
			disclosures = append(disclosures, d)
		}
	}
	if len(disclosures) == 0 {
		return reply
	}

	note := "(" + strings.Join(disclosures, "; ") + ")"
	if reply == "" {
		return note
	}
	return reply + "\n\n" + note
}

// disclosure renders one success result as a short user-relevant note, or ""
// when the result warrants no disclosure.
func disclosure(r types.ToolInvocationResult) string {
	if !r.Succeeded() {
		return ""
	}

	switch r.ToolName {
	case ToolCreateEvent:
		title := payloadString(r, "title")
		when := payloadTimeRange(r)
		if when == "" {
			return fmt.Sprintf("scheduled %q", title)
		}
		return fmt.Sprintf("scheduled %q for %s", title, when)
	case ToolUpdateEvent:
		when := payloadTimeRange(r)
		if when == "" {
			return fmt.Sprintf("updated %q", payloadString(r, "title"))
		}
		return fmt.Sprintf("rescheduled %q to %s", payloadString(r, "title"), when)
	case ToolCancelEvent:
		return "appointment cancelled"
	default:
		// Read-only tools (list, availability) change nothing worth disclosing.
		return ""
	}
}

func payloadString(r types.ToolInvocationResult, key string) string {
	if s, ok := r.Payload[key].(string); ok {
		return s
	}
	return ""
}

// payloadTimeRange renders the start/end of a payload as a compact local
// range, e.g. "Mon, 01 Sep 2026 14:00–15:00".
func payloadTimeRange(r types.ToolInvocationResult) string {
	start, err := time.Parse(timeLayout, payloadString(r, "start_time"))
	if err != nil {
		return ""
	}
	end, err := time.Parse(timeLayout, payloadString(r, "end_time"))
	if err != nil {
		return start.Format("Mon, 02 Jan 2006 15:04")
	}

	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s–%s", start.Format("Mon, 02 Jan 2006 15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s – %s", start.Format("Mon, 02 Jan 2006 15:04"), end.Format("Mon, 02 Jan 2006 15:04"))
}
