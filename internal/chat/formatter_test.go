package chat

import (
	"strings"
	"testing"

	"github.com/pcurran/diarist/pkg/types"
)

func TestFormatReply(t *testing.T) {
	t.Parallel()

	created := types.SuccessResult(ToolCreateEvent, "c1", map[string]any{
		"event_id":   "evt-1",
		"title":      "Design review",
		"start_time": "2026-09-01T14:00:00Z",
		"end_time":   "2026-09-01T15:00:00Z",
	})

	t.Run("no tool results", func(t *testing.T) {
		t.Parallel()
		got := FormatReply(types.AssistantTurn("You're free all afternoon."), nil)
		if got != "You're free all afternoon." {
			t.Fatalf("unexpected reply: %q", got)
		}
	})

	t.Run("create disclosure appended", func(t *testing.T) {
		t.Parallel()
		got := FormatReply(types.AssistantTurn("Booked!"), []types.ToolInvocationResult{created})
		if !strings.HasPrefix(got, "Booked!") {
			t.Fatalf("reply body lost: %q", got)
		}
		if !strings.Contains(got, `scheduled "Design review"`) {
			t.Fatalf("missing disclosure: %q", got)
		}
		if !strings.Contains(got, "14:00–15:00") {
			t.Fatalf("missing time range: %q", got)
		}
	})

	t.Run("failures are not disclosed", func(t *testing.T) {
		t.Parallel()
		failed := types.FailureResult(ToolCreateEvent, "c1", types.ErrKindUnavailable, "create event: provider unavailable")
		got := FormatReply(types.AssistantTurn("Sorry, I couldn't reach your calendar."), []types.ToolInvocationResult{failed})
		if strings.Contains(got, "(") {
			t.Fatalf("failure must not produce a disclosure: %q", got)
		}
	})

	t.Run("read-only tools are not disclosed", func(t *testing.T) {
		t.Parallel()
		listed := types.SuccessResult(ToolListEvents, "c1", map[string]any{"count": 3})
		got := FormatReply(types.AssistantTurn("You have 3 appointments."), []types.ToolInvocationResult{listed})
		if strings.Contains(got, "(") {
			t.Fatalf("list result must not produce a disclosure: %q", got)
		}
	})

	t.Run("multiple disclosures joined", func(t *testing.T) {
		t.Parallel()
		cancelled := types.SuccessResult(ToolCancelEvent, "c2", map[string]any{"event_id": "evt-0", "cancelled": true})
		got := FormatReply(types.AssistantTurn("Done."), []types.ToolInvocationResult{created, cancelled})
		if !strings.Contains(got, "; appointment cancelled") {
			t.Fatalf("disclosures not joined: %q", got)
		}
	})

	t.Run("empty final content still discloses", func(t *testing.T) {
		t.Parallel()
		got := FormatReply(types.AssistantTurn(""), []types.ToolInvocationResult{created})
		if !strings.HasPrefix(got, "(") {
			t.Fatalf("want bare disclosure, got %q", got)
		}
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		t.Parallel()
		turn := types.AssistantTurn("Booked!")
		results := []types.ToolInvocationResult{created}
		first := FormatReply(turn, results)
		for i := 0; i < 5; i++ {
			if got := FormatReply(turn, results); got != first {
				t.Fatalf("output changed between calls: %q vs %q", first, got)
			}
		}
	})
}

func TestPayloadTimeRangeCrossDay(t *testing.T) {
	t.Parallel()

	r := types.SuccessResult(ToolCreateEvent, "c1", map[string]any{
		"title":      "Offsite",
		"start_time": "2026-09-01T14:00:00Z",
		"end_time":   "2026-09-02T10:00:00Z",
	})
	got := disclosure(r)
	if !strings.Contains(got, "Tue, 01 Sep 2026 14:00 – Wed, 02 Sep 2026 10:00") {
		t.Fatalf("cross-day range not rendered in full: %q", got)
	}
}
