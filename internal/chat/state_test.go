package chat

import (
	"errors"
	"testing"

	"github.com/pcurran/diarist/pkg/types"
)

func TestConversationStateAppend(t *testing.T) {
	t.Parallel()

	call := types.ToolCall{ID: "c1", Name: ToolCreateEvent, Arguments: "{}"}
	result := types.SuccessResult(ToolCreateEvent, "c1", map[string]any{"event_id": "evt-1"})

	t.Run("user then assistant alternation", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		if err := s.Append(types.UserTurn("schedule a meeting")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Append(types.AssistantTurn("done")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Len() != 2 {
			t.Fatalf("want 2 turns, got %d", s.Len())
		}
	})

	t.Run("tool result follows matching call", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		mustAppend(t, s, types.UserTurn("book it"))
		mustAppend(t, s, types.AssistantCallTurn("", call))
		if err := s.Append(types.ToolResultTurn(result)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("tool result without preceding call is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		mustAppend(t, s, types.UserTurn("book it"))
		err := s.Append(types.ToolResultTurn(result))
		if !errors.Is(err, ErrInvalidTurnSequence) {
			t.Fatalf("want ErrInvalidTurnSequence, got %v", err)
		}
		if s.Len() != 1 {
			t.Fatalf("rejected append must not mutate state, got %d turns", s.Len())
		}
	})

	t.Run("tool result for wrong tool is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		mustAppend(t, s, types.UserTurn("book it"))
		mustAppend(t, s, types.AssistantCallTurn("", call))
		wrong := types.SuccessResult(ToolListEvents, "c1", nil)
		err := s.Append(types.ToolResultTurn(wrong))
		if !errors.Is(err, ErrInvalidTurnSequence) {
			t.Fatalf("want ErrInvalidTurnSequence, got %v", err)
		}
	})

	t.Run("user turn while call pending is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		mustAppend(t, s, types.UserTurn("book it"))
		mustAppend(t, s, types.AssistantCallTurn("", call))
		err := s.Append(types.UserTurn("actually never mind"))
		if !errors.Is(err, ErrInvalidTurnSequence) {
			t.Fatalf("want ErrInvalidTurnSequence, got %v", err)
		}
	})

	t.Run("assistant turn while call pending is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		mustAppend(t, s, types.UserTurn("book it"))
		mustAppend(t, s, types.AssistantCallTurn("", call))
		err := s.Append(types.AssistantTurn("done"))
		if !errors.Is(err, ErrInvalidTurnSequence) {
			t.Fatalf("want ErrInvalidTurnSequence, got %v", err)
		}
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		err := s.Append(types.Turn{Role: "system", Content: "sneaky"})
		if !errors.Is(err, ErrInvalidTurnSequence) {
			t.Fatalf("want ErrInvalidTurnSequence, got %v", err)
		}
	})

	t.Run("tool result without result payload is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewConversationState("conv-1", nil)
		mustAppend(t, s, types.UserTurn("book it"))
		mustAppend(t, s, types.AssistantCallTurn("", call))
		err := s.Append(types.Turn{Role: types.RoleToolResult})
		if !errors.Is(err, ErrInvalidTurnSequence) {
			t.Fatalf("want ErrInvalidTurnSequence, got %v", err)
		}
	})
}

func TestConversationStateSnapshot(t *testing.T) {
	t.Parallel()

	s := NewConversationState("conv-1", []types.Turn{types.UserTurn("hi")})
	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("want 1 turn, got %d", len(snap))
	}

	snap[0].Content = "mutated"
	if got := s.Snapshot()[0].Content; got != "hi" {
		t.Fatalf("snapshot mutation leaked into state: %q", got)
	}
}

func TestConversationStateSeededHistory(t *testing.T) {
	t.Parallel()

	// Persisted history is trusted as-is: a pending call in the log means
	// the next append must be its result.
	call := types.ToolCall{ID: "c9", Name: ToolCancelEvent, Arguments: `{"event_id":"evt-9"}`}
	s := NewConversationState("conv-2", []types.Turn{
		types.UserTurn("cancel my 3pm"),
		types.AssistantCallTurn("", call),
	})

	if err := s.Append(types.UserTurn("hello?")); !errors.Is(err, ErrInvalidTurnSequence) {
		t.Fatalf("want ErrInvalidTurnSequence, got %v", err)
	}
	res := types.SuccessResult(ToolCancelEvent, "c9", map[string]any{"cancelled": true})
	if err := s.Append(types.ToolResultTurn(res)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func mustAppend(t *testing.T, s *ConversationState, turn types.Turn) {
	t.Helper()
	if err := s.Append(turn); err != nil {
		t.Fatalf("append %s turn: %v", turn.Role, err)
	}
}
