package chat

import (
	"fmt"

	"github.com/pcurran/diarist/pkg/types"
)

// ConversationState owns the ordered turn sequence of a single conversation
// for the duration of one cycle. It is rehydrated from the durable turn log
// at cycle start and is never shared between concurrent cycles; the [Manager]
// serializes cycles per conversation ID.
//
// Append enforces the turn-alternation invariant:
//
//   - a tool_result turn must immediately follow an assistant turn carrying a
//     tool call with the same tool name
//   - an assistant turn carrying a tool call must be followed by a
//     tool_result, never by another assistant or user turn
//
// Violations return [ErrInvalidTurnSequence] and leave the state unchanged.
type ConversationState struct {
	id    string
	turns []types.Turn
}

// NewConversationState creates a state for the given conversation ID, seeded
// with previously persisted history. The history is trusted as-is; only new
// appends are validated.
func NewConversationState(conversationID string, history []types.Turn) *ConversationState {
	turns := make([]types.Turn, len(history))
	copy(turns, history)
	return &ConversationState{id: conversationID, turns: turns}
}

// ID returns the conversation ID this state belongs to.
func (s *ConversationState) ID() string { return s.id }

// Len returns the number of turns currently held.
func (s *ConversationState) Len() int { return len(s.turns) }

// Append adds turn to the sequence after checking the alternation invariant.
func (s *ConversationState) Append(turn types.Turn) error {
	if !turn.Role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidTurnSequence, turn.Role)
	}

	if err := s.checkAlternation(turn); err != nil {
		return err
	}
	s.turns = append(s.turns, turn)
	return nil
}

// Snapshot returns a read-only copy of the turn sequence for sending to the
// model. Mutating the returned slice does not affect the state.
func (s *ConversationState) Snapshot() []types.Turn {
	out := make([]types.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *ConversationState) checkAlternation(turn types.Turn) error {
	var last *types.Turn
	if len(s.turns) > 0 {
		last = &s.turns[len(s.turns)-1]
	}

	pendingCall := last != nil && last.Role == types.RoleAssistant && last.ToolCall != nil

	switch turn.Role {
	case types.RoleToolResult:
		if turn.Result == nil {
			return fmt.Errorf("%w: tool_result turn without a result", ErrInvalidTurnSequence)
		}
		if !pendingCall {
			return fmt.Errorf("%w: tool_result without a preceding tool call", ErrInvalidTurnSequence)
		}
		if last.ToolCall.Name != turn.Result.ToolName {
			return fmt.Errorf("%w: tool_result for %q but pending call is %q",
				ErrInvalidTurnSequence, turn.Result.ToolName, last.ToolCall.Name)
		}
	case types.RoleAssistant, types.RoleUser:
		if pendingCall {
			return fmt.Errorf("%w: %s turn while a tool call is pending", ErrInvalidTurnSequence, turn.Role)
		}
	}
	return nil
}
