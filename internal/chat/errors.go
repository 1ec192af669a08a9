package chat

import "errors"

// ErrConversationBusy is returned by [Manager.HandleUserMessage] when a cycle
// for the same conversation is already in flight. The caller should retry
// after the current cycle completes.
var ErrConversationBusy = errors.New("chat: conversation busy")

// ErrInvalidTurnSequence indicates a violation of the turn-alternation
// invariant. It is always a defect in the orchestration logic, never a
// user-facing condition.
var ErrInvalidTurnSequence = errors.New("chat: invalid turn sequence")

// ErrDuplicateTool is returned by [Registry.Register] when a tool with the
// same name is already registered.
var ErrDuplicateTool = errors.New("chat: duplicate tool")

// ErrUnknownTool is returned by [Registry.Get] for a tool name that was never
// registered.
var ErrUnknownTool = errors.New("chat: unknown tool")
