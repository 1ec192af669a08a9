// Package types defines the shared types used across all diarist packages.
//
// These types form the lingua franca between the LLM provider, the calendar
// client, the persistence layer, and the chat orchestrator. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import (
	"encoding/json"
	"time"
)

// TurnRole identifies who produced a conversation turn.
type TurnRole string

const (
	// RoleUser marks a turn containing the user's message.
	RoleUser TurnRole = "user"

	// RoleAssistant marks a turn produced by the model — either a final
	// natural-language reply or a tool invocation request.
	RoleAssistant TurnRole = "assistant"

	// RoleToolResult marks a turn carrying the outcome of a tool invocation
	// requested by the immediately preceding assistant turn.
	RoleToolResult TurnRole = "tool_result"
)

// IsValid reports whether r is a recognised turn role.
func (r TurnRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleToolResult:
		return true
	}
	return false
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned identifier for this call. Echoed back on
	// the matching tool result so the model can correlate the two.
	ID string `json:"id"`

	// Name is the tool's unique name within the registry.
	Name string `json:"name"`

	// Arguments is the JSON-encoded argument object emitted by the model.
	Arguments string `json:"arguments"`
}

// ErrorKind is a closed set of normalised failure categories used instead of
// raw provider errors. Everything the model is asked to narrate to the user
// passes through one of these.
type ErrorKind string

const (
	ErrKindValidation  ErrorKind = "validation"
	ErrKindUnknownTool ErrorKind = "unknown_tool"
	ErrKindAuthExpired ErrorKind = "auth_expired"
	ErrKindNotFound    ErrorKind = "not_found"
	ErrKindConflict    ErrorKind = "conflict"
	ErrKindUnavailable ErrorKind = "unavailable"
	ErrKindUnknown     ErrorKind = "unknown"
)

// InvocationStatus is the outcome class of a tool invocation.
type InvocationStatus string

const (
	StatusSuccess InvocationStatus = "success"
	StatusFailure InvocationStatus = "failure"
)

// ToolInvocationResult holds the structured outcome of one tool execution.
// Failures are data, not errors: a failed invocation still produces a turn so
// the model can explain the failure to the user.
type ToolInvocationResult struct {
	// ToolName is the name of the tool that was (or would have been) executed.
	ToolName string `json:"tool_name"`

	// CallID echoes the [ToolCall.ID] this result answers.
	CallID string `json:"call_id"`

	// Status is success or failure.
	Status InvocationStatus `json:"status"`

	// Payload carries provider-assigned identifiers and echoed fields on
	// success. Nil on failure.
	Payload map[string]any `json:"payload,omitempty"`

	// ErrorKind categorises the failure. Empty on success.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Message is a human-readable failure description. Empty on success.
	Message string `json:"message,omitempty"`
}

// Succeeded reports whether the invocation completed successfully.
func (r ToolInvocationResult) Succeeded() bool { return r.Status == StatusSuccess }

// ModelContent renders the result as the text the model sees on the
// tool-result turn: the payload as JSON on success, or the error kind and
// message on failure.
func (r ToolInvocationResult) ModelContent() string {
	if r.Succeeded() {
		b, err := json.Marshal(r.Payload)
		if err != nil {
			return "{}"
		}
		return string(b)
	}
	return "error (" + string(r.ErrorKind) + "): " + r.Message
}

// SuccessResult builds a success [ToolInvocationResult].
func SuccessResult(toolName, callID string, payload map[string]any) ToolInvocationResult {
	return ToolInvocationResult{
		ToolName: toolName,
		CallID:   callID,
		Status:   StatusSuccess,
		Payload:  payload,
	}
}

// FailureResult builds a failure [ToolInvocationResult].
func FailureResult(toolName, callID string, kind ErrorKind, message string) ToolInvocationResult {
	return ToolInvocationResult{
		ToolName:  toolName,
		CallID:    callID,
		Status:    StatusFailure,
		ErrorKind: kind,
		Message:   message,
	}
}

// Turn is one atomic step of a conversation: a user message, an assistant
// message (optionally carrying a tool call), or a tool result.
type Turn struct {
	// Role identifies who produced this turn.
	Role TurnRole `json:"role"`

	// Content is the turn's text. For tool-result turns it is the rendering
	// of the invocation result that the model consumes.
	Content string `json:"content"`

	// ToolCall is set only on assistant turns that request a tool invocation.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// Result is set only on tool-result turns.
	Result *ToolInvocationResult `json:"result,omitempty"`

	// Timestamp marks when the turn was appended.
	Timestamp time.Time `json:"timestamp"`
}

// UserTurn builds a user turn with the given text.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: text, Timestamp: time.Now().UTC()}
}

// AssistantTurn builds a final assistant turn with the given reply text.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: text, Timestamp: time.Now().UTC()}
}

// AssistantCallTurn builds an assistant turn requesting a tool invocation.
// content may be empty — models often emit tool calls without prose.
func AssistantCallTurn(content string, call ToolCall) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCall: &call, Timestamp: time.Now().UTC()}
}

// ToolResultTurn builds a tool-result turn from an invocation result.
func ToolResultTurn(result ToolInvocationResult) Turn {
	return Turn{
		Role:      RoleToolResult,
		Content:   result.ModelContent(),
		Result:    &result,
		Timestamp: time.Now().UTC(),
	}
}

// Message represents a single message in the LLM wire format. Turns are
// converted to Messages before each completion request.
type Message struct {
	// Role is one of "system", "user", "assistant", or "tool".
	Role string

	// Content is the text content of the message.
	Content string

	// ToolCalls contains any tool invocations requested by the assistant.
	ToolCalls []ToolCall

	// ToolCallID is set when Role is "tool", identifying which tool call this
	// message responds to.
	ToolCallID string
}

// ToolDefinition describes a tool offered to the LLM as part of its
// available-action catalog.
type ToolDefinition struct {
	// Name is the tool's unique identifier.
	Name string

	// Description explains what the tool does (included in LLM prompts).
	Description string

	// Parameters is the JSON Schema describing the tool's input parameters.
	Parameters map[string]any
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int

	// SupportsToolCalling indicates native function/tool calling support.
	SupportsToolCalling bool

	// SupportsStreaming indicates the model supports streaming completions.
	SupportsStreaming bool
}
