package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pcurran/diarist/internal/observe"
	"github.com/pcurran/diarist/pkg/provider/llm"
	"github.com/pcurran/diarist/pkg/types"
)

// CycleState is the orchestration state machine's state for one cycle.
type CycleState string

const (
	// StateAwaitingModel means the loop is waiting for a model completion.
	StateAwaitingModel CycleState = "AWAITING_MODEL"

	// StateExecutingTool means a tool invocation is in flight.
	StateExecutingTool CycleState = "EXECUTING_TOOL"

	// StateDone means the cycle ended with a final assistant reply.
	StateDone CycleState = "DONE"

	// StateAborted means the cycle budget ran out or the model became
	// unavailable; a degraded reply was synthesized.
	StateAborted CycleState = "ABORTED"
)

const (
	// defaultCycleBudget bounds the number of tool invocations per user
	// message. It limits worst-case cost and latency, not wall-clock time;
	// the per-call timeouts do that.
	defaultCycleBudget = 5

	// defaultModelTimeout bounds one completion request.
	defaultModelTimeout = 30 * time.Second
)

// Degraded replies for the two abort paths. The user never sees raw
// provider errors.
const (
	abortedReply = "I wasn't able to complete your request after several attempts. " +
		"Please check your calendar and try again, perhaps with a simpler request."

	modelUnavailableReply = "I'm having trouble reaching my language model right now. " +
		"Please try again in a moment."
)

// CycleResult is the outcome of one orchestration cycle.
type CycleResult struct {
	// State is the terminal state, StateDone or StateAborted.
	State CycleState

	// FinalTurn is the assistant turn that ended the cycle. On the aborted
	// path it carries the synthesized degraded reply.
	FinalTurn types.Turn

	// Results are the tool invocation results of the cycle, in execution
	// order, successes and failures alike.
	Results []types.ToolInvocationResult

	// NewTurns are all turns appended during the cycle, in order, for the
	// caller to persist.
	NewTurns []types.Turn
}

// Loop drives the decision cycle for one user message: consult the model,
// interpret its output as either a final reply or a tool invocation, execute
// the tool, feed the result back, repeat up to the cycle budget.
//
// A Loop holds no per-conversation state and is safe for concurrent use; the
// [Manager] guarantees each [ConversationState] is driven by one cycle at a
// time.
type Loop struct {
	provider llm.Provider
	registry *Registry
	executor *Executor

	budget       int
	modelTimeout time.Duration
	temperature  float64
	maxTokens    int
	providerName string

	logger  *slog.Logger
	metrics *observe.Metrics
	clock   func() time.Time
}

// LoopOption configures a [Loop] during construction.
type LoopOption func(*Loop)

// WithCycleBudget sets the maximum number of tool invocations per cycle.
// The default is 5.
func WithCycleBudget(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.budget = n
		}
	}
}

// WithModelTimeout sets the wall-clock timeout for one completion request.
// The default is 30 seconds.
func WithModelTimeout(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.modelTimeout = d
		}
	}
}

// WithSampling sets the completion temperature and max output tokens.
func WithSampling(temperature float64, maxTokens int) LoopOption {
	return func(l *Loop) {
		l.temperature = temperature
		l.maxTokens = maxTokens
	}
}

// WithMetrics attaches metric instruments to the loop.
func WithMetrics(m *observe.Metrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithProviderName sets the provider label recorded on model metrics.
func WithProviderName(name string) LoopOption {
	return func(l *Loop) {
		if name != "" {
			l.providerName = name
		}
	}
}

// WithClock overrides the clock used for the system prompt. Tests use this
// to pin "now".
func WithClock(clock func() time.Time) LoopOption {
	return func(l *Loop) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLoop creates a Loop over the given collaborators.
func NewLoop(provider llm.Provider, registry *Registry, executor *Executor, logger *slog.Logger, opts ...LoopOption) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		provider:     provider,
		registry:     registry,
		executor:     executor,
		budget:       defaultCycleBudget,
		modelTimeout: defaultModelTimeout,
		temperature:  0.2,
		providerName: "llm",
		logger:       logger,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunCycle runs the state machine to completion for the latest user turn in
// state. It appends every assistant and tool-result turn it produces.
//
// RunCycle returns an error only for a turn-sequence invariant violation,
// which is a defect; all external failures (model, calendar) are converted
// into turns or the degraded reply.
func (l *Loop) RunCycle(ctx context.Context, state *ConversationState) (CycleResult, error) {
	var result CycleResult

	appendTurn := func(t types.Turn) error {
		if err := state.Append(t); err != nil {
			return err
		}
		result.NewTurns = append(result.NewTurns, t)
		return nil
	}

	finish := func(cs CycleState, final types.Turn) (CycleResult, error) {
		if err := appendTurn(final); err != nil {
			return CycleResult{}, err
		}
		result.State = cs
		result.FinalTurn = final
		l.recordCycle(ctx, cs, len(result.Results))
		return result, nil
	}

	budget := l.budget
	for {
		// AWAITING_MODEL
		resp, err := l.complete(ctx, state.Snapshot())
		if err != nil {
			l.logger.Error("model completion failed", "conversation_id", state.ID(), "error", err)
			return finish(StateAborted, types.AssistantTurn(modelUnavailableReply))
		}

		call, ok := l.firstToolCall(state.ID(), resp)
		if !ok {
			// AWAITING_MODEL → DONE
			return finish(StateDone, types.AssistantTurn(resp.Content))
		}

		if err := appendTurn(types.AssistantCallTurn(resp.Content, call)); err != nil {
			return CycleResult{}, err
		}

		var toolResult types.ToolInvocationResult
		if !l.registry.Has(call.Name) {
			// Fail closed and give the model a chance to recover.
			l.logger.Warn("model requested unknown tool", "conversation_id", state.ID(), "tool", call.Name)
			toolResult = types.FailureResult(call.Name, call.ID, types.ErrKindUnknownTool,
				fmt.Sprintf("no tool named %q; available tools are listed in the catalog", call.Name))
		} else {
			// AWAITING_MODEL → EXECUTING_TOOL
			toolResult = l.executeTool(ctx, state.ID(), call)
		}

		// EXECUTING_TOOL → AWAITING_MODEL
		if err := appendTurn(types.ToolResultTurn(toolResult)); err != nil {
			return CycleResult{}, err
		}
		result.Results = append(result.Results, toolResult)

		budget--
		if budget <= 0 {
			l.logger.Warn("cycle budget exhausted", "conversation_id", state.ID(), "budget", l.budget)
			return finish(StateAborted, types.AssistantTurn(abortedReply))
		}
	}
}

// complete sends the turn history and tool catalog to the model with the
// per-call timeout applied.
func (l *Loop) complete(ctx context.Context, turns []types.Turn) (*llm.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, l.modelTimeout)
	defer cancel()

	start := time.Now()
	resp, err := l.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     turnsToMessages(turns),
		Tools:        l.registry.Catalog(),
		Temperature:  l.temperature,
		MaxTokens:    l.maxTokens,
		SystemPrompt: SystemPrompt(l.clock()),
	})
	if l.metrics != nil {
		l.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
			l.metrics.RecordProviderError(ctx, l.providerName)
		}
		l.metrics.RecordProviderRequest(ctx, l.providerName, status)
	}
	return resp, err
}

// firstToolCall applies the multi-call policy: only the first requested call
// is honored, the rest are dropped without a turn.
func (l *Loop) firstToolCall(conversationID string, resp *llm.CompletionResponse) (types.ToolCall, bool) {
	if len(resp.ToolCalls) == 0 {
		return types.ToolCall{}, false
	}
	if dropped := len(resp.ToolCalls) - 1; dropped > 0 {
		l.logger.Warn("model requested multiple tool calls, honoring first",
			"conversation_id", conversationID,
			"honored", resp.ToolCalls[0].Name,
			"dropped", dropped,
		)
	}
	return resp.ToolCalls[0], true
}

func (l *Loop) executeTool(ctx context.Context, conversationID string, call types.ToolCall) types.ToolInvocationResult {
	start := time.Now()
	toolResult := l.executor.Execute(ctx, conversationID, call)
	if l.metrics != nil {
		l.metrics.ToolExecutionDuration.Record(ctx, time.Since(start).Seconds())
		l.metrics.RecordToolCall(ctx, call.Name, string(toolResult.Status))
	}
	return toolResult
}

func (l *Loop) recordCycle(ctx context.Context, state CycleState, toolCount int) {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordCycle(ctx, string(state), toolCount)
}

// turnsToMessages converts the turn history into the LLM wire format.
func turnsToMessages(turns []types.Turn) []types.Message {
	msgs := make([]types.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case types.RoleUser:
			msgs = append(msgs, types.Message{Role: "user", Content: t.Content})
		case types.RoleAssistant:
			m := types.Message{Role: "assistant", Content: t.Content}
			if t.ToolCall != nil {
				m.ToolCalls = []types.ToolCall{*t.ToolCall}
			}
			msgs = append(msgs, m)
		case types.RoleToolResult:
			m := types.Message{Role: "tool", Content: t.Content}
			if t.Result != nil {
				m.ToolCallID = t.Result.CallID
			}
			msgs = append(msgs, m)
		}
	}
	return msgs
}
