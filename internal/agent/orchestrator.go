package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/internal/observability"
	"github.com/volition-run/volition/internal/schema"
	"github.com/volition-run/volition/pkg/models"
)

// ProviderSet resolves a strategy's ProviderKey into a callable ChatModel,
// falling back to a configured default when the strategy names none.
type ProviderSet struct {
	Default ChatModel
	ByKey   map[string]ChatModel
}

func (p *ProviderSet) resolve(key string) (ChatModel, error) {
	if key != "" {
		if m, ok := p.ByKey[key]; ok {
			return m, nil
		}
		return nil, fmt.Errorf("provider %q: %w", key, ErrNoProvider)
	}
	if p.Default != nil {
		return p.Default, nil
	}
	return nil, ErrNoProvider
}

// Orchestrator runs a single Strategy's NextStep state machine to
// completion (§4.5). One Orchestrator corresponds to one session's worth of
// sequential execution; Delegate steps spawn a nested Orchestrator sharing
// the same tool registry, providers, and options but counting against a
// bounded delegation depth.
type Orchestrator struct {
	providers *ProviderSet
	tools     *mcp.Registry
	opts      OrchestratorOptions
	depth     int
}

func NewOrchestrator(providers *ProviderSet, tools *mcp.Registry, opts OrchestratorOptions) *Orchestrator {
	merged := mergeOrchestratorOptions(DefaultOrchestratorOptions(), opts)
	if merged.ToolExecutor == nil {
		merged.ToolExecutor = NewExecutor(tools, DefaultExecutorConfig())
	}
	return &Orchestrator{providers: providers, tools: tools, opts: merged}
}

func (o *Orchestrator) nested() *Orchestrator {
	return &Orchestrator{providers: o.providers, tools: o.tools, opts: o.opts, depth: o.depth + 1}
}

// Outcome is the terminal result of a Run: either a completed result or a
// terminal error, never both.
type Outcome struct {
	FinalMessages []models.ChatMessage
	FinalResult   string
	Err           error
}

// Run drives strategy from its initial NextStep through CallModel,
// ExecuteTools, and Delegate dispatch until it yields Complete or Fail, or
// the iteration cap is reached (P4). ctx cancellation is observed at every
// suspension point; no partial message is appended once ctx is done (§5).
func (o *Orchestrator) Run(ctx context.Context, strategy Strategy, state *models.SessionState) (result Outcome) {
	if o.opts.Metrics != nil {
		start := time.Now()
		o.opts.Metrics.SessionStarted(strategy.Name())
		defer func() {
			o.opts.Metrics.SessionEnded(strategy.Name(), time.Since(start).Seconds())
			if result.Err != nil {
				o.opts.Metrics.RecordError(strategy.Name(), errorKind(result.Err))
			}
		}()
	}

	if err := o.registerExtraToolServers(ctx, strategy); err != nil {
		return Outcome{Err: err}
	}

	next := strategy.Initialize(state)
	for iteration := 0; ; iteration++ {
		if ctx.Err() != nil {
			return Outcome{Err: &SessionError{SessionID: state.ID, Kind: SessionCancelled, Cause: ctx.Err()}}
		}
		if iteration > o.opts.MaxIterations {
			return Outcome{Err: &SessionError{SessionID: state.ID, Kind: SessionIterationCapReached, Cause: ErrMaxIterations}}
		}

		switch next.Kind {
		case StepCallModel:
			resp, err := o.callModel(ctx, strategy, state, next.Messages)
			if err != nil {
				return Outcome{Err: err}
			}
			next = strategy.OnModelResponse(state, resp)

		case StepExecuteTools:
			results, err := o.executeTools(ctx, state, next.Calls)
			if err != nil {
				return Outcome{Err: err}
			}
			next = strategy.OnToolResults(state, results)

		case StepDelegate:
			result, err := o.delegate(ctx, next.StrategyKind, next.Delegation)
			if err != nil {
				return Outcome{Err: err}
			}
			next = strategy.OnDelegationResult(state, result)

		case StepComplete:
			state.Terminal = true
			return Outcome{FinalMessages: next.Messages, FinalResult: next.FinalResult}

		case StepFail:
			return Outcome{Err: next.Err}

		default:
			return Outcome{Err: &StrategyError{Strategy: strategy.Name(), Message: fmt.Sprintf("unknown NextStep kind %q", next.Kind)}}
		}
	}
}

// errorKind reduces a Run failure to a short label for the error-rate
// metric, falling back to the concrete Go type name for anything this
// package didn't itself classify.
func errorKind(err error) string {
	switch e := err.(type) {
	case *SessionError:
		return "session_" + string(e.Kind)
	case *ToolServerError:
		return "tool_server_" + string(e.Kind)
	case *ToolCallError:
		return "tool_call_" + string(e.Kind)
	case *StrategyError:
		return "strategy_error"
	case *ProviderError:
		return "provider_" + string(e.Kind)
	default:
		return fmt.Sprintf("%T", err)
	}
}

// registerExtraToolServers merges a strategy's synthetic tool servers (e.g.
// PlanExecute's submit_plan/submit_evaluation) into the shared registry so
// ExecuteTools routes to them exactly like any subprocess tool.
func (o *Orchestrator) registerExtraToolServers(ctx context.Context, strategy Strategy) error {
	for _, client := range strategy.ExtraToolServers() {
		if err := o.tools.Adopt(client); err != nil {
			return &ToolServerError{ServerID: client.Config().ID, Kind: ToolServerProtocolError, Cause: err}
		}
	}
	return nil
}

func (o *Orchestrator) callModel(ctx context.Context, strategy Strategy, state *models.SessionState, messages []models.ChatMessage) (*CompletionResponse, error) {
	model, err := o.providers.resolve(strategy.ProviderKey())
	if err != nil {
		return nil, err
	}

	tools, err := o.toolCatalog()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()

	start := time.Now()
	if o.opts.Tracer != nil {
		tctx, span := o.opts.Tracer.Start(callCtx, "volition.provider.complete", observability.SpanOptions{
			Kind:       trace.SpanKindClient,
			Attributes: []attribute.KeyValue{attribute.String("llm.provider", model.Name()), attribute.String("llm.model", model.Name())},
		})
		callCtx = tctx
		defer span.End()
	}

	resp, err := model.Complete(callCtx, &CompletionRequest{Messages: messages, Tools: tools})
	duration := time.Since(start).Seconds()
	if o.opts.Metrics != nil {
		status := "success"
		var promptTokens, completionTokens int
		if err != nil {
			status = "error"
		} else {
			if resp.Usage.PromptTokens != nil {
				promptTokens = *resp.Usage.PromptTokens
			}
			if resp.Usage.CompletionTokens != nil {
				completionTokens = *resp.Usage.CompletionTokens
			}
		}
		o.opts.Metrics.RecordLLMRequest(model.Name(), model.Name(), status, duration, promptTokens, completionTokens)
	}
	if err != nil {
		return nil, err
	}

	// messages is the strategy's intended next turn, already built on top
	// of state.Messages in every built-in strategy (Initialize starts from
	// an empty session, OnModelResponse/OnToolResults extend state.Messages
	// by append). Only the portion beyond what's already recorded is new.
	if len(messages) > len(state.Messages) {
		state.Messages = append(state.Messages, messages[len(state.Messages):]...)
	}

	state.Messages = append(state.Messages, models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
	state.PendingToolCalls = resp.ToolCalls
	state.UpdatedAt = time.Now()
	return resp, nil
}

// toolCatalog gathers the union of every connected tool-server's declared
// tools, translated into the vendor-agnostic form (§4.3).
func (o *Orchestrator) toolCatalog() ([]models.ToolDefinition, error) {
	raw := o.tools.ToolDefinitions()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]models.ToolDefinition, 0, len(names))
	for _, name := range names {
		tool := raw[name]
		def, err := schema.ToToolDefinition(schema.RawInputSchema{Name: tool.Name, Description: tool.Description, InputSchema: tool.InputSchema})
		if err != nil {
			return nil, &ToolServerError{ServerID: name, Kind: ToolServerProtocolError, Cause: err}
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// executeTools enforces P5 (the calls must match pending tool calls
// exactly) before running anything, then dispatches through the bounded
// executor and appends tool-role messages in call order regardless of
// completion order.
func (o *Orchestrator) executeTools(ctx context.Context, state *models.SessionState, calls []models.ToolCall) ([]models.ToolResult, error) {
	if !sameToolCalls(calls, state.PendingToolCalls) {
		return nil, &StrategyError{Strategy: "", Message: "ExecuteTools calls do not match pending tool calls"}
	}

	results := o.opts.ToolExecutor.ExecuteAll(ctx, calls)
	if ctx.Err() != nil {
		return nil, &SessionError{SessionID: state.ID, Kind: SessionCancelled, Cause: ctx.Err()}
	}

	toolResults := ResultsToToolMessages(results)
	for i, r := range results {
		if o.opts.Metrics != nil {
			status := "success"
			if r.Err != nil || r.Result.Status == models.ToolResultFailure {
				status = "error"
			}
			o.opts.Metrics.RecordToolExecution(calls[i].Name, status, r.Duration.Seconds())
		}
		state.Messages = append(state.Messages, models.ChatMessage{
			Role:       models.RoleTool,
			Content:    toolResults[i].Payload,
			ToolCallID: toolResults[i].ToolCallID,
		})
	}
	state.PendingToolCalls = nil
	state.UpdatedAt = time.Now()
	return toolResults, nil
}

func sameToolCalls(a, b []models.ToolCall) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

// delegate constructs the named sub-strategy, runs a nested Orchestrator to
// completion, and returns the DelegationResult the parent strategy's
// OnDelegationResult expects.
func (o *Orchestrator) delegate(ctx context.Context, strategyKind string, input DelegationInput) (DelegationResult, error) {
	if o.depth >= o.opts.MaxDelegationDepth {
		return DelegationResult{}, &StrategyError{Strategy: strategyKind, Message: fmt.Sprintf("maximum delegation depth (%d) exceeded", o.opts.MaxDelegationDepth)}
	}

	sub, err := buildStrategy(strategyKind, input)
	if err != nil {
		return DelegationResult{}, err
	}

	subState := &models.SessionState{
		ID:       fmt.Sprintf("%s/delegate", strategyKind),
		Messages: input.InitialMessages,
	}

	outcome := o.nested().Run(ctx, sub, subState)
	if outcome.Err != nil {
		return DelegationResult{}, outcome.Err
	}
	return DelegationResult{FinalMessages: outcome.FinalMessages, FinalResult: outcome.FinalResult}, nil
}

// buildStrategy constructs the built-in strategy named by kind. Strategy
// kinds are a small closed set (§4.4); an unrecognized kind is a
// configuration error surfaced as a StrategyError rather than a panic.
func buildStrategy(kind string, input DelegationInput) (Strategy, error) {
	switch kind {
	case "complete_task":
		goal := input.Goal
		if goal == "" && len(input.InitialMessages) > 0 {
			goal = input.InitialMessages[len(input.InitialMessages)-1].Content
		}
		return NewCompleteTask("", goal, input.Provider), nil
	default:
		return nil, &StrategyError{Strategy: kind, Message: "unknown delegation strategy kind"}
	}
}
