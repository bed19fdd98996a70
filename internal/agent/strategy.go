package agent

import (
	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/pkg/models"
)

// StepKind tags a NextStep's variant.
type StepKind string

const (
	StepCallModel    StepKind = "call_model"
	StepExecuteTools StepKind = "execute_tools"
	StepDelegate     StepKind = "delegate"
	StepComplete     StepKind = "complete"
	StepFail         StepKind = "fail"
)

// DelegationInput carries what a Delegate step hands to the nested
// orchestrator: the message history the sub-strategy should start from and
// an optional goal string (§3 [NEW]).
type DelegationInput struct {
	InitialMessages []models.ChatMessage
	Goal            string
	Provider        string
}

// DelegationResult carries what a completed nested loop hands back to
// on_delegation_result (§3 [NEW]).
type DelegationResult struct {
	FinalMessages []models.ChatMessage
	FinalResult   string
}

// NextStep is the tagged result of a Strategy callback. Exactly one of the
// per-kind fields is meaningful, selected by Kind; the constructor
// functions below are the only supported way to build one, so a NextStep
// is never left in a kind/payload-mismatched state.
type NextStep struct {
	Kind StepKind

	Messages     []models.ChatMessage // CallModel
	Calls        []models.ToolCall    // ExecuteTools
	StrategyKind string                // Delegate
	Delegation   DelegationInput       // Delegate
	FinalResult  string                // Complete
	Err          error                 // Fail
}

func CallModel(messages []models.ChatMessage) NextStep {
	return NextStep{Kind: StepCallModel, Messages: messages}
}

func ExecuteTools(calls []models.ToolCall) NextStep {
	return NextStep{Kind: StepExecuteTools, Calls: calls}
}

func Delegate(strategyKind string, input DelegationInput) NextStep {
	return NextStep{Kind: StepDelegate, StrategyKind: strategyKind, Delegation: input}
}

func Complete(finalMessages []models.ChatMessage, finalResult string) NextStep {
	return NextStep{Kind: StepComplete, Messages: finalMessages, FinalResult: finalResult}
}

func Fail(err error) NextStep {
	return NextStep{Kind: StepFail, Err: err}
}

// Strategy decides the agent's next action from the evolving session state.
// The orchestrator owns the strategy and drives it through message-passing
// NextStep values — a strategy never calls back into the orchestrator (§9
// Design Notes: no cyclic strategy/orchestrator references).
type Strategy interface {
	// Name identifies the strategy for logging, metrics, and Delegate's
	// strategy_kind lookup.
	Name() string

	// Initialize is called once at the start of a run and returns the
	// first action.
	Initialize(state *models.SessionState) NextStep

	// OnModelResponse is called after each CallModel step's reply has been
	// appended to history.
	OnModelResponse(state *models.SessionState, response *CompletionResponse) NextStep

	// OnToolResults is called after an ExecuteTools step's results have
	// been appended to history in call order.
	OnToolResults(state *models.SessionState, results []models.ToolResult) NextStep

	// OnDelegationResult is called after a nested sub-strategy loop
	// reaches Complete.
	OnDelegationResult(state *models.SessionState, result DelegationResult) NextStep

	// ProviderKey returns the provider this strategy wants used for its
	// CallModel steps, or "" to use the orchestrator's default (P7).
	ProviderKey() string

	// ExtraToolServers returns tool-server connections the strategy needs
	// merged into the orchestrator's registry before its first CallModel
	// step — e.g. PlanExecute's in-process submit_plan/submit_evaluation
	// server. Most strategies return nil.
	ExtraToolServers() []*mcp.Client
}
