package agent

import (
	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/pkg/models"
)

// CompleteTask is the simplest built-in strategy: call the model, execute
// any tools it requests, repeat until it replies with no tool calls (§4.4).
type CompleteTask struct {
	SystemPrompt string
	Goal         string
	Provider     string
}

func NewCompleteTask(systemPrompt, goal, provider string) *CompleteTask {
	return &CompleteTask{SystemPrompt: systemPrompt, Goal: goal, Provider: provider}
}

func (s *CompleteTask) Name() string                    { return "complete_task" }
func (s *CompleteTask) ProviderKey() string              { return s.Provider }
func (s *CompleteTask) ExtraToolServers() []*mcp.Client { return nil }

func (s *CompleteTask) Initialize(state *models.SessionState) NextStep {
	messages := make([]models.ChatMessage, 0, 2)
	if s.SystemPrompt != "" {
		messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: s.SystemPrompt})
	}
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: s.Goal})
	return CallModel(messages)
}

func (s *CompleteTask) OnModelResponse(state *models.SessionState, response *CompletionResponse) NextStep {
	if len(response.ToolCalls) > 0 {
		return ExecuteTools(response.ToolCalls)
	}
	return Complete(state.Messages, response.Content)
}

// OnToolResults appends nothing new — the orchestrator already appended the
// tool-role messages before invoking this callback — and simply continues
// the conversation with the current history.
func (s *CompleteTask) OnToolResults(state *models.SessionState, results []models.ToolResult) NextStep {
	return CallModel(state.Messages)
}

// OnDelegationResult is unreachable: CompleteTask never issues a Delegate
// step, so the orchestrator never calls this back. A violation here is a
// StrategyError, not a silently-ignored no-op.
func (s *CompleteTask) OnDelegationResult(state *models.SessionState, result DelegationResult) NextStep {
	return Fail(&StrategyError{Strategy: s.Name(), Message: "on_delegation_result is unreachable for CompleteTask"})
}
