package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volition-run/volition/pkg/models"
)

func submitPlanCall(id, plan string) models.ToolCall {
	args, _ := json.Marshal(submitPlanArgs{Plan: plan})
	return models.ToolCall{ID: id, Name: "submit_plan", Arguments: args}
}

func submitEvaluationCall(id string, score float64, reasoning string) models.ToolCall {
	args, _ := json.Marshal(submitEvaluationArgs{Score: score, Reasoning: reasoning})
	return models.ToolCall{ID: id, Name: "submit_evaluation", Arguments: args}
}

// callPlanExecuteTool routes a tool call through the strategy's own
// extra tool server, the same way the orchestrator would, so the
// strategy's captured plan/evalScore fields update exactly as they would
// in a real run.
func callPlanExecuteTool(t *testing.T, s *PlanExecute, call models.ToolCall) {
	t.Helper()
	servers := s.ExtraToolServers()
	require.Len(t, servers, 1)
	result, err := servers[0].CallTool(context.Background(), call.ID, call.Name, call.Arguments)
	require.NoError(t, err)
	require.Equal(t, models.ToolResultSuccess, result.Status)
}

func TestPlanExecute_FullHappyPath(t *testing.T) {
	s := NewPlanExecute("ship the feature", "planner", "executor", "be rigorous")

	state := &models.SessionState{}
	step := s.Initialize(state)
	require.Equal(t, StepCallModel, step.Kind)
	assert.Equal(t, "planner", s.ProviderKey())

	planCall := submitPlanCall("call-1", "do X")
	step = s.OnModelResponse(state, &CompletionResponse{ToolCalls: []models.ToolCall{planCall}})
	require.Equal(t, StepExecuteTools, step.Kind)

	callPlanExecuteTool(t, s, planCall)
	step = s.OnToolResults(state, []models.ToolResult{{ToolCallID: "call-1", Status: models.ToolResultSuccess}})
	require.Equal(t, StepCallModel, step.Kind)

	evalCall := submitEvaluationCall("call-2", 0.9, "solid plan")
	step = s.OnModelResponse(state, &CompletionResponse{ToolCalls: []models.ToolCall{evalCall}})
	require.Equal(t, StepExecuteTools, step.Kind)

	callPlanExecuteTool(t, s, evalCall)
	step = s.OnToolResults(state, []models.ToolResult{{ToolCallID: "call-2", Status: models.ToolResultSuccess}})
	require.Equal(t, StepDelegate, step.Kind)
	assert.Equal(t, "complete_task", step.StrategyKind)
	assert.Equal(t, "executor", s.ProviderKey())

	step = s.OnDelegationResult(state, DelegationResult{FinalResult: "did X"})
	require.Equal(t, StepComplete, step.Kind)
	assert.Equal(t, "did X", step.FinalResult)
}

func TestPlanExecute_LowScoreTriggersRevision(t *testing.T) {
	s := NewPlanExecute("goal", "planner", "executor", "")
	state := &models.SessionState{}
	s.Initialize(state)

	planCall := submitPlanCall("call-1", "weak plan")
	s.OnModelResponse(state, &CompletionResponse{ToolCalls: []models.ToolCall{planCall}})
	callPlanExecuteTool(t, s, planCall)
	s.OnToolResults(state, nil)

	evalCall := submitEvaluationCall("call-2", 0.3, "too vague")
	s.OnModelResponse(state, &CompletionResponse{ToolCalls: []models.ToolCall{evalCall}})
	step := s.OnToolResults(state, nil)

	require.Equal(t, StepCallModel, step.Kind)
	assert.Equal(t, phaseRevising, s.phase)

	revisedPlan := submitPlanCall("call-3", "stronger plan")
	step = s.OnModelResponse(state, &CompletionResponse{ToolCalls: []models.ToolCall{revisedPlan}})
	require.Equal(t, StepExecuteTools, step.Kind)
	callPlanExecuteTool(t, s, revisedPlan)
	step = s.OnToolResults(state, nil)
	assert.Equal(t, StepCallModel, step.Kind)
	assert.Equal(t, phaseAwaitingEvaluation, s.phase)
}

func TestPlanExecute_OnDelegationResultOutsideExecutingFails(t *testing.T) {
	s := NewPlanExecute("goal", "planner", "executor", "")
	step := s.OnDelegationResult(&models.SessionState{}, DelegationResult{})
	assert.Equal(t, StepFail, step.Kind)
}
