package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/pkg/models"
)

// scriptedModel replays a fixed sequence of CompletionResponses, one per
// Complete call, so orchestrator tests don't need a real provider.
type scriptedModel struct {
	name      string
	responses []*CompletionResponse
	calls     int
}

func (m *scriptedModel) Name() string         { return m.name }
func (m *scriptedModel) SupportsTools() bool  { return true }
func (m *scriptedModel) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if m.calls >= len(m.responses) {
		return nil, assertionError("scriptedModel: ran out of scripted responses")
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

type assertionError string

func (e assertionError) Error() string { return string(e) }

func newEchoToolRegistry(t *testing.T, toolName string) *mcp.Registry {
	t.Helper()
	reg := mcp.NewRegistry(nil)
	handler := func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
		switch method {
		case "initialize":
			return json.Marshal(mcp.InitializeResult{ProtocolVersion: "2024-11-05", ServerInfo: mcp.ServerInfo{Name: "echo"}})
		case "notifications/initialized":
			return nil, nil
		case "tools/list":
			return json.Marshal(mcp.ListToolsResult{Tools: []*mcp.MCPTool{
				{Name: toolName, Description: "echoes input", InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`)},
			}})
		case "tools/call":
			var call mcp.CallToolParams
			require.NoError(t, json.Unmarshal(params, &call))
			return json.Marshal(mcp.ToolCallResult{Content: []mcp.ToolResultContent{{Type: "text", Text: "echoed"}}})
		default:
			return nil, assertionError("unsupported method " + method)
		}
	}
	client := mcp.NewClientWithTransport(&mcp.ServerConfig{ID: "echo"}, mcp.NewInMemoryTransport(handler), nil)
	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, reg.Adopt(client))
	return reg
}

func TestOrchestrator_CompleteTaskNoToolsCompletesImmediately(t *testing.T) {
	reg := mcp.NewRegistry(nil)
	model := &scriptedModel{name: "primary", responses: []*CompletionResponse{{Content: "done"}}}
	orch := NewOrchestrator(&ProviderSet{Default: model}, reg, OrchestratorOptions{})

	strategy := NewCompleteTask("", "say hi", "")
	outcome := orch.Run(context.Background(), strategy, &models.SessionState{ID: "s1"})

	require.NoError(t, outcome.Err)
	assert.Equal(t, "done", outcome.FinalResult)
}

func TestOrchestrator_CompleteTaskExecutesToolsThenCompletes(t *testing.T) {
	reg := newEchoToolRegistry(t, "search")
	model := &scriptedModel{
		name: "primary",
		responses: []*CompletionResponse{
			{ToolCalls: []models.ToolCall{{ID: "call-1", Name: "search", Arguments: json.RawMessage(`{"text":"hi"}`)}}},
			{Content: "found it"},
		},
	}
	orch := NewOrchestrator(&ProviderSet{Default: model}, reg, OrchestratorOptions{})

	strategy := NewCompleteTask("", "search for hi", "")
	state := &models.SessionState{ID: "s2"}
	outcome := orch.Run(context.Background(), strategy, state)

	require.NoError(t, outcome.Err)
	assert.Equal(t, "found it", outcome.FinalResult)
	assert.Empty(t, state.PendingToolCalls)

	var sawTool bool
	for _, m := range state.Messages {
		if m.Role == models.RoleTool && m.ToolCallID == "call-1" {
			sawTool = true
		}
	}
	assert.True(t, sawTool)
}

func TestOrchestrator_IterationCapReached(t *testing.T) {
	reg := mcp.NewRegistry(nil)
	responses := make([]*CompletionResponse, 0, 25)
	for i := 0; i < 25; i++ {
		responses = append(responses, &CompletionResponse{Content: ""})
	}
	model := &scriptedModel{name: "loops-forever", responses: responses}

	strategy := &loopingStrategy{}
	orch := NewOrchestrator(&ProviderSet{Default: model}, reg, OrchestratorOptions{MaxIterations: 3})
	outcome := orch.Run(context.Background(), strategy, &models.SessionState{ID: "s3"})

	require.Error(t, outcome.Err)
	var sessErr *SessionError
	require.ErrorAs(t, outcome.Err, &sessErr)
	assert.Equal(t, SessionIterationCapReached, sessErr.Kind)
}

// loopingStrategy never completes: every OnModelResponse asks for another
// CallModel, for exercising the iteration cap.
type loopingStrategy struct{}

func (loopingStrategy) Name() string { return "looping" }
func (loopingStrategy) Initialize(state *models.SessionState) NextStep {
	return CallModel(nil)
}
func (loopingStrategy) OnModelResponse(state *models.SessionState, response *CompletionResponse) NextStep {
	return CallModel(state.Messages)
}
func (loopingStrategy) OnToolResults(state *models.SessionState, results []models.ToolResult) NextStep {
	return CallModel(state.Messages)
}
func (loopingStrategy) OnDelegationResult(state *models.SessionState, result DelegationResult) NextStep {
	return CallModel(state.Messages)
}
func (loopingStrategy) ProviderKey() string              { return "" }
func (loopingStrategy) ExtraToolServers() []*mcp.Client { return nil }

func TestOrchestrator_ExecuteToolsMismatchIsStrategyError(t *testing.T) {
	reg := newEchoToolRegistry(t, "search")
	model := &scriptedModel{name: "primary", responses: []*CompletionResponse{{Content: "unused"}}}
	orch := NewOrchestrator(&ProviderSet{Default: model}, reg, OrchestratorOptions{})

	strategy := &mismatchStrategy{}
	outcome := orch.Run(context.Background(), strategy, &models.SessionState{ID: "s4"})

	require.Error(t, outcome.Err)
	var strategyErr *StrategyError
	assert.ErrorAs(t, outcome.Err, &strategyErr)
}

// mismatchStrategy requests ExecuteTools with calls that were never set as
// PendingToolCalls, to exercise P5.
type mismatchStrategy struct{}

func (mismatchStrategy) Name() string { return "mismatch" }
func (mismatchStrategy) Initialize(state *models.SessionState) NextStep {
	return ExecuteTools([]models.ToolCall{{ID: "ghost", Name: "search"}})
}
func (mismatchStrategy) OnModelResponse(state *models.SessionState, response *CompletionResponse) NextStep {
	return Fail(assertionError("unreachable"))
}
func (mismatchStrategy) OnToolResults(state *models.SessionState, results []models.ToolResult) NextStep {
	return Fail(assertionError("unreachable"))
}
func (mismatchStrategy) OnDelegationResult(state *models.SessionState, result DelegationResult) NextStep {
	return Fail(assertionError("unreachable"))
}
func (mismatchStrategy) ProviderKey() string              { return "" }
func (mismatchStrategy) ExtraToolServers() []*mcp.Client { return nil }

func TestOrchestrator_PlanExecuteDelegatesToExecutionProvider(t *testing.T) {
	reg := mcp.NewRegistry(nil)
	planningModel := &scriptedModel{
		name: "planner",
		responses: []*CompletionResponse{
			{ToolCalls: []models.ToolCall{submitPlanCall("p1", "do X")}},
			{ToolCalls: []models.ToolCall{submitEvaluationCall("p2", 0.9, "solid")}},
		},
	}
	executionModel := &scriptedModel{name: "executor", responses: []*CompletionResponse{{Content: "did X"}}}

	orch := NewOrchestrator(&ProviderSet{ByKey: map[string]ChatModel{"planner": planningModel, "executor": executionModel}}, reg, OrchestratorOptions{})

	strategy := NewPlanExecute("ship it", "planner", "executor", "")
	outcome := orch.Run(context.Background(), strategy, &models.SessionState{ID: "s5"})

	require.NoError(t, outcome.Err)
	assert.Equal(t, "did X", outcome.FinalResult)
	assert.Equal(t, 2, planningModel.calls)
	assert.Equal(t, 1, executionModel.calls)
}
