package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/volition-run/volition/internal/mcp"
)

// planExecuteToolServer backs PlanExecute's submit_plan/submit_evaluation
// tools with an in-process tool-server connection (mcp.InMemoryTransport),
// rather than a real subprocess — there is nothing to spawn for tools that
// only ever carry a strategy's own structured decision back to it. This is
// the resolution the Transport interface's doc comment promises: the
// orchestrator routes to these exactly like any subprocess-backed tool.
type planExecuteToolServer struct {
	onSubmitPlan       func(plan string)
	onSubmitEvaluation func(score float64, reasoning string)
}

type submitPlanArgs struct {
	Plan string `json:"plan"`
}

type submitEvaluationArgs struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

func (s *planExecuteToolServer) handle(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	switch method {
	case "initialize":
		return json.Marshal(mcp.InitializeResult{
			ProtocolVersion: "2024-11-05",
			ServerInfo:      mcp.ServerInfo{Name: "plan_execute", Version: "0.1.0"},
		})
	case "notifications/initialized":
		return nil, nil
	case "tools/list":
		return json.Marshal(mcp.ListToolsResult{Tools: []*mcp.MCPTool{
			{
				Name:        "submit_plan",
				Description: "Submit a plan for the goal before execution begins.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"plan":{"type":"string","description":"the proposed plan"}},"required":["plan"]}`),
			},
			{
				Name:        "submit_evaluation",
				Description: "Submit a score in [0,1] and reasoning for the current plan.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"score":{"type":"number","description":"quality score between 0 and 1"},"reasoning":{"type":"string"}},"required":["score","reasoning"]}`),
			},
		}})
	case "tools/call":
		var call mcp.CallToolParams
		if err := json.Unmarshal(params, &call); err != nil {
			return nil, fmt.Errorf("decode tools/call params: %w", err)
		}
		switch call.Name {
		case "submit_plan":
			var args submitPlanArgs
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return nil, fmt.Errorf("decode submit_plan arguments: %w", err)
			}
			s.onSubmitPlan(args.Plan)
			return json.Marshal(mcp.ToolCallResult{Content: []mcp.ToolResultContent{{Type: "text", Text: "plan recorded"}}})
		case "submit_evaluation":
			var args submitEvaluationArgs
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return nil, fmt.Errorf("decode submit_evaluation arguments: %w", err)
			}
			s.onSubmitEvaluation(args.Score, args.Reasoning)
			return json.Marshal(mcp.ToolCallResult{Content: []mcp.ToolResultContent{{Type: "text", Text: "evaluation recorded"}}})
		default:
			return json.Marshal(mcp.ToolCallResult{
				Content: []mcp.ToolResultContent{{Type: "text", Text: fmt.Sprintf("unknown tool %q", call.Name)}},
				IsError: true,
			})
		}
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
}

// newPlanExecuteClient connects an in-memory tool-server exposing
// submit_plan/submit_evaluation and returns the ready *mcp.Client for the
// caller to merge into the session's tool-server registry.
func newPlanExecuteClient(onSubmitPlan func(string), onSubmitEvaluation func(float64, string)) (*mcp.Client, error) {
	srv := &planExecuteToolServer{onSubmitPlan: onSubmitPlan, onSubmitEvaluation: onSubmitEvaluation}
	client := mcp.NewClientWithTransport(
		&mcp.ServerConfig{ID: "plan_execute"},
		mcp.NewInMemoryTransport(srv.handle),
		slog.Default(),
	)
	if err := client.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("connect plan_execute tool server: %w", err)
	}
	return client, nil
}
