package agent

import (
	"fmt"

	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/pkg/models"
)

// planExecutePhase is PlanExecute's internal state machine (§4.4).
type planExecutePhase string

const (
	phaseNeedsPlan              planExecutePhase = "needs_plan"
	phaseAwaitingPlanSubmission planExecutePhase = "awaiting_plan_submission"
	phaseAwaitingEvaluation     planExecutePhase = "awaiting_evaluation"
	phaseExecuting              planExecutePhase = "executing"
	phaseRevising               planExecutePhase = "revising"
	phaseDone                   planExecutePhase = "done"
)

// DefaultPlanExecuteThreshold is the minimum submit_evaluation score that
// moves PlanExecute from AwaitingEvaluation to Executing (§4.4).
const DefaultPlanExecuteThreshold = 0.7

// PlanExecute asks a planning model to propose a plan, evaluates it, and on
// a passing score delegates execution of the plan to a CompleteTask
// sub-strategy running against a (possibly different) execution provider.
type PlanExecute struct {
	Goal              string
	PlanningProvider  string
	ExecutionProvider string
	SystemPrompt      string
	Threshold         float64

	phase      planExecutePhase
	plan       string
	evalScore  float64
	evalNote   string
	toolServer *mcp.Client
}

func NewPlanExecute(goal, planningProvider, executionProvider, systemPrompt string) *PlanExecute {
	threshold := DefaultPlanExecuteThreshold
	return &PlanExecute{
		Goal:              goal,
		PlanningProvider:  planningProvider,
		ExecutionProvider: executionProvider,
		SystemPrompt:      systemPrompt,
		Threshold:         threshold,
		phase:             phaseNeedsPlan,
	}
}

func (s *PlanExecute) Name() string { return "plan_execute" }

// ProviderKey returns the planning provider while a plan is being drafted
// or revised, and the execution provider once delegation has begun — P7's
// "every CallModel in that strategy's scope uses that provider" is
// satisfied per-phase rather than for the whole strategy lifetime, since
// PlanExecute is explicitly specified with two provider keys.
func (s *PlanExecute) ProviderKey() string {
	switch s.phase {
	case phaseExecuting:
		return s.ExecutionProvider
	default:
		return s.PlanningProvider
	}
}

func (s *PlanExecute) ExtraToolServers() []*mcp.Client {
	if s.toolServer == nil {
		client, err := newPlanExecuteClient(
			func(plan string) { s.plan = plan },
			func(score float64, reasoning string) { s.evalScore, s.evalNote = score, reasoning },
		)
		if err != nil {
			// The in-memory tool server cannot fail to connect (no subprocess,
			// no network); a failure here means a programming error in the
			// handler, which initialize's caller should treat as fatal.
			panic(fmt.Sprintf("plan_execute: %v", err))
		}
		s.toolServer = client
	}
	return []*mcp.Client{s.toolServer}
}

func (s *PlanExecute) Initialize(state *models.SessionState) NextStep {
	s.phase = phaseAwaitingPlanSubmission
	return CallModel([]models.ChatMessage{
		{Role: models.RoleUser, Content: fmt.Sprintf("Propose a plan to accomplish this goal, then call submit_plan with it:\n\n%s", s.Goal)},
	})
}

func (s *PlanExecute) OnModelResponse(state *models.SessionState, response *CompletionResponse) NextStep {
	if len(response.ToolCalls) > 0 {
		return ExecuteTools(response.ToolCalls)
	}
	// The model replied without calling the expected tool; re-prompt rather
	// than silently completing with prose.
	switch s.phase {
	case phaseAwaitingPlanSubmission, phaseRevising:
		return CallModel(append(state.Messages, models.ChatMessage{
			Role:    models.RoleUser,
			Content: "Please call submit_plan with your proposed plan.",
		}))
	case phaseAwaitingEvaluation:
		return CallModel(append(state.Messages, models.ChatMessage{
			Role:    models.RoleUser,
			Content: "Please call submit_evaluation with a score and reasoning.",
		}))
	default:
		return Fail(&StrategyError{Strategy: s.Name(), Message: "unexpected model response without tool calls in phase " + string(s.phase)})
	}
}

func (s *PlanExecute) OnToolResults(state *models.SessionState, results []models.ToolResult) NextStep {
	switch s.phase {
	case phaseAwaitingPlanSubmission, phaseRevising:
		if s.plan == "" {
			return Fail(&StrategyError{Strategy: s.Name(), Message: "submit_plan did not record a plan"})
		}
		s.phase = phaseAwaitingEvaluation
		return CallModel(append(state.Messages, models.ChatMessage{
			Role: models.RoleUser,
			Content: fmt.Sprintf(
				"Evaluate this plan and call submit_evaluation with a score in [0,1] and your reasoning:\n\n%s",
				s.plan,
			),
		}))

	case phaseAwaitingEvaluation:
		if s.evalScore >= s.Threshold {
			s.phase = phaseExecuting
			return Delegate("complete_task", DelegationInput{
				Goal:     fmt.Sprintf("%s\n\nFollow this plan:\n%s", s.Goal, s.plan),
				Provider: s.ExecutionProvider,
			})
		}
		s.phase = phaseRevising
		return CallModel(append(state.Messages, models.ChatMessage{
			Role: models.RoleUser,
			Content: fmt.Sprintf(
				"The plan scored %.2f (%s), below the %.2f threshold. Revise it and call submit_plan again.",
				s.evalScore, s.evalNote, s.Threshold,
			),
		}))

	default:
		return Fail(&StrategyError{Strategy: s.Name(), Message: "on_tool_results called in unexpected phase " + string(s.phase)})
	}
}

// OnDelegationResult implements the single-step version the spec
// explicitly permits: it completes with the sub-task's result rather than
// iterating further execution steps.
func (s *PlanExecute) OnDelegationResult(state *models.SessionState, result DelegationResult) NextStep {
	if s.phase != phaseExecuting {
		return Fail(&StrategyError{Strategy: s.Name(), Message: "on_delegation_result called outside Executing phase"})
	}
	s.phase = phaseDone
	return Complete(result.FinalMessages, result.FinalResult)
}
