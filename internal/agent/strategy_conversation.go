package agent

import (
	"strings"

	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/pkg/models"
)

// Conversation wraps any inner strategy with a message history that
// persists across user turns (§4.4). Each call to NewTurn appends the new
// user input, runs the inner strategy once to Complete, and folds the
// result back into the carried history.
type Conversation struct {
	inner   Strategy
	history []models.ChatMessage
}

func NewConversation(inner Strategy) *Conversation {
	return &Conversation{inner: inner}
}

// History returns the carried message list, for an enclosing CLI to render
// prior turns on resumption (§4.4 [NEW]).
func (c *Conversation) History() []models.ChatMessage {
	return append([]models.ChatMessage(nil), c.history...)
}

// TurnCommand classifies a raw user input line before it reaches the inner
// strategy.
type TurnCommand string

const (
	TurnCommandContinue TurnCommand = "continue"
	TurnCommandEnd      TurnCommand = "end"
	TurnCommandNew      TurnCommand = "new"
)

// ClassifyTurn recognizes the special commands §4.4 names: empty input and
// exit/quit end the session; new discards carried history.
func ClassifyTurn(input string) TurnCommand {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return TurnCommandEnd
	case "exit", "quit":
		return TurnCommandEnd
	case "new":
		return TurnCommandNew
	default:
		return TurnCommandContinue
	}
}

// NewTurn appends userInput to the carried history and returns the
// NextStep the inner strategy would have produced from Initialize, seeded
// with the full carried history. The caller is responsible for checking
// ClassifyTurn first; NewTurn always treats its input as a continuation.
func (c *Conversation) NewTurn(state *models.SessionState, userInput string) NextStep {
	c.history = append(c.history, models.ChatMessage{Role: models.RoleUser, Content: userInput})
	state.Messages = append([]models.ChatMessage(nil), c.history...)
	return c.inner.Initialize(state)
}

// Reset discards the carried history, honoring the "new" command.
func (c *Conversation) Reset() {
	c.history = nil
}

func (c *Conversation) Name() string        { return "conversation(" + c.inner.Name() + ")" }
func (c *Conversation) ProviderKey() string { return c.inner.ProviderKey() }

func (c *Conversation) ExtraToolServers() []*mcp.Client { return c.inner.ExtraToolServers() }

func (c *Conversation) Initialize(state *models.SessionState) NextStep {
	return c.inner.Initialize(state)
}

func (c *Conversation) OnModelResponse(state *models.SessionState, response *CompletionResponse) NextStep {
	next := c.inner.OnModelResponse(state, response)
	return c.captureCompletion(next)
}

func (c *Conversation) OnToolResults(state *models.SessionState, results []models.ToolResult) NextStep {
	next := c.inner.OnToolResults(state, results)
	return c.captureCompletion(next)
}

func (c *Conversation) OnDelegationResult(state *models.SessionState, result DelegationResult) NextStep {
	next := c.inner.OnDelegationResult(state, result)
	return c.captureCompletion(next)
}

// captureCompletion folds a Complete step's final messages into the
// carried history before handing the step back to the orchestrator, so the
// next NewTurn starts from the updated conversation.
func (c *Conversation) captureCompletion(next NextStep) NextStep {
	if next.Kind == StepComplete {
		c.history = append([]models.ChatMessage(nil), next.Messages...)
	}
	return next
}
