package agent

import (
	"context"

	"github.com/volition-run/volition/pkg/models"
)

// ChatModel is the chat-completion abstraction every vendor variant
// implements (§4.1). A single call produces one normalized response;
// streaming is out of scope.
//
// Implementations must be safe for concurrent use — one orchestrator per
// session calls sequentially, but a ProviderRegistry is shared across
// sessions.
type ChatModel interface {
	// Complete sends an ordered message list and an optional tool catalog
	// and returns the model's normalized reply. The returned error
	// distinguishes retriable failures (network, 5xx) from terminal ones
	// (4xx with a provider error body, malformed JSON, safety refusal) via
	// errors.As against *ProviderError.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider key this instance was registered under.
	Name() string

	// SupportsTools reports whether this provider/model combination can
	// accept a tool catalog at all.
	SupportsTools() bool
}

// CompletionRequest is everything a CallModel step needs to produce a
// completion: the conversation so far, the tool catalog presently in
// scope, and generation parameters passed through from config.
type CompletionRequest struct {
	Model      string
	System     string
	Messages   []models.ChatMessage
	Tools      []models.ToolDefinition
	Parameters map[string]any
}

// CompletionResponse is the model's normalized reply. Content and ToolCalls
// are mutually non-exclusive — a reply may carry trailing commentary
// alongside tool calls, though most vendors send one or the other.
type CompletionResponse struct {
	Content   string
	ToolCalls []models.ToolCall
	Usage     models.TokenUsage
}
