package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/volition-run/volition/internal/agent"
	"github.com/volition-run/volition/pkg/models"
)

// OllamaProvider implements agent.ChatModel against a local Ollama server
// (or any other unauthenticated server emulating the OpenAI chat-completions
// shape, per §4.1). It reuses the OpenAI wire types directly: no SDK, no
// API key header, and an absent tool_calls array is simply "no tools called"
// rather than an error.
type OllamaProvider struct {
	name         string
	baseURL      string
	defaultModel string
}

type OllamaConfig struct {
	Name         string
	BaseURL      string
	DefaultModel string
}

var _ agent.ChatModel = (*OllamaProvider)(nil)

func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	name := cfg.Name
	if name == "" {
		name = "ollama"
	}
	return &OllamaProvider{name: name, baseURL: baseURL, defaultModel: cfg.DefaultModel}
}

func (p *OllamaProvider) Name() string        { return p.name }
func (p *OllamaProvider) SupportsTools() bool { return true }

func (p *OllamaProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorParse, Cause: fmt.Errorf("model is required")}
	}

	payload := openAIRequest{
		Model:    model,
		Messages: buildOpenAIMessages(req),
		Tools:    buildOpenAITools(req.Tools),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorParse, Cause: err}
	}

	respBody, err := doJSON(ctx, p.name, model, p.baseURL+"/chat/completions", nil, body)
	if err != nil {
		return nil, err
	}

	parsed, err := decodeJSON[openAIResponse](p.name, respBody)
	if err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorParse, Cause: fmt.Errorf("response has no choices")}
	}
	choice := parsed.Choices[0]

	toolCalls := make([]models.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	return &agent.CompletionResponse{
		Content:   choice.Message.Content,
		ToolCalls: toolCalls,
		Usage:     usageFromOpenAI(parsed.Usage),
	}, nil
}
