package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/volition-run/volition/internal/agent"
	"github.com/volition-run/volition/pkg/models"
)

// OpenAIProvider implements agent.ChatModel against any OpenAI-compatible
// chat-completions endpoint (§4.1): `{model, messages, tools?}` in,
// `choices[0].message` out.
type OpenAIProvider struct {
	name         string
	baseURL      string
	apiKey       string
	defaultModel string
}

type OpenAIConfig struct {
	// Name is the provider key this instance answers to (ProviderSet.ByKey),
	// distinct from BaseURL so a self-hosted OpenAI-compatible endpoint can
	// be registered under any name.
	Name         string
	BaseURL      string
	APIKey       string
	DefaultModel string
}

var _ agent.ChatModel = (*OpenAIProvider)(nil)

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &OpenAIProvider{name: name, baseURL: baseURL, apiKey: cfg.APIKey, defaultModel: cfg.DefaultModel}
}

func (p *OpenAIProvider) Name() string        { return p.name }
func (p *OpenAIProvider) SupportsTools() bool { return true }

func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionResponse, error) {
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

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	respBody, err := doJSON(ctx, p.name, model, p.baseURL+"/chat/completions", headers, body)
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
	if choice.FinishReason == "content_filter" {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorRefusal, Cause: fmt.Errorf("content filtered")}
	}

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

func usageFromOpenAI(u *openAIUsage) models.TokenUsage {
	if u == nil {
		return models.TokenUsage{}
	}
	prompt, completion, total := u.PromptTokens, u.CompletionTokens, u.TotalTokens
	return models.TokenUsage{PromptTokens: &prompt, CompletionTokens: &completion, TotalTokens: &total}
}

type openAIRequest struct {
	Model    string           `json:"model"`
	Messages []openAIMessage  `json:"messages"`
	Tools    []openAITool     `json:"tools,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Parameters  models.ParameterSchema `json:"parameters"`
}

type openAIToolCall struct {
	ID       string                     `json:"id"`
	Type     string                     `json:"type"`
	Function openAIToolCallFunctionBody `json:"function"`
}

type openAIToolCallFunctionBody struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   *openAIUsage   `json:"usage"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func buildOpenAITools(defs []models.ToolDefinition) []openAITool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openAITool, len(defs))
	for i, d := range defs {
		tools[i] = openAITool{Type: "function", Function: openAIToolFunction{Name: d.Name, Description: d.Description, Parameters: d.Parameters}}
	}
	return tools
}

func buildOpenAIMessages(req *agent.CompletionRequest) []openAIMessage {
	messages := make([]openAIMessage, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: system})
	}
	for _, msg := range req.Messages {
		role := string(msg.Role)
		if role == "" {
			role = "user"
		}
		out := openAIMessage{Role: role, Content: msg.Content, ToolCallID: msg.ToolCallID}
		if len(msg.ToolCalls) > 0 {
			out.ToolCalls = make([]openAIToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				args := string(tc.Arguments)
				if args == "" {
					args = "{}"
				}
				out.ToolCalls[i] = openAIToolCall{ID: tc.ID, Type: "function", Function: openAIToolCallFunctionBody{Name: tc.Name, Arguments: args}}
			}
		}
		messages = append(messages, out)
	}
	return messages
}
