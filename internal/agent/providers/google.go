package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/volition-run/volition/internal/agent"
	"github.com/volition-run/volition/pkg/models"
)

// GoogleProvider implements agent.ChatModel against the Gemini native
// generateContent endpoint (§4.1): contents/system_instruction/
// functionDeclarations in, candidates[0].content.parts out. Gemini tool
// calls carry no id of their own, so the core synthesizes one per call.
type GoogleProvider struct {
	name         string
	baseURL      string
	apiKey       string
	defaultModel string
}

type GoogleConfig struct {
	Name         string
	BaseURL      string
	APIKey       string
	DefaultModel string
}

var _ agent.ChatModel = (*GoogleProvider)(nil)

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	name := cfg.Name
	if name == "" {
		name = "google"
	}
	return &GoogleProvider{name: name, baseURL: baseURL, apiKey: cfg.APIKey, defaultModel: cfg.DefaultModel}
}

func (p *GoogleProvider) Name() string        { return p.name }
func (p *GoogleProvider) SupportsTools() bool { return true }

func (p *GoogleProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorParse, Cause: fmt.Errorf("model is required")}
	}

	payload := geminiRequest{
		Contents: buildGeminiContents(req.Messages),
		Tools:    buildGeminiTools(req.Tools),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorParse, Cause: err}
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["x-goog-api-key"] = p.apiKey
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	respBody, err := doJSON(ctx, p.name, model, url, headers, body)
	if err != nil {
		return nil, err
	}

	parsed, err := decodeJSON[geminiResponse](p.name, respBody)
	if err != nil {
		return nil, err
	}

	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorRefusal, Cause: fmt.Errorf("blocked: %s", parsed.PromptFeedback.BlockReason)}
	}
	if len(parsed.Candidates) == 0 {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorParse, Cause: fmt.Errorf("response has no candidates")}
	}
	candidate := parsed.Candidates[0]
	if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "RECITATION" {
		return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorRefusal, Cause: fmt.Errorf("finish reason %s", candidate.FinishReason)}
	}

	var content strings.Builder
	var toolCalls []models.ToolCall
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			content.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, &agent.ProviderError{Provider: p.name, Kind: agent.ProviderErrorParse, Cause: err}
			}
			toolCalls = append(toolCalls, models.ToolCall{
				ID:        uuid.NewString(),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}

	return &agent.CompletionResponse{
		Content:   content.String(),
		ToolCalls: toolCalls,
		Usage:     usageFromGemini(parsed.UsageMetadata),
	}, nil
}

func usageFromGemini(u *geminiUsageMetadata) models.TokenUsage {
	if u == nil {
		return models.TokenUsage{}
	}
	prompt, completion, total := u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount
	return models.TokenUsage{PromptTokens: &prompt, CompletionTokens: &completion, TotalTokens: &total}
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiFunctionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  models.ParameterSchema `json:"parameters"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *geminiUsageMetadata  `json:"usageMetadata,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// buildGeminiContents maps the vendor-agnostic message history onto Gemini's
// role/parts shape. Gemini has no "tool" role for results or "assistant" for
// model turns: results go back as a user-role functionResponse-free text
// part (the core never asks Gemini tools to be re-invoked from history), and
// assistant turns map to "model".
func buildGeminiContents(messages []models.ChatMessage) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "model"
		}
		text := msg.Content
		if msg.Role == models.RoleTool {
			text = fmt.Sprintf("[tool result %s] %s", msg.ToolCallID, msg.Content)
		}
		if text == "" && len(msg.ToolCalls) == 0 {
			continue
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: text}}})
	}
	return contents
}

func buildGeminiTools(defs []models.ToolDefinition) []geminiTool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDeclaration, len(defs))
	for i, d := range defs {
		decls[i] = geminiFunctionDeclaration{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return []geminiTool{{FunctionDeclarations: decls}}
}
