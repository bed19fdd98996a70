package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorKind_IsRetryable(t *testing.T) {
	tests := []struct {
		kind ProviderErrorKind
		want bool
	}{
		{ProviderErrorNetwork, true},
		{ProviderErrorHTTPStatus, false},
		{ProviderErrorParse, false},
		{ProviderErrorRefusal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsRetryable())
		})
	}
}

func TestProviderError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ProviderError{Provider: "openai", Kind: ProviderErrorNetwork, Cause: cause}

	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())
}

func TestProviderError_HTTPStatusIncludesBody(t *testing.T) {
	err := &ProviderError{
		Provider:   "gemini",
		Kind:       ProviderErrorHTTPStatus,
		StatusCode: 429,
		Body:       `{"error":"rate limited"}`,
	}
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
	assert.False(t, err.Retryable())
}

func TestToolServerError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &ToolServerError{ServerID: "fs", Kind: ToolServerUnavailable, Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "fs")
	assert.Contains(t, err.Error(), "server_unavailable")
}

func TestToolCallError_PreservesToolNameAndCallID(t *testing.T) {
	err := &ToolCallError{ToolName: "search", ToolCallID: "call-1", Kind: ToolCallUnknownTool}
	assert.Contains(t, err.Error(), "search")
	assert.Contains(t, err.Error(), "call-1")
}

func TestStrategyError_Error(t *testing.T) {
	err := &StrategyError{Strategy: "CompleteTask", Message: "ExecuteTools calls did not match pending calls"}
	assert.Contains(t, err.Error(), "CompleteTask")
	assert.Contains(t, err.Error(), "did not match")
}

func TestSessionError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &SessionError{SessionID: "sess-1", Kind: SessionSerializationFailed, Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "default_provider", Message: "references unknown provider \"x\""}
	assert.Contains(t, err.Error(), "default_provider")
	assert.Contains(t, err.Error(), "unknown provider")
}
