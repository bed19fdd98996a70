package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the orchestrator and strategies.
var (
	// ErrMaxIterations indicates the orchestrator's run loop exceeded its
	// iteration cap without the strategy reaching Complete or Fail.
	ErrMaxIterations = errors.New("max iterations exceeded")

	// ErrNoProvider indicates a CallModel step named a provider key the
	// registry does not hold, or no default provider is configured.
	ErrNoProvider = errors.New("no provider configured")
)

// ConfigError reports a malformed or incomplete ConfigurationRecord:
// missing required fields, a reference to a provider or tool-server that
// does not exist, or a malformed strategy schema (§7).
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

// ProviderErrorKind distinguishes a chat-model failure's retriability.
type ProviderErrorKind string

const (
	// ProviderErrorNetwork is a transport-level failure; retriable.
	ProviderErrorNetwork ProviderErrorKind = "network"
	// ProviderErrorHTTPStatus is a non-2xx response with a body attached;
	// terminal.
	ProviderErrorHTTPStatus ProviderErrorKind = "http_status"
	// ProviderErrorParse is a malformed or unexpected response body;
	// terminal.
	ProviderErrorParse ProviderErrorKind = "parse"
	// ProviderErrorRefusal is a vendor-reported safety/content refusal;
	// terminal and distinguishable from a network failure.
	ProviderErrorRefusal ProviderErrorKind = "refusal"
)

// IsRetryable reports whether the provider's own retry loop should attempt
// this call again (§4.1: network error and 5xx status are retriable).
func (k ProviderErrorKind) IsRetryable() bool {
	return k == ProviderErrorNetwork
}

// ProviderError reports a chat-model call failure, carrying enough context
// to decide retriability and to render the vendor's own error body when
// present.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int
	Body       string
	Cause      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Body != "":
		return fmt.Sprintf("provider %s: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Body)
	case e.Cause != nil:
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Retryable reports whether this specific failure should be retried.
func (e *ProviderError) Retryable() bool { return e.Kind.IsRetryable() }

// ToolServerErrorKind distinguishes how a tool-server connection failed.
type ToolServerErrorKind string

const (
	ToolServerSpawnFailed     ToolServerErrorKind = "spawn_failed"
	ToolServerHandshakeFailed ToolServerErrorKind = "handshake_failed"
	ToolServerUnavailable     ToolServerErrorKind = "server_unavailable"
	ToolServerProtocolError   ToolServerErrorKind = "protocol_error"
)

// ToolServerError reports a tool-server connection-lifecycle failure (§7).
type ToolServerError struct {
	ServerID string
	Kind     ToolServerErrorKind
	Cause    error
}

func (e *ToolServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool server %s: %s: %v", e.ServerID, e.Kind, e.Cause)
	}
	return fmt.Sprintf("tool server %s: %s", e.ServerID, e.Kind)
}

func (e *ToolServerError) Unwrap() error { return e.Cause }

// ToolCallErrorKind distinguishes why a single tool call failed.
type ToolCallErrorKind string

const (
	ToolCallUnknownTool    ToolCallErrorKind = "unknown_tool"
	ToolCallSchemaMismatch ToolCallErrorKind = "schema_mismatch"
	ToolCallServerReported ToolCallErrorKind = "server_reported_failure"
)

// ToolCallError reports a single tool-call failure, preserving the tool
// name and call id so the orchestrator can build the matching tool-role
// message (§7).
type ToolCallError struct {
	ToolName   string
	ToolCallID string
	Kind       ToolCallErrorKind
	Cause      error
}

func (e *ToolCallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool call %s (%s): %s: %v", e.ToolName, e.ToolCallID, e.Kind, e.Cause)
	}
	return fmt.Sprintf("tool call %s (%s): %s", e.ToolName, e.ToolCallID, e.Kind)
}

func (e *ToolCallError) Unwrap() error { return e.Cause }

// StrategyError reports an invariant violation by a Strategy implementation
// — e.g. an ExecuteTools step naming calls that don't match the pending
// tool calls, or a callback invoked out of sequence (§7, P5).
type StrategyError struct {
	Strategy string
	Message  string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %s", e.Strategy, e.Message)
}

// SessionErrorKind distinguishes why a session-level operation failed.
type SessionErrorKind string

const (
	SessionIterationCapReached SessionErrorKind = "iteration_cap_reached"
	SessionCancelled           SessionErrorKind = "cancelled"
	SessionSerializationFailed SessionErrorKind = "serialization_failed"
)

// SessionError reports a session-lifecycle failure: the iteration cap was
// reached, the run was cancelled, or history (de)serialization failed
// (§7).
type SessionError struct {
	SessionID string
	Kind      SessionErrorKind
	Cause     error
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Kind, e.Cause)
	}
	return fmt.Sprintf("session %s: %s", e.SessionID, e.Kind)
}

func (e *SessionError) Unwrap() error { return e.Cause }
