package mcp

import "errors"

// Sentinel errors the agent core's error taxonomy (§7 ToolServerError,
// ToolCallError) wraps with %w.
var (
	// ErrToolNotRouted is returned when no connected server declares the
	// requested tool name.
	ErrToolNotRouted = errors.New("tool not routed to any connected server")

	// ErrServerUnavailable is returned when a tool's owning server is not in
	// StateReady, e.g. it has failed or was never connected.
	ErrServerUnavailable = errors.New("tool server unavailable")

	// ErrSpawnFailed is returned when a server's process could not be
	// started at all.
	ErrSpawnFailed = errors.New("tool server spawn failed")

	// ErrHandshakeFailed is returned when initialize, the initialized
	// notification, or the first tools/list fails.
	ErrHandshakeFailed = errors.New("tool server handshake failed")
)
