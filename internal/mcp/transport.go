package mcp

import (
	"context"
	"encoding/json"
)

// Transport is the wire-level contract a tool-server connection drives.
// StdioTransport spawns a child process; InMemoryTransport wires directly to
// an in-process handler. Both satisfy the same contract so the orchestrator
// never special-cases in-process tools (§9 Design Notes).
type Transport interface {
	// Connect establishes the transport connection (spawns the child for
	// stdio, or simply marks the in-memory transport ready).
	Connect(ctx context.Context) error

	// Close shuts the transport down. Implementations do not block
	// indefinitely; callers that need a graceful-then-forced shutdown
	// sequence build it on top of Close (see Client.Shutdown).
	Close() error

	// Call sends a request and waits for the paired response.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Notify sends a notification; no response is expected.
	Notify(ctx context.Context, method string, params any) error

	// Connected reports whether the transport believes it is usable.
	Connected() bool
}

// NewStdioTransportFor is the only transport constructor production code
// needs; it exists so tests can swap in NewInMemoryTransport without the
// orchestrator branching on transport kind.
func NewStdioTransportFor(cfg *ServerConfig) Transport {
	return NewStdioTransport(cfg)
}
