package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler answers JSON-RPC method calls for an in-process tool-server. It is
// the in-memory analogue of a child process's stdin/stdout loop.
type Handler func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

// InMemoryTransport wires a tool-server directly into the same process,
// bypassing spawn/stdio entirely while still satisfying Transport. This
// resolves the collapse of in-process and subprocess tool dispatch into one
// interface (§9 Design Notes): the orchestrator and Client never need to
// know which kind of transport they are driving.
type InMemoryTransport struct {
	handler   Handler
	connected bool
}

// NewInMemoryTransport wraps handler as a Transport. It is used by tests and
// by built-in tool-servers that do not warrant a subprocess (e.g. a
// strategy's own submit_plan/submit_evaluation tools, §4.4).
func NewInMemoryTransport(handler Handler) *InMemoryTransport {
	return &InMemoryTransport{handler: handler}
}

func (t *InMemoryTransport) Connect(ctx context.Context) error {
	t.connected = true
	return nil
}

func (t *InMemoryTransport) Close() error {
	t.connected = false
	return nil
}

func (t *InMemoryTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !t.connected {
		return nil, fmt.Errorf("not connected")
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return t.handler(ctx, method, paramsJSON)
}

func (t *InMemoryTransport) Notify(ctx context.Context, method string, params any) error {
	if !t.connected {
		return fmt.Errorf("not connected")
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	_, err = t.handler(ctx, method, paramsJSON)
	return err
}

func (t *InMemoryTransport) Connected() bool {
	return t.connected
}
