package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/volition-run/volition/pkg/models"
)

// Config lists the tool-servers the agent core should know about.
type Config struct {
	Servers []*ServerConfig `toml:"servers"`
}

// Registry owns a connection per configured tool-server and the flat
// tool-name-to-server routing table the orchestrator calls through for
// ExecuteTools (§4.2, §4.5). Routing is resolved once, at connect time: a
// tool name that two servers both declare is a construction error, not a
// runtime ambiguity (P2 tool routing determinism).
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	routes  map[string]string // tool name -> server id
	schemas map[string]*MCPTool
}

// NewRegistry creates an empty registry. Connect must be called before any
// tool can be routed.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger.With("component", "mcp_registry"),
		clients: make(map[string]*Client),
		routes:  make(map[string]string),
		schemas: make(map[string]*MCPTool),
	}
}

// Connect spawns and handshakes every configured server, in order, and
// rebuilds the routing table. A server that fails to connect is recorded as
// Failed and does not register any routes; it does not abort the other
// servers' startup (a partially-available toolset is still usable).
func (r *Registry) Connect(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return nil
	}

	for _, serverCfg := range cfg.Servers {
		if err := serverCfg.Validate(); err != nil {
			return fmt.Errorf("tool-server %s: %w", serverCfg.ID, err)
		}

		client := NewClient(serverCfg, r.logger)
		if err := client.Connect(ctx); err != nil {
			r.logger.Error("tool-server failed to connect", "server", serverCfg.ID, "error", err)
			r.mu.Lock()
			r.clients[serverCfg.ID] = client
			r.mu.Unlock()
			continue
		}

		r.mu.Lock()
		r.clients[serverCfg.ID] = client
		r.mu.Unlock()

		r.logger.Info("tool-server ready", "server", serverCfg.ID, "name", client.ServerInfo().Name)
	}

	return r.rebuildRoutes()
}

// Adopt registers an already-connected client (for example a strategy's
// in-memory synthetic tool server) under its configured id and folds its
// tools into the routing table. Adopting a second client under an id
// already present is a no-op re-adoption, so a strategy's repeated
// ExtraToolServers() calls across iterations stay idempotent.
func (r *Registry) Adopt(client *Client) error {
	r.mu.Lock()
	r.clients[client.Config().ID] = client
	r.mu.Unlock()
	return r.rebuildRoutes()
}

// rebuildRoutes flattens every Ready client's tool catalog into one
// name-to-server map, erroring on the first duplicate tool name found.
func (r *Registry) rebuildRoutes() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := make(map[string]string)
	schemas := make(map[string]*MCPTool)
	for serverID, client := range r.clients {
		if client.State() != StateReady {
			continue
		}
		for _, tool := range client.Tools() {
			if existing, ok := routes[tool.Name]; ok {
				return fmt.Errorf("tool %q is declared by both %q and %q", tool.Name, existing, serverID)
			}
			routes[tool.Name] = serverID
			schemas[tool.Name] = tool
		}
	}
	r.routes = routes
	r.schemas = schemas
	return nil
}

// Shutdown closes every connection, giving each its configured grace period.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, c := range clients {
		if err := c.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Client returns the connection for a server id.
func (r *Registry) Client(serverID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[serverID]
	return c, ok
}

// RouteFor resolves which server declares a tool name, per the routing
// table built at Connect time.
func (r *Registry) RouteFor(toolName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.routes[toolName]
	return id, ok
}

// ToolDefinitions returns the raw schema for every routable tool, keyed by
// name, for the schema package to map into models.ToolDefinition.
func (r *Registry) ToolDefinitions() map[string]*MCPTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*MCPTool, len(r.schemas))
	for k, v := range r.schemas {
		out[k] = v
	}
	return out
}

// CallTool routes a tool call to its owning server connection. Returns a
// ToolCallError-wrapped error if the tool name has no route or its server is
// not Ready.
func (r *Registry) CallTool(ctx context.Context, toolCallID, name string, arguments json.RawMessage) (models.ToolResult, error) {
	serverID, ok := r.RouteFor(name)
	if !ok {
		return models.ToolResult{}, fmt.Errorf("tool %q: %w", name, ErrToolNotRouted)
	}
	client, ok := r.Client(serverID)
	if !ok || client.State() != StateReady {
		return models.ToolResult{}, fmt.Errorf("tool %q: server %q: %w", name, serverID, ErrServerUnavailable)
	}
	return client.CallTool(ctx, toolCallID, name, arguments)
}

// Status summarizes every configured server's current state, for
// diagnostics and the demo CLI.
type Status struct {
	ID    string `json:"id"`
	State State  `json:"state"`
	Tools int    `json:"tools"`
}

func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]Status, 0, len(r.clients))
	for id, client := range r.clients {
		statuses = append(statuses, Status{
			ID:    id,
			State: client.State(),
			Tools: len(client.Tools()),
		})
	}
	return statuses
}
