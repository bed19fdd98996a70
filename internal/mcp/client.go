package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/volition-run/volition/pkg/models"
)

const clientName = "volition"
const clientVersion = "0.1.0"
const protocolVersion = "2024-11-05"

// Client drives one tool-server connection through its lifecycle:
// Disconnected -> Initializing -> Ready, or -> Failed on any step's error or
// an unexpected process exit.
type Client struct {
	config    *ServerConfig
	transport Transport
	logger    *slog.Logger

	mu         sync.RWMutex
	state      State
	tools      []*MCPTool
	serverInfo ServerInfo
	failureErr error
}

// NewClient builds a client around a stdio transport for cfg. Tests that
// need an in-process tool-server construct the transport themselves and use
// NewClientWithTransport instead.
func NewClient(cfg *ServerConfig, logger *slog.Logger) *Client {
	return NewClientWithTransport(cfg, NewStdioTransportFor(cfg), logger)
}

// NewClientWithTransport builds a client around an arbitrary Transport,
// letting tests and in-process tool-servers swap in an InMemoryTransport.
func NewClientWithTransport(cfg *ServerConfig, transport Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:    cfg,
		transport: transport,
		logger:    logger.With("tool_server", cfg.ID),
		state:     StateDisconnected,
	}
}

// Connect drives the handshake: transport connect, initialize, initialized
// notification, tools/list. Any failure leaves the client in StateFailed
// with the triggering error recorded.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateInitializing, nil)

	if err := c.transport.Connect(ctx); err != nil {
		return c.fail(fmt.Errorf("transport connect: %w", err))
	}

	result, err := c.transport.Call(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	})
	if err != nil {
		c.transport.Close()
		return c.fail(fmt.Errorf("initialize: %w", err))
	}

	var initResult InitializeResult
	if err := json.Unmarshal(result, &initResult); err != nil {
		c.transport.Close()
		return c.fail(fmt.Errorf("parse initialize result: %w", err))
	}

	c.mu.Lock()
	c.serverInfo = initResult.ServerInfo
	c.mu.Unlock()

	c.logger.Info("connected to tool-server",
		"name", c.serverInfo.Name,
		"version", c.serverInfo.Version,
		"protocol", initResult.ProtocolVersion)

	if err := c.transport.Notify(ctx, "notifications/initialized", nil); err != nil {
		c.logger.Warn("failed to send initialized notification", "error", err)
	}

	if err := c.refreshTools(ctx); err != nil {
		c.transport.Close()
		return c.fail(fmt.Errorf("tools/list: %w", err))
	}

	if watcher, ok := c.transport.(interface {
		Exited() (<-chan struct{}, error)
	}); ok {
		exited, _ := watcher.Exited()
		go c.watchExit(exited)
	}

	c.setState(StateReady, nil)
	return nil
}

func (c *Client) watchExit(exited <-chan struct{}) {
	<-exited
	c.mu.RLock()
	already := c.state == StateFailed || c.state == StateDisconnected
	c.mu.RUnlock()
	if already {
		return
	}
	c.setState(StateFailed, fmt.Errorf("tool-server process exited unexpectedly"))
	c.logger.Error("tool-server exited unexpectedly")
}

// Shutdown closes the connection, giving the child ShutdownGrace to exit
// cooperatively before Close kills it outright (§4.2). Reconnection is
// never automatic; a caller that wants to retry constructs a fresh Client.
func (c *Client) Shutdown(ctx context.Context) error {
	grace := c.config.ShutdownGrace
	if grace <= 0 {
		grace = 3 * time.Second
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.transport.Close()
	}()

	select {
	case <-done:
	case <-time.After(grace):
		c.logger.Warn("tool-server did not close within grace period")
	}

	c.setState(StateDisconnected, nil)
	return nil
}

func (c *Client) setState(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.failureErr = err
	c.mu.Unlock()
}

func (c *Client) fail(err error) error {
	c.setState(StateFailed, err)
	return err
}

// State returns the connection's current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// FailureError returns the error that moved the connection to StateFailed,
// or nil if it never failed.
func (c *Client) FailureError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failureErr
}

// Config returns the server configuration this client was built from.
func (c *Client) Config() *ServerConfig {
	return c.config
}

// ServerInfo returns the handshake-reported server identity.
func (c *Client) ServerInfo() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// Connected reports whether the connection is in StateReady.
func (c *Client) Connected() bool {
	return c.State() == StateReady
}

func (c *Client) refreshTools(ctx context.Context) error {
	result, err := c.transport.Call(ctx, "tools/list", nil)
	if err != nil {
		return err
	}
	var resp ListToolsResult
	if err := json.Unmarshal(result, &resp); err != nil {
		return fmt.Errorf("decode tools/list result: %w", err)
	}
	c.mu.Lock()
	c.tools = resp.Tools
	c.mu.Unlock()
	c.logger.Debug("refreshed tool catalog", "count", len(resp.Tools))
	return nil
}

// Tools returns the cached tool catalog from the last handshake.
func (c *Client) Tools() []*MCPTool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools
}

// CallTool invokes a tool by name and renders the result into the uniform
// models.ToolResult shape (§4.5). Multiple content blocks are joined with
// blank lines; a tool-server-reported error sets ToolResultFailure rather
// than returning a Go error, so a failed tool call still produces a message
// the model can see and react to.
func (c *Client) CallTool(ctx context.Context, toolCallID, name string, arguments json.RawMessage) (models.ToolResult, error) {
	params := CallToolParams{Name: name, Arguments: arguments}

	result, err := c.transport.Call(ctx, "tools/call", params)
	if err != nil {
		return models.ToolResult{}, err
	}

	var callResult ToolCallResult
	if err := json.Unmarshal(result, &callResult); err != nil {
		return models.ToolResult{}, fmt.Errorf("decode tools/call result: %w", err)
	}

	status := models.ToolResultSuccess
	if callResult.IsError {
		status = models.ToolResultFailure
	}

	payload := ""
	for i, content := range callResult.Content {
		if i > 0 {
			payload += "\n\n"
		}
		payload += content.Text
	}

	return models.ToolResult{
		ToolCallID: toolCallID,
		ToolName:   name,
		Status:     status,
		Payload:    payload,
	}, nil
}
