package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/pkg/models"
)

// ExecutorConfig configures the parallel tool executor: concurrency limits,
// per-call timeout, and retry/backoff for transient tool-server failures.
type ExecutorConfig struct {
	MaxConcurrency  int
	DefaultTimeout  time.Duration
	DefaultRetries  int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxConcurrency:  5,
		DefaultTimeout:  30 * time.Second,
		DefaultRetries:  2,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 5 * time.Second,
	}
}

// ToolConfig holds per-tool overrides of the executor's defaults.
type ToolConfig struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

// Executor runs ExecuteTools steps: it dispatches every call in a NextStep
// concurrently, bounded by a semaphore, and assembles tool-role results back
// in the order the calls were declared (P1, P3) regardless of which
// finished first. Calls are routed through an mcp.Registry rather than an
// in-process Tool interface — every tool, subprocess or in-memory, reaches
// the model the same way (§4.2, §4.4).
type Executor struct {
	registry *mcp.Registry
	config   *ExecutorConfig

	mu         sync.RWMutex
	toolConfig map[string]*ToolConfig

	sem chan struct{}

	metrics *ExecutorMetrics
}

// ExecutorMetrics tracks counts for observability (§C9); Metrics() returns
// an immutable snapshot.
type ExecutorMetrics struct {
	mu              sync.Mutex
	TotalExecutions int64
	TotalRetries    int64
	TotalFailures   int64
	TotalTimeouts   int64
	TotalPanics     int64
}

func NewExecutor(registry *mcp.Registry, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	return &Executor{
		registry:   registry,
		config:     config,
		toolConfig: make(map[string]*ToolConfig),
		sem:        make(chan struct{}, config.MaxConcurrency),
		metrics:    &ExecutorMetrics{},
	}
}

func (e *Executor) ConfigureTool(name string, config *ToolConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toolConfig[name] = config
}

func (e *Executor) getToolConfig(name string) *ToolConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.toolConfig[name]
}

// ExecutionResult pairs a tool call with its outcome and timing.
type ExecutionResult struct {
	ToolCallID string
	ToolName   string
	Result     models.ToolResult
	Err        error
	Duration   time.Duration
	Attempts   int
}

// ExecuteAll runs every call concurrently and returns results in the same
// order as calls, regardless of completion order. Each call's own errors
// are captured on its ExecutionResult rather than propagated through the
// group, so one failing call never cancels its siblings (P3).
func (e *Executor) ExecuteAll(ctx context.Context, calls []models.ToolCall) []*ExecutionResult {
	if len(calls) == 0 {
		return nil
	}

	results := make([]*ExecutionResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = e.Execute(gctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Execute runs a single tool call with retry and a per-call timeout,
// acquiring a semaphore slot first for backpressure.
func (e *Executor) Execute(ctx context.Context, call models.ToolCall) *ExecutionResult {
	start := time.Now()
	result := &ExecutionResult{ToolCallID: call.ID, ToolName: call.Name}

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		result.Err = &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallServerReported, Cause: ctx.Err()}
		result.Duration = time.Since(start)
		return result
	}

	tc := e.getToolConfig(call.Name)
	timeout := e.config.DefaultTimeout
	maxRetries := e.config.DefaultRetries
	backoff := e.config.RetryBackoff
	if tc != nil {
		if tc.Timeout > 0 {
			timeout = tc.Timeout
		}
		if tc.Retries >= 0 {
			maxRetries = tc.Retries
		}
		if tc.RetryBackoff > 0 {
			backoff = tc.RetryBackoff
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result.Attempts = attempt + 1

		toolResult, execErr := e.executeWithTimeout(ctx, call, timeout)
		if execErr == nil {
			result.Result = toolResult
			result.Duration = time.Since(start)
			e.recordSuccess(attempt)
			return result
		}

		lastErr = execErr

		if !isRetryable(execErr) || ctx.Err() != nil || attempt >= maxRetries {
			break
		}

		sleep := backoff * time.Duration(1<<uint(attempt))
		if sleep > e.config.MaxRetryBackoff {
			sleep = e.config.MaxRetryBackoff
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			lastErr = &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallServerReported, Cause: ctx.Err()}
		}
	}

	result.Err = lastErr
	result.Duration = time.Since(start)
	e.recordFailure(lastErr)
	return result
}

func (e *Executor) recordSuccess(attempt int) {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	e.metrics.TotalExecutions++
	if attempt > 0 {
		e.metrics.TotalRetries += int64(attempt)
	}
}

func (e *Executor) recordFailure(err error) {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	e.metrics.TotalExecutions++
	e.metrics.TotalFailures++
	if errors.Is(err, context.DeadlineExceeded) {
		e.metrics.TotalTimeouts++
	}
	var tcErr *ToolCallError
	if errors.As(err, &tcErr) && errors.Is(tcErr.Cause, errPanic) {
		e.metrics.TotalPanics++
	}
}

// isRetryable reports whether a tool-call failure is worth retrying: a
// server temporarily unavailable, or a timeout, but never a routing or
// schema problem that a retry cannot fix.
func isRetryable(err error) bool {
	if errors.Is(err, mcp.ErrServerUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var tcErr *ToolCallError
	if errors.As(err, &tcErr) {
		return tcErr.Kind == ToolCallServerReported
	}
	return false
}

var errPanic = errors.New("tool execution panicked")

// executeWithTimeout bounds a single attempt's wall-clock time and converts
// a panicking tool-server handler into a ToolCallError instead of crashing
// the orchestrator.
func (e *Executor) executeWithTimeout(ctx context.Context, call models.ToolCall, timeout time.Duration) (models.ToolResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result models.ToolResult
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallServerReported, Cause: fmt.Errorf("%w: %v\n%s", errPanic, r, debug.Stack())}
				ch <- outcome{err: err}
			}
		}()
		result, err := e.registry.CallTool(execCtx, call.ID, call.Name, call.Arguments)
		if err != nil {
			ch <- outcome{err: classifyCallToolError(call, err)}
			return
		}
		ch <- outcome{result: result}
	}()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return models.ToolResult{}, &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallServerReported, Cause: ctx.Err()}
		}
		return models.ToolResult{}, &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallServerReported, Cause: fmt.Errorf("%w: execution exceeded %s", context.DeadlineExceeded, timeout)}
	}
}

func classifyCallToolError(call models.ToolCall, err error) error {
	switch {
	case errors.Is(err, mcp.ErrToolNotRouted):
		return &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallUnknownTool, Cause: err}
	case errors.Is(err, mcp.ErrServerUnavailable):
		return &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallServerReported, Cause: err}
	default:
		return &ToolCallError{ToolName: call.Name, ToolCallID: call.ID, Kind: ToolCallServerReported, Cause: err}
	}
}

// Metrics returns a point-in-time snapshot safe to read concurrently.
func (e *Executor) Metrics() ExecutorMetricsSnapshot {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	return ExecutorMetricsSnapshot{
		TotalExecutions: e.metrics.TotalExecutions,
		TotalRetries:    e.metrics.TotalRetries,
		TotalFailures:   e.metrics.TotalFailures,
		TotalTimeouts:   e.metrics.TotalTimeouts,
		TotalPanics:     e.metrics.TotalPanics,
	}
}

type ExecutorMetricsSnapshot struct {
	TotalExecutions int64
	TotalRetries    int64
	TotalFailures   int64
	TotalTimeouts   int64
	TotalPanics     int64
}

// ResultsToToolMessages converts execution results into the tool-role
// models.ToolResult values the orchestrator appends to session history, in
// call order, whether or not each call succeeded.
func ResultsToToolMessages(results []*ExecutionResult) []models.ToolResult {
	out := make([]models.ToolResult, len(results))
	for i, r := range results {
		if r.Err != nil {
			out[i] = models.ToolResult{ToolCallID: r.ToolCallID, ToolName: r.ToolName, Status: models.ToolResultFailure, Payload: r.Err.Error()}
			continue
		}
		out[i] = r.Result
	}
	return out
}

// AnyErrors reports whether any result failed, Go-level error or
// tool-reported failure.
func AnyErrors(results []*ExecutionResult) bool {
	for _, r := range results {
		if r.Err != nil || r.Result.Status == models.ToolResultFailure {
			return true
		}
	}
	return false
}
