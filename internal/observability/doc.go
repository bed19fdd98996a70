// Package observability provides monitoring and debugging capabilities for
// the Volition agent core through metrics, structured logging, and
// distributed tracing.
//
// # Overview
//
// The observability package implements the three pillars of observability:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed request tracing with OpenTelemetry
//
// # Architecture
//
// The package is designed to be:
//   - Low-overhead: Minimal performance impact on production systems
//   - Type-safe: Strongly-typed APIs reduce configuration errors
//   - Standards-based: Uses Prometheus, OpenTelemetry, and slog
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - Provider (LLM) request latency, status, and token usage
//   - Tool execution performance
//   - Error rates by strategy and error kind
//   - Active and completed orchestrator runs
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	// Track a provider call
//	start := time.Now()
//	// ... call the provider ...
//	metrics.RecordLLMRequest("openai", "gpt-4.1", "success",
//	    time.Since(start).Seconds(), promptTokens, completionTokens)
//
//	// Track tool execution
//	start = time.Now()
//	// ... execute tool ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request ID correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	// Add context IDs for correlation
//	ctx := observability.AddRequestID(ctx, requestID)
//	ctx = observability.AddSessionID(ctx, sessionID)
//
//	// Structured logging with automatic context correlation
//	logger.Info(ctx, "running strategy",
//	    "strategy", "complete_task",
//	    "provider", "openai",
//	)
//
//	// Error logging with automatic redaction
//	logger.Error(ctx, "provider call failed",
//	    "error", err,
//	    "provider", "openai",
//	    "api_key", apiKey, // Automatically redacted
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track a run across components:
//   - End-to-end run visualization
//   - Performance bottleneck identification
//   - Error correlation across provider and tool-server calls
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "volition",
//	    ServiceVersion: "1.0.0",
//	    Environment:    "production",
//	    Endpoint:       "localhost:4317", // OTLP collector
//	    SamplingRate:   0.1,              // Sample 10% of traces
//	})
//	defer shutdown(context.Background())
//
//	// Trace a provider call
//	ctx, span := tracer.Start(ctx, "volition.provider.complete", observability.SpanOptions{})
//	defer span.End()
//	tracer.SetAttributes(span, "prompt_tokens", 100, "completion_tokens", 500)
//
//	// Trace tool execution
//	ctx, toolSpan := tracer.TraceToolExecution(ctx, "web_search")
//	defer toolSpan.End()
//	if err != nil {
//	    tracer.RecordError(toolSpan, err)
//	}
//
// # Context Propagation
//
// All three components integrate with Go's context for automatic correlation:
//
//	// Add IDs to context
//	ctx = observability.AddRequestID(ctx, "req-123")
//	ctx = observability.AddSessionID(ctx, "sess-456")
//
//	// IDs automatically appear in logs
//	logger.Info(ctx, "running") // Includes request_id, session_id, etc.
//
//	// Spans inherit context
//	ctx, span := tracer.Start(ctx, "operation")
//	// Trace context propagates to child spans
//
// # Integration Example
//
// Complete example integrating all three components around one provider call:
//
//	func callModel(ctx context.Context, model ChatModel, req *CompletionRequest) (*CompletionResponse, error) {
//	    ctx = observability.AddSessionID(ctx, req.SessionID)
//
//	    ctx, span := tracer.Start(ctx, "volition.provider.complete", observability.SpanOptions{})
//	    defer span.End()
//
//	    start := time.Now()
//	    resp, err := model.Complete(ctx, req)
//	    duration := time.Since(start).Seconds()
//
//	    if err != nil {
//	        metrics.RecordError("complete_task", "provider_network")
//	        tracer.RecordError(span, err)
//	        logger.Error(ctx, "provider call failed", "error", err)
//	        metrics.RecordLLMRequest(model.Name(), model.Name(), "error", duration, 0, 0)
//	        return nil, err
//	    }
//
//	    metrics.RecordLLMRequest(model.Name(), model.Name(), "success",
//	        duration, promptTokens(resp), completionTokens(resp))
//	    logger.Info(ctx, "provider call completed", "duration_ms", duration*1000)
//
//	    return resp, nil
//	}
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (provider keys, generic secrets)
//   - Passwords and secrets
//   - JWT tokens
//   - Bearer tokens
//   - Custom patterns via configuration
//
// Sensitive fields in maps are also redacted:
//   - password, passwd, pwd
//   - secret, api_key, apikey
//   - token, auth, authorization
//   - private_key, privatekey
//
// # Performance
//
// The observability system is designed for minimal overhead:
//   - Metrics use lock-free counters where possible
//   - Logging with slog is highly efficient
//   - Tracing supports sampling to reduce overhead
//   - Context propagation is zero-allocation in most cases
//
// # Configuration
//
// All components support configuration via structs:
//
//	// Metrics - no configuration needed, auto-registered
//	metrics := observability.NewMetrics()
//
//	// Logging - configurable output, level, format
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:          os.Getenv("LOG_LEVEL"),
//	    Format:         "json",
//	    AddSource:      true,
//	    RedactPatterns: []string{`custom-secret-\d+`},
//	})
//
//	// Tracing - configurable sampling, endpoint, attributes
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "volition",
//	    ServiceVersion: version,
//	    Environment:    env,
//	    Endpoint:       os.Getenv("OTEL_ENDPOINT"),
//	    SamplingRate:   0.1,
//	})
//	defer shutdown(context.Background())
//
// # Testing
//
// All components provide testable interfaces:
//   - Metrics can be verified using prometheus/testutil against a private registry
//   - Logging can write to bytes.Buffer for assertions
//   - Tracing works with no-op exporters in tests
//
// # Best Practices
//
//  1. Always propagate context to enable correlation
//  2. Use defer for span.End() to ensure spans are closed
//  3. Record errors on both metrics and traces
//  4. Use structured logging with key-value pairs
//  5. Use typed metric labels (avoid high-cardinality values, e.g. session ids)
//
// # Monitoring Dashboard
//
// The metrics exposed can be used to build dashboards:
//
//	# LLM request latency (95th percentile)
//	histogram_quantile(0.95, rate(volition_llm_request_duration_seconds_bucket[5m]))
//
//	# Error rate
//	rate(volition_errors_total[5m])
//
//	# Active sessions
//	volition_active_sessions
//
//	# Tool execution time
//	rate(volition_tool_execution_duration_seconds_sum[5m]) /
//	rate(volition_tool_execution_duration_seconds_count[5m])
//
// # Further Reading
//
//   - Prometheus best practices: https://prometheus.io/docs/practices/naming/
//   - OpenTelemetry specification: https://opentelemetry.io/docs/specs/otel/
//   - slog documentation: https://pkg.go.dev/log/slog
package observability
