package agent

import (
	"log/slog"
	"time"

	"github.com/volition-run/volition/internal/observability"
)

// OrchestratorOptions configures a single run of the orchestrator (§4.5):
// the iteration cap, tool-execution concurrency, and the observability
// collaborators the run loop reports through.
type OrchestratorOptions struct {
	// MaxIterations bounds the number of model calls a single strategy run
	// may make before the orchestrator gives up with ErrMaxIterations
	// (P4). Default: 20.
	MaxIterations int

	// MaxDelegationDepth bounds how many nested Delegate steps may stack
	// before a sub-orchestrator refuses to delegate further, generalized
	// from the teacher multiagent package's MaxHandoffDepth.
	MaxDelegationDepth int

	ToolExecutor *Executor

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

func DefaultOrchestratorOptions() OrchestratorOptions {
	return OrchestratorOptions{
		MaxIterations:      20,
		MaxDelegationDepth: 5,
		Logger:             slog.Default(),
	}
}

func mergeOrchestratorOptions(base, override OrchestratorOptions) OrchestratorOptions {
	merged := base
	if override.MaxIterations > 0 {
		merged.MaxIterations = override.MaxIterations
	}
	if override.MaxDelegationDepth > 0 {
		merged.MaxDelegationDepth = override.MaxDelegationDepth
	}
	if override.ToolExecutor != nil {
		merged.ToolExecutor = override.ToolExecutor
	}
	if override.Logger != nil {
		merged.Logger = override.Logger
	}
	if override.Metrics != nil {
		merged.Metrics = override.Metrics
	}
	if override.Tracer != nil {
		merged.Tracer = override.Tracer
	}
	return merged
}

// CallTimeout bounds a single provider call when the caller does not set
// one on the context already.
const DefaultCallTimeout = 2 * time.Minute
