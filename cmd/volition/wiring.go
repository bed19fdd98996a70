package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/volition-run/volition/internal/agent"
	"github.com/volition-run/volition/internal/agent/providers"
	"github.com/volition-run/volition/internal/config"
	"github.com/volition-run/volition/internal/mcp"
	"github.com/volition-run/volition/internal/sessions"
)

// runtime bundles everything a command needs to drive an orchestrator run:
// the loaded configuration, the resolved providers, and a connected tool
// registry. Built once per invocation from the discovered Volition.toml.
type runtime struct {
	root     string
	record   *config.ConfigurationRecord
	provider *agent.ProviderSet
	tools    *mcp.Registry
	store    *sessions.FileStore
}

func loadRuntime(ctx context.Context, wd string, logger *slog.Logger) (*runtime, error) {
	record, root, err := config.LoadFromWorkingDir(wd)
	if err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	byKey := make(map[string]agent.ChatModel, len(record.Providers))
	for id, p := range record.Providers {
		model, err := buildProvider(id, p)
		if err != nil {
			return nil, err
		}
		byKey[id] = model
	}

	def, ok := byKey[record.DefaultProvider]
	if !ok {
		return nil, fmt.Errorf("default provider %q was not constructed", record.DefaultProvider)
	}

	registry := mcp.NewRegistry(logger)
	if len(record.MCPServers) > 0 {
		cfg := &mcp.Config{}
		for id, s := range record.MCPServers {
			cfg.Servers = append(cfg.Servers, &mcp.ServerConfig{ID: id, Command: s.Command, Args: s.Args})
		}
		if err := registry.Connect(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return &runtime{
		root:     root,
		record:   record,
		provider: &agent.ProviderSet{Default: def, ByKey: byKey},
		tools:    registry,
		store:    sessions.NewFileStore(root),
	}, nil
}

func buildProvider(id string, p config.ProviderConfig) (agent.ChatModel, error) {
	key, err := config.ResolveAPIKey(id, p)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case config.ProviderOpenAI:
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			Name: id, BaseURL: p.ModelConfig.Endpoint, APIKey: key, DefaultModel: p.ModelConfig.ModelName,
		}), nil
	case config.ProviderGemini:
		return providers.NewGoogleProvider(providers.GoogleConfig{
			Name: id, BaseURL: p.ModelConfig.Endpoint, APIKey: key, DefaultModel: p.ModelConfig.ModelName,
		}), nil
	case config.ProviderOllama:
		return providers.NewOllamaProvider(providers.OllamaConfig{
			Name: id, BaseURL: p.ModelConfig.Endpoint, DefaultModel: p.ModelConfig.ModelName,
		}), nil
	default:
		return nil, fmt.Errorf("provider %q: unsupported type %q", id, p.Type)
	}
}

func (r *runtime) newOrchestrator(logger *slog.Logger) *agent.Orchestrator {
	return agent.NewOrchestrator(r.provider, r.tools, agent.OrchestratorOptions{Logger: logger})
}

const runTimeout = 10 * time.Minute
