// Package config loads and validates the ConfigurationRecord (§3, §4.7):
// a single "Volition.toml" table document discovered by walking up from the
// working directory, naming providers, tool-servers, and the strategy
// wiring between them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/volition-run/volition/internal/agent"
	"github.com/volition-run/volition/internal/workspace"
)

// FileName is the recognized configuration file name (§6).
const FileName = "Volition.toml"

// ProviderType names a supported chat-model wire format.
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// RequiresAPIKey reports whether instantiating a provider of this type
// fails without a resolved key. Ollama and other local/unauthenticated
// servers do not.
func (t ProviderType) RequiresAPIKey() bool {
	return t != ProviderOllama
}

// ModelConfig is a provider's vendor-specific model selection.
type ModelConfig struct {
	ModelName  string         `toml:"model_name"`
	Endpoint   string         `toml:"endpoint"`
	Parameters map[string]any `toml:"parameters"`
}

// ProviderConfig describes one entry in the `providers` table.
type ProviderConfig struct {
	Type         ProviderType `toml:"type"`
	APIKeyEnvVar string       `toml:"api_key_env_var"`
	ModelConfig  ModelConfig  `toml:"model_config"`
}

// MCPServerConfig describes one entry in the `mcp_servers` table: the
// command line used to spawn a tool-server child process.
type MCPServerConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// PlanExecuteConfig names the two provider ids a plan_execute strategy run
// switches between.
type PlanExecuteConfig struct {
	PlanningProvider  string `toml:"planning_provider"`
	ExecutionProvider string `toml:"execution_provider"`
}

// StrategiesConfig is the `strategies` table. PlanExecute is the only named
// strategy sub-table the spec requires; unrecognized strategy keys are
// preserved but unvalidated.
type StrategiesConfig struct {
	PlanExecute PlanExecuteConfig `toml:"plan_execute"`
}

// ConfigurationRecord is the parsed, as-yet-unvalidated contents of
// Volition.toml.
type ConfigurationRecord struct {
	DefaultProvider string                     `toml:"default_provider"`
	SystemPrompt    string                     `toml:"system_prompt"`
	Providers       map[string]ProviderConfig  `toml:"providers"`
	MCPServers      map[string]MCPServerConfig `toml:"mcp_servers"`
	Strategies      StrategiesConfig           `toml:"strategies"`
}

// Load reads and parses the configuration file at path. It does not
// validate cross-references — call Validate separately once the record is
// fully decoded, matching §4.7's "load, then validate" sequencing.
func Load(path string) (*ConfigurationRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &agent.ConfigError{Field: "", Message: fmt.Sprintf("read %s: %v", path, err)}
	}

	var record ConfigurationRecord
	if err := toml.Unmarshal(raw, &record); err != nil {
		return nil, &agent.ConfigError{Field: "", Message: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return &record, nil
}

// LoadFromWorkingDir discovers the project root from wd (walking upward for
// Volition.toml) and loads the configuration found there.
func LoadFromWorkingDir(wd string) (*ConfigurationRecord, string, error) {
	root, err := workspace.FindRoot(wd, FileName)
	if err != nil {
		return nil, "", &agent.ConfigError{Message: fmt.Sprintf("locate project root: %v", err)}
	}
	record, err := Load(filepath.Join(root, FileName))
	if err != nil {
		return nil, "", err
	}
	return record, root, nil
}

// Validate checks the cross-references §4.7 requires: default_provider must
// name a present provider, and every strategy-named provider must exist.
func (c *ConfigurationRecord) Validate() error {
	if c.DefaultProvider == "" {
		return &agent.ConfigError{Field: "default_provider", Message: "is required"}
	}
	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		return &agent.ConfigError{Field: "default_provider", Message: fmt.Sprintf("names unknown provider %q", c.DefaultProvider)}
	}

	pe := c.Strategies.PlanExecute
	if pe.PlanningProvider != "" {
		if _, ok := c.Providers[pe.PlanningProvider]; !ok {
			return &agent.ConfigError{Field: "strategies.plan_execute.planning_provider", Message: fmt.Sprintf("names unknown provider %q", pe.PlanningProvider)}
		}
	}
	if pe.ExecutionProvider != "" {
		if _, ok := c.Providers[pe.ExecutionProvider]; !ok {
			return &agent.ConfigError{Field: "strategies.plan_execute.execution_provider", Message: fmt.Sprintf("names unknown provider %q", pe.ExecutionProvider)}
		}
	}

	for id, p := range c.Providers {
		switch p.Type {
		case ProviderGemini, ProviderOpenAI, ProviderOllama:
		default:
			return &agent.ConfigError{Field: fmt.Sprintf("providers.%s.type", id), Message: fmt.Sprintf("unsupported provider type %q", p.Type)}
		}
	}
	return nil
}

// ResolveAPIKey reads a provider's API key from its configured environment
// variable, lazily — only called for providers actually being instantiated,
// never eagerly for the whole table (§4.7). Missing is only a failure for
// provider types that require a key.
func ResolveAPIKey(providerID string, p ProviderConfig) (string, error) {
	if p.APIKeyEnvVar == "" {
		if p.Type.RequiresAPIKey() {
			return "", &agent.ConfigError{Field: fmt.Sprintf("providers.%s.api_key_env_var", providerID), Message: "is required for this provider type"}
		}
		return "", nil
	}

	key, ok := os.LookupEnv(p.APIKeyEnvVar)
	if !ok || key == "" {
		if p.Type.RequiresAPIKey() {
			return "", &agent.ConfigError{Field: fmt.Sprintf("providers.%s.api_key_env_var", providerID), Message: fmt.Sprintf("environment variable %q is not set", p.APIKeyEnvVar)}
		}
		return "", nil
	}
	return key, nil
}
