package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volition-run/volition/internal/agent"
)

const sampleTOML = `
default_provider = "main"
system_prompt = "You are a helpful coding agent."

[providers.main]
type = "openai"
api_key_env_var = "OPENAI_API_KEY"

[providers.main.model_config]
model_name = "gpt-4.1"

[providers.local]
type = "ollama"

[providers.local.model_config]
model_name = "llama3"
endpoint = "http://localhost:11434"

[mcp_servers.fs]
command = "volition-fs-server"
args = ["--root", "."]

[strategies.plan_execute]
planning_provider = "main"
execution_provider = "local"
`

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesRecognizedKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleTOML)

	record, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", record.DefaultProvider)
	assert.Equal(t, ProviderOpenAI, record.Providers["main"].Type)
	assert.Equal(t, "gpt-4.1", record.Providers["main"].ModelConfig.ModelName)
	assert.Equal(t, "volition-fs-server", record.MCPServers["fs"].Command)
	assert.Equal(t, "main", record.Strategies.PlanExecute.PlanningProvider)
	assert.Equal(t, "local", record.Strategies.PlanExecute.ExecutionProvider)
}

func TestLoad_MissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	var ce *agent.ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestValidate_RejectsUnknownDefaultProvider(t *testing.T) {
	record := &ConfigurationRecord{DefaultProvider: "ghost", Providers: map[string]ProviderConfig{}}
	err := record.Validate()
	require.Error(t, err)
	var ce *agent.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "default_provider", ce.Field)
}

func TestValidate_RejectsUnknownStrategyProvider(t *testing.T) {
	record := &ConfigurationRecord{
		DefaultProvider: "main",
		Providers:       map[string]ProviderConfig{"main": {Type: ProviderOpenAI}},
		Strategies:      StrategiesConfig{PlanExecute: PlanExecuteConfig{PlanningProvider: "ghost", ExecutionProvider: "main"}},
	}
	err := record.Validate()
	require.Error(t, err)
}

func TestValidate_AcceptsWellFormedRecord(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleTOML)
	record, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, record.Validate())
}

func TestResolveAPIKey_LazyLookupSucceeds(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "secret-value")
	key, err := ResolveAPIKey("main", ProviderConfig{Type: ProviderOpenAI, APIKeyEnvVar: "TEST_PROVIDER_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "secret-value", key)
}

func TestResolveAPIKey_MissingEnvVarFailsForKeyedProvider(t *testing.T) {
	_, err := ResolveAPIKey("main", ProviderConfig{Type: ProviderOpenAI, APIKeyEnvVar: "DOES_NOT_EXIST_12345"})
	require.Error(t, err)
}

func TestResolveAPIKey_OllamaDoesNotRequireKey(t *testing.T) {
	key, err := ResolveAPIKey("local", ProviderConfig{Type: ProviderOllama})
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestLoadFromWorkingDir_WalksUpToProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, sampleTOML)

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	record, foundRoot, err := LoadFromWorkingDir(nested)
	require.NoError(t, err)
	assert.Equal(t, root, foundRoot)
	assert.Equal(t, "main", record.DefaultProvider)
}
