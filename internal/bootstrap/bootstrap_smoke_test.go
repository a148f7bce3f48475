package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformlogging "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// writeBootConfig points logging at the test directory so init steps
// never write into the working tree.
func writeBootConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`log:
  log_level: error
  log_dir: %s
  log_file: boot.log
recording:
  enabled: false
`, filepath.Join(dir, "logs"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSmokeLoadConfigAndLogger(t *testing.T) {
	config, logger, err := LoadConfigAndLogger(writeBootConfig(t))
	require.NoError(t, err)
	require.NotNil(t, config)
	require.NotNil(t, logger)
	assert.Equal(t, "error", config.Log.Level)
	require.NoError(t, logger.Close())
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"archive:open-store",
		"asr:init-provider-factory",
		"summary:init-engine",
		"session:init-registry",
		"recording:init-recorder",
		"batch:init-processor",
	}
	require.Len(t, steps, len(want))
	for i, step := range steps {
		assert.Equal(t, want[i], step.ID, "step %d", i)
	}
}

func TestExecuteInitGraph(t *testing.T) {
	t.Setenv("ELEVEN_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	state := &appState{configPath: writeBootConfig(t)}
	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))

	require.NotNil(t, state.config)
	require.NotNil(t, state.logger)
	require.NotNil(t, state.observabilityShutdown)
	require.NotNil(t, state.store)
	require.NotNil(t, state.newProvider)
	require.NotNil(t, state.registry)
	require.NotNil(t, state.processor)
	assert.Nil(t, state.engine, "no OpenAI key, summaries stay extractive")
	assert.Nil(t, state.rec, "recording disabled in the test config")

	require.NoError(t, state.store.Close(context.Background()))
	require.NoError(t, state.observabilityShutdown(context.Background()))
	require.NoError(t, state.logger.Close())
}

func TestExecuteInitStepsRejectsUnmetDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "logging:init-provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency config:load not satisfied")
}

func TestProviderFactoryCredentials(t *testing.T) {
	t.Setenv("ELEVEN_API_KEY", "")
	config, logger, err := LoadConfigAndLogger(writeBootConfig(t))
	require.NoError(t, err)
	defer logger.Close()

	factory := NewProviderFactory(config, logger)

	_, err = factory("")
	require.Error(t, err, "no configured key and no override")

	provider, err := factory("job-key")
	require.NoError(t, err)
	assert.Equal(t, "elevenlabs", provider.Name())
	require.NoError(t, provider.Close())

	live := liveProviderFactory(config, factory)
	_, err = live("")
	require.EqualError(t, err, "ELEVEN_API_KEY not configured on server")
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logger, err := platformlogging.NewLogger(&platformlogging.Config{
		Level: "info",
		Dir:   tmp,
		File:  "graph.log",
	})
	require.NoError(t, err)

	logBootstrapGraph(InitGraph(), logger)
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(filepath.Join(tmp, "graph.log"))
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "initialisation graph")
	for _, step := range InitGraph() {
		assert.Contains(t, text, step.ID)
	}
}
