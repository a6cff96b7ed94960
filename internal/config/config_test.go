package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcausality-go/deepcausality/internal/causality"
	"github.com/deepcausality-go/deepcausality/internal/causerr"
	"github.com/deepcausality-go/deepcausality/internal/contextgraph"
	"github.com/deepcausality-go/deepcausality/internal/effect"
	"github.com/deepcausality-go/deepcausality/internal/ethos"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsNegativeMaxSteps(t *testing.T) {
	cfg := Default()
	cfg.MaxSteps = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxSteps")
}

func TestValidate_RejectsNegativeAggregationWorkers(t *testing.T) {
	cfg := Default()
	cfg.AggregationWorkers = -5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AggregationWorkers")
}

func TestValidate_RejectsTracingEnabledWithoutEndpoint(t *testing.T) {
	cfg := Default()
	cfg.TracingEnabled = true
	cfg.TracingEndpoint = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TracingEndpoint")
}

func TestValidate_AllowsTracingEnabledWithEndpoint(t *testing.T) {
	cfg := Default()
	cfg.TracingEnabled = true
	cfg.TracingEndpoint = "localhost:4317"
	require.NoError(t, cfg.Validate())
}

func TestLoad_ParsesYAMLOverridesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	contents := "max_steps: 128\naggregation_workers: 4\nethos_default_allow: false\nlog_levels:\n  - \"default=info\"\n  - \"graph=debug\"\ntracing_enabled: true\ntracing_endpoint: \"localhost:4317\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.MaxSteps)
	assert.Equal(t, 4, cfg.AggregationWorkers)
	assert.False(t, cfg.EthosDefaultAllow)
	assert.Equal(t, []string{"default=info", "graph=debug"}, cfg.LogLevels)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, "localhost:4317", cfg.TracingEndpoint)
}

func TestLoad_AppliesEthosDefaultAllowToGlobalVerdict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ethos_default_allow: false\n"), 0o644))

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ethos.Deny, ethos.DefaultVerdict)

	// restore so other tests observing the package-level default aren't affected
	ethos.DefaultVerdict = ethos.Allow
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/engine.yaml")
	require.Error(t, err)
}

func TestParseLogLevels_SplitsDefaultAndPerPackageOverrides(t *testing.T) {
	defaultLevel, overrides := parseLogLevels([]string{"default=warn", "graph=debug", "csm=error"})
	assert.Equal(t, "warn", defaultLevel)
	assert.Equal(t, map[string]string{"graph": "debug", "csm": "error"}, overrides)
}

func TestParseLogLevels_BareLevelSetsDefault(t *testing.T) {
	defaultLevel, overrides := parseLogLevels([]string{"debug"})
	assert.Equal(t, "debug", defaultLevel)
	assert.Empty(t, overrides)
}

func TestConfig_NewGraphAppliesMaxStepsBudget(t *testing.T) {
	cfg := Default()
	cfg.MaxSteps = 2

	g := cfg.NewGraph()
	var last int
	for i := 0; i < 10; i++ {
		idx := g.AddCausaloid(causality.NewSingletonCausaloid(uint64(i), "noop", func(in causality.PE) causality.PE { return in }))
		if i > 0 {
			require.NoError(t, g.AddEdge(last, idx))
		}
		last = idx
	}

	_, err := g.ReasonAllCauses(effect.Pure[effect.EffectValue, *contextgraph.Context](effect.NoneValue()))
	require.Error(t, err)
	ce, ok := causerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, causerr.MaxStepsExceeded, ce.Code)
}

func TestConfig_ParallelOptionsReflectsAggregationWorkers(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.ParallelOptions().Parallel)

	cfg.AggregationWorkers = 4
	opts := cfg.ParallelOptions()
	assert.True(t, opts.Parallel)
	assert.Equal(t, 4, opts.Workers)
}

func TestConfigError_ErrorMessage(t *testing.T) {
	err := NewConfigError("boom")
	assert.Equal(t, "boom", err.Error())
}
