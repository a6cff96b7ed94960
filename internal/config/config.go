// Package config implements the engine-wide configuration surface: YAML
// configuration loaded with koanf, validated, and wired into the
// components it configures (CausaloidGraph traversal budget, Collection
// parallel-aggregation worker pool, Effect Ethos default verdict,
// per-package log levels).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/deepcausality-go/deepcausality/internal/causality"
	"github.com/deepcausality-go/deepcausality/internal/ethos"
	"github.com/deepcausality-go/deepcausality/internal/logging"
)

// Config holds every engine tunable: graph traversal budget, the
// Collection parallel-aggregation worker pool size, the Effect Ethos
// default-allow policy, per-package log levels, and tracing toggle/
// endpoint.
type Config struct {
	// MaxSteps bounds CausaloidGraph traversal (spec.md §4.3's
	// `max_steps`). Zero disables the budget.
	MaxSteps int `yaml:"max_steps"`

	// AggregationWorkers bounds the worker pool used by the optional
	// parallel Collection aggregation mode (spec.md §5). Zero means
	// unbounded.
	AggregationWorkers int `yaml:"aggregation_workers"`

	// EthosDefaultAllow mirrors ethos.DefaultVerdict: true means a tag
	// filter with no surviving rule resolves to Allow (spec.md §9's
	// documented, configurable default-Allow policy).
	EthosDefaultAllow bool `yaml:"ethos_default_allow"`

	// LogLevels is a list of glob-pattern level overrides, same format as
	// the teacher's LogLevelFlags: ["default=info", "graph.*=debug"].
	LogLevels []string `yaml:"log_levels"`

	// TracingEnabled toggles the OpenTelemetry tracer provider.
	TracingEnabled bool `yaml:"tracing_enabled"`
	// TracingEndpoint is the OTLP gRPC endpoint for trace export.
	TracingEndpoint string `yaml:"tracing_endpoint"`
}

// Default returns a Config with conservative defaults: a traversal budget
// large enough for ordinary graphs but not unbounded, sequential
// aggregation, default-allow ethos, info-level logging, tracing disabled.
func Default() Config {
	return Config{
		MaxSteps:           4096,
		AggregationWorkers: 0,
		EthosDefaultAllow:  true,
		LogLevels:          []string{"default=info"},
		TracingEnabled:     false,
	}
}

// Load reads and parses a YAML configuration file at path using koanf,
// merges it over Default(), validates the result, and applies
// EthosDefaultAllow to the global ethos.DefaultVerdict.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load engine config from %q: %w", path, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse engine config from %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.apply()
	return &cfg, nil
}

func (c *Config) apply() {
	if c.EthosDefaultAllow {
		ethos.DefaultVerdict = ethos.Allow
	} else {
		ethos.DefaultVerdict = ethos.Deny
	}

	defaultLevel, packageLevels := parseLogLevels(c.LogLevels)
	_ = logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevels splits LogLevels entries ("level" or "package=level",
// same format as the teacher's LogLevelFlags) into a default level string
// and a per-package override map for logging.Initialize.
func parseLogLevels(entries []string) (string, map[string]string) {
	defaultLevel := "info"
	overrides := make(map[string]string)
	for _, entry := range entries {
		if !strings.Contains(entry, "=") {
			defaultLevel = entry
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		pkg, level := parts[0], parts[1]
		if pkg == "default" {
			defaultLevel = level
			continue
		}
		overrides[pkg] = level
	}
	return defaultLevel, overrides
}

// Validate checks every field's domain constraint: MaxSteps and
// AggregationWorkers must be non-negative, and TracingEndpoint must be set
// whenever TracingEnabled is true.
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return NewConfigError("MaxSteps must be non-negative")
	}

	if c.AggregationWorkers < 0 {
		return NewConfigError("AggregationWorkers must be non-negative")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("TracingEndpoint must be set when tracing is enabled")
	}

	return nil
}

// NewGraph builds a CausaloidGraph with its traversal budget set from
// MaxSteps, so a loaded Config actually bounds graph traversal instead of
// just carrying the number.
func (c *Config) NewGraph() *causality.CausaloidGraph {
	g := causality.NewCausaloidGraph()
	g.SetMaxSteps(c.MaxSteps)
	return g
}

// ParallelOptions builds the aggregation options a Collection causaloid
// should evaluate with: parallel aggregation bounded by AggregationWorkers
// workers, or sequential aggregation when AggregationWorkers is zero.
func (c *Config) ParallelOptions() causality.ParallelOptions {
	if c.AggregationWorkers == 0 {
		return causality.ParallelOptions{}
	}
	return causality.ParallelOptions{Parallel: true, Workers: c.AggregationWorkers}
}

// ConfigError represents a configuration validation failure.
type ConfigError struct {
	message string
}

// NewConfigError constructs a ConfigError.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.message
}
