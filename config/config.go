// Package config loads miniagent settings from YAML files.
//
// Files may reference environment variables as ${VAR}, ${VAR:-default} or
// $VAR. Variables from .env.local and .env in the working directory are
// loaded first and never override the process environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kforcode-ai/miniagent/agent"
	"github.com/kforcode-ai/miniagent/logging"
	"github.com/kforcode-ai/miniagent/retry"
)

// Provider names accepted in model.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderScripted  = "scripted"
)

// Config is the root of a configuration file.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Model   ModelConfig   `yaml:"model"`
	Retry   retry.Config  `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`

	// ToolRetry overrides Retry for tool bodies.
	ToolRetry *retry.Config `yaml:"tool_retry"`
}

// AgentConfig mirrors agent.Config in file form.
type AgentConfig struct {
	Name             string `yaml:"name"`
	SystemPrompt     string `yaml:"system_prompt"`
	MaxIterations    int    `yaml:"max_iterations"`
	Stream           *bool  `yaml:"stream"`
	MaxParallelTools int    `yaml:"max_parallel_tools"`
}

// ModelConfig selects and tunes the model client.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// LoggingConfig configures the slog backed logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	def := agent.DefaultConfig()
	if c.Agent.Name == "" {
		c.Agent.Name = def.Name
	}
	if c.Agent.SystemPrompt == "" {
		c.Agent.SystemPrompt = def.SystemPrompt
	}
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = def.MaxIterations
	}
	if c.Agent.Stream == nil {
		stream := def.StreamByDefault
		c.Agent.Stream = &stream
	}

	if c.Model.Provider == "" {
		c.Model.Provider = ProviderOpenAI
	}
	c.Model.Provider = strings.ToLower(c.Model.Provider)
	if c.Model.Temperature == 0 {
		c.Model.Temperature = 0.7
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 4096
	}

	if c.Retry == (retry.Config{}) {
		c.Retry = retry.DefaultConfig()
	}
	if c.Retry.Strategy == "" {
		c.Retry.Strategy = retry.StrategyConstant
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "miniagent"
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be >= 1, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.MaxParallelTools < 0 {
		errs = append(errs, fmt.Errorf("agent.max_parallel_tools must be >= 0, got %d", c.Agent.MaxParallelTools))
	}
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderScripted:
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not supported", c.Model.Provider))
	}
	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}
	if c.ToolRetry != nil {
		if err := c.ToolRetry.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tool_retry: %w", err))
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if f := c.Logging.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", f))
	}
	return errors.Join(errs...)
}

// AgentConfig builds the agent configuration described by c.
func (c *Config) AgentConfig() (agent.Config, error) {
	policy, err := c.Retry.Policy()
	if err != nil {
		return agent.Config{}, fmt.Errorf("retry: %w", err)
	}
	cfg := agent.DefaultConfig()
	cfg.Name = c.Agent.Name
	cfg.SystemPrompt = c.Agent.SystemPrompt
	cfg.MaxIterations = c.Agent.MaxIterations
	cfg.MaxParallelTools = c.Agent.MaxParallelTools
	cfg.RetryPolicy = policy
	cfg.ToolRetryPolicy = nil
	if c.Agent.Stream != nil {
		cfg.StreamByDefault = *c.Agent.Stream
	}
	if c.ToolRetry != nil {
		toolPolicy, err := c.ToolRetry.Policy()
		if err != nil {
			return agent.Config{}, fmt.Errorf("tool_retry: %w", err)
		}
		cfg.ToolRetryPolicy = toolPolicy
	}
	return cfg, nil
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Logging.Format
	cfg.AddSource = c.Logging.AddSource
	return cfg, nil
}
