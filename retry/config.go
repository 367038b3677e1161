package retry

import (
	"fmt"
	"strings"
	"time"
)

// Strategy names a backoff shape.
type Strategy string

const (
	StrategyConstant    Strategy = "constant"
	StrategyExponential Strategy = "exponential"
)

// Config is the declarative form of a policy, as read from configuration files.
type Config struct {
	Strategy   Strategy      `yaml:"strategy" json:"strategy"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	Delay      time.Duration `yaml:"delay" json:"delay"`
	Multiplier float64       `yaml:"multiplier" json:"multiplier"`
	MaxDelay   time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultConfig returns three retries with a constant 500ms delay.
func DefaultConfig() Config {
	return Config{Strategy: StrategyConstant, MaxRetries: 3, Delay: 500 * time.Millisecond}
}

// Validate checks the config for impossible values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("retry: max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.Delay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("retry: delays must be >= 0")
	}
	switch Strategy(strings.ToLower(string(c.Strategy))) {
	case "", StrategyConstant, StrategyExponential:
		return nil
	default:
		return fmt.Errorf("retry: unknown strategy %q", c.Strategy)
	}
}

// Policy builds the policy described by c. An empty strategy means constant.
func (c Config) Policy() (Policy, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if Strategy(strings.ToLower(string(c.Strategy))) == StrategyExponential {
		return Exponential(c.MaxRetries, c.Delay, c.Multiplier, c.MaxDelay), nil
	}
	return Constant(c.MaxRetries, c.Delay), nil
}
