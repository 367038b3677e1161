package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded by Load, earlier files taking precedence.
var DefaultEnvFiles = []string{".env.local", ".env"}

// LoadEnv loads the given dotenv files (DefaultEnvFiles when none are given).
// Missing files are skipped and variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// APIKey returns the key configured for the model provider, falling back to
// the provider's conventional environment variable.
func (c *Config) APIKey() string {
	if c.Model.APIKey != "" {
		return c.Model.APIKey
	}
	switch c.Model.Provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
