// Package llm is the text-completion collaborator used for article
// enrichment. It is provider-agnostic: a local Ollama runtime and an
// OpenAI-compatible cloud endpoint are interchangeable behind the single
// Provider contract, selected by configuration at construction time.
package llm

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
)

// ErrMissingCredential is returned once per enrichment path when the
// selected provider has no API key configured. Callers must not retry.
var ErrMissingCredential = errors.New("no credential configured for selected llm provider")

// DefaultTimeout bounds a single completion call. A stuck call degrades one
// article's enrichment and nothing else.
const DefaultTimeout = 30 * time.Second

// Provider turns a prompt into a completion.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Config selects and parameterizes a provider. Credentials come from the
// environment (see utils/dotenv), endpoints and model names from app config.
type Config struct {
	// "ollama" or "openai"
	Provider string `yaml:"provider"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	// Env var holding the API key for cloud providers.
	APIKeyEnv string `yaml:"api_key_env"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NewProvider constructs the configured provider. Selection happens here,
// never by runtime type inspection.
func NewProvider(c Config) (Provider, error) {
	switch c.Provider {
	case "", "ollama":
		return NewOllamaProvider(c.Endpoint, c.Model, c.timeout()), nil
	case "openai":
		keyEnv := c.APIKeyEnv
		if keyEnv == "" {
			keyEnv = "OPENAI_API_KEY"
		}
		key := os.Getenv(keyEnv)
		if key == "" {
			return nil, ErrMissingCredential
		}
		return NewOpenAIProvider(c.Endpoint, c.Model, key, c.timeout()), nil
	default:
		return nil, errors.Errorf("unknown llm provider %q", c.Provider)
	}
}
