// File: internal/llmclient/factory.go
package llmclient

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
	"github.com/halcyonsec/guardian-cli/internal/config"
)

// ErrNoCredentials indicates no API key is configured for the LLM backend.
// Callers treat this as "stage contributes nothing", never as fatal.
var ErrNoCredentials = errors.New("llmclient: no API key configured")

// New creates an LLM client for the configured provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("llmclient: unsupported provider %q", cfg.Provider)
	}
}
