package ai

import (
	"fmt"

	"github.com/sentinelstack/sentinel-slice/internal/ai/mock"
	"github.com/sentinelstack/sentinel-slice/internal/ai/openai"
	"github.com/sentinelstack/sentinel-slice/internal/config"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

// NewProvider constructs the appropriate completion provider based on config.
// Called once at server startup. The mock provider exists so the service can
// run end-to-end without an API key.
func NewProvider(cfg config.AIConfig) (models.CompletionProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openai, mock", cfg.Provider)
	}
}
