package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-gateway/internal/common"
)

// Supported providers.
const (
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
)

// NewClient creates an LLM client based on the provided configuration.
// The offline provider returns a nil client so every request takes the fallback path.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		return newGeminiClient(cfg)
	case ProviderOffline, "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}
