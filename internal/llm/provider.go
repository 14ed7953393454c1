package llm

import (
	"fmt"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"go.uber.org/zap"
)

// Provider constants
const (
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
	ProviderCerebras = "cerebras"
	ProviderMock     = "mock"
)

// NewClient creates a tutor client based on the provider name. API keys are
// not checked here; they are resolved per request.
func NewClient(provider, baseURL string, logger *zap.Logger) (domain.TutorClient, error) {
	switch provider {
	case ProviderGroq, ProviderOpenAI, ProviderCerebras:
		if baseURL == "" {
			return nil, fmt.Errorf("TUTOR_BASE_URL is required for %s provider", provider)
		}
		return NewChatClient(baseURL, logger), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown tutor provider: %s (valid options: groq, openai, cerebras, mock)", provider)
	}
}
