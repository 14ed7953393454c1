package embedding

import (
	"fmt"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
)

// Provider constants
const (
	ProviderService = "service"
	ProviderOpenAI  = "openai"
	ProviderMock    = "mock"
)

// NewClient creates an embedding client based on the provider name.
// Returns an error if the provider is unknown or its settings are missing.
func NewClient(provider, apiKey, serviceURL string, dimensions int) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderService:
		if serviceURL == "" {
			return nil, fmt.Errorf("EMBEDDING_SERVICE_URL is required for the embedding service provider")
		}
		return NewServiceClient(serviceURL), nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey, dimensions), nil

	case ProviderMock:
		m := NewMockClient()
		if dimensions > 0 {
			m.Dimensions = dimensions
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: service, openai, mock)", provider)
	}
}
