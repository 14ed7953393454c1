package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
)

// MockClient is a configurable tutor client for testing.
// Set Response/Error to control what Complete returns.
type MockClient struct {
	Response string
	Error    error

	mu sync.Mutex
	// Call tracking for assertions
	Calls []domain.TutorRequest
}

func NewMockClient() *MockClient {
	return &MockClient{
		Response: "# Answer\n\n## Idea\n\n- mock explanation\n\n## Summary\n\n**Mock** answer.",
	}
}

func (c *MockClient) Complete(ctx context.Context, req domain.TutorRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, req)
	if c.Error != nil {
		return "", c.Error
	}
	return c.Response, nil
}

// LastCall returns the most recent request, or false if there was none.
func (c *MockClient) LastCall() (domain.TutorRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return domain.TutorRequest{}, false
	}
	return c.Calls[len(c.Calls)-1], true
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Response = NewMockClient().Response
	c.Error = nil
	c.Calls = nil
}
