package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
)

const defaultMockReply = "Mock reply"

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what Complete returns.
type MockClient struct {
	mu sync.Mutex

	CompleteResponse string
	CompleteError    error

	// Call tracking for assertions
	CompleteCalls [][]domain.Message
}

func NewMockClient() *MockClient {
	return &MockClient{CompleteResponse: defaultMockReply}
}

func (c *MockClient) Complete(ctx context.Context, conversation []domain.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CompleteCalls = append(c.CompleteCalls, conversation)
	if c.CompleteError != nil {
		return "", c.CompleteError
	}
	return c.CompleteResponse, nil
}

// Calls returns the number of Complete calls so far.
func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.CompleteCalls)
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CompleteResponse = defaultMockReply
	c.CompleteError = nil
	c.CompleteCalls = nil
}
