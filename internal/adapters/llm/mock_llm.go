package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/arcana/internal/domain"
)

// MockLLM is a local stand-in for Gemini. Replies are produced by Reply when
// set, otherwise a canned reading is returned. Every prompt is recorded.
type MockLLM struct {
	Reply func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) StartConversation(ctx context.Context) (domain.Conversation, error) {
	return mockConversation{m: m}, nil
}

// Prompts returns every text sent so far, in order.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

type mockConversation struct {
	m *MockLLM
}

func (c mockConversation) Send(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}

	c.m.mu.Lock()
	c.m.prompts = append(c.m.prompts, text)
	reply := c.m.Reply
	c.m.mu.Unlock()

	if reply != nil {
		return reply(text)
	}
	if strings.Contains(text, "single-card") && strings.Contains(text, "multi-card") {
		return "single-card", nil
	}
	return "The cards are quiet today, but they lean toward patience and a gentle new start.", nil
}
