package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/arcana/internal/adapters/llm"
	"github.com/PabloGalante/arcana/internal/domain"
)

func TestMockLLMRecordsPrompts(t *testing.T) {
	ctx := context.Background()
	m := llm.NewMockLLM()

	conv, err := m.StartConversation(ctx)
	require.NoError(t, err)

	reply, err := conv.Send(ctx, "what do the cards say?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	assert.Equal(t, []string{"what do the cards say?"}, m.Prompts())
}

func TestMockLLMCustomReply(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := &llm.MockLLM{Reply: func(string) (string, error) { return "", boom }}

	conv, err := m.StartConversation(ctx)
	require.NoError(t, err)
	_, err = conv.Send(ctx, "hi")
	assert.ErrorIs(t, err, boom)
}

func TestMockLLMCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv, err := llm.NewMockLLM().StartConversation(ctx)
	require.NoError(t, err)
	_, err = conv.Send(ctx, "hi")
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestGeminiRequiresCredentials(t *testing.T) {
	_, err := llm.NewGeminiClient(context.Background(), llm.GeminiConfig{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSystemInstructionNamesPersona(t *testing.T) {
	assert.Contains(t, llm.SystemInstruction(), "Arcana")
}
