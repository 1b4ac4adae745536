package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/PabloGalante/arcana/internal/domain"
)

// GeminiConfig selects the Gemini API (APIKey set) or Vertex AI (Project and
// Location set).
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
	Model    string
}

type GeminiClient struct {
	client    *genai.Client
	modelName string
	config    *genai.GenerateContentConfig
}

// NewGeminiClient creates a domain.LanguageModel backed by Gemini.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or ARCANA_GCP_PROJECT and ARCANA_GCP_LOCATION", domain.ErrConfiguration)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating genai client: %v", domain.ErrModelUnavailable, err)
	}

	temp := float32(0.9)
	topP := float32(0.95)

	return &GeminiClient{
		client:    client,
		modelName: modelName,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       &temp,
			TopP:              &topP,
			MaxOutputTokens:   int32(2048),
		},
	}, nil
}

// StartConversation implements domain.LanguageModel. The history lives in
// the returned value; nothing is kept server side.
func (g *GeminiClient) StartConversation(ctx context.Context) (domain.Conversation, error) {
	return &geminiConversation{g: g}, nil
}

type geminiConversation struct {
	g *GeminiClient

	mu      sync.Mutex
	history []*genai.Content
}

func (c *geminiConversation) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	contents := append(append([]*genai.Content(nil), c.history...), genai.NewContentFromText(text, genai.RoleUser))

	res, err := c.g.client.Models.GenerateContent(ctx, c.g.modelName, contents, c.g.config)
	if err != nil {
		return "", classify(err)
	}

	// only the text, never the raw structs
	reply := res.Text()
	if reply == "" {
		return "", fmt.Errorf("%w: gemini returned empty text", domain.ErrModelRequestFailed)
	}

	c.history = append(contents, genai.NewContentFromText(reply, genai.RoleModel))
	return reply, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	return fmt.Errorf("%w: gemini generate content: %w", domain.ErrModelRequestFailed, err)
}
