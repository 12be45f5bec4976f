package extraction

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the part of *genai.Models the extractor needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor extracts transactions with a Gemini model.
type GeminiExtractor struct {
	models contentGenerator
	model  string
}

// NewGeminiExtractor creates a Gemini API client for apiKey.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiExtractor: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}

	return &GeminiExtractor{models: client.Models, model: model}, nil
}

// ModelName reports the configured model.
func (g *GeminiExtractor) ModelName() string { return g.model }

// Extract implements pipeline.Extractor.
func (g *GeminiExtractor) Extract(ctx context.Context, text string, hints pipeline.ExtractionContext) (domain.ExtractionResult, error) {
	system, user := BuildPrompt(text, hints)

	temperature := float32(0)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	result, err := decodeResult(raw)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("model", g.model).Str("raw_response", raw).Msg("Failed to decode Gemini JSON")
		return nil, err
	}
	return result, nil
}

var _ pipeline.Extractor = (*GeminiExtractor)(nil)
