package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

const (
	// DefaultDeepSeekBaseURL is the OpenAI-compatible DeepSeek endpoint.
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"

	// DefaultDeepSeekModel is used when no model is configured.
	DefaultDeepSeekModel = "deepseek-chat"

	defaultTimeout = 60 * time.Second
)

// DeepSeekExtractor calls a chat-completions endpoint in JSON mode.
type DeepSeekExtractor struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewDeepSeekExtractor creates an extractor. Empty baseURL and model use
// the DeepSeek defaults.
func NewDeepSeekExtractor(apiKey, baseURL, model string) *DeepSeekExtractor {
	if baseURL == "" {
		baseURL = DefaultDeepSeekBaseURL
	}
	if model == "" {
		model = DefaultDeepSeekModel
	}
	return &DeepSeekExtractor{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// ModelName reports the configured model.
func (d *DeepSeekExtractor) ModelName() string { return d.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract implements pipeline.Extractor.
func (d *DeepSeekExtractor) Extract(ctx context.Context, text string, hints pipeline.ExtractionContext) (domain.ExtractionResult, error) {
	system, user := BuildPrompt(text, hints)

	body, err := json.Marshal(chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepseek request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode deepseek response: %w", err)
	}
	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	content := chat.Choices[0].Message.Content
	result, err := decodeResult(content)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("model", d.model).Str("raw_response", content).Msg("Failed to decode DeepSeek JSON")
		return nil, err
	}
	return result, nil
}

var _ pipeline.Extractor = (*DeepSeekExtractor)(nil)
