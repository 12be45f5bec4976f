package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// Provider names.
const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

// Provider selects and configures a model backend.
type Provider struct {
	Name    string
	APIKey  string
	BaseURL string // DeepSeek only
	Model   string
}

// New builds the extractor for p.
func New(ctx context.Context, p Provider) (pipeline.Extractor, error) {
	switch strings.ToLower(p.Name) {
	case ProviderDeepSeek, "":
		return NewDeepSeekExtractor(p.APIKey, p.BaseURL, p.Model), nil
	case ProviderGemini:
		return NewGeminiExtractor(ctx, p.APIKey, p.Model)
	}
	return nil, fmt.Errorf("unknown extraction provider %q", p.Name)
}
