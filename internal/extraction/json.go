package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

// ErrEmptyResponse is returned when the model answers with no content.
var ErrEmptyResponse = errors.New("model returned empty response")

// decodeResult parses a model answer into a field bag. Code fences and
// chatter around the object are tolerated.
func decodeResult(raw string) (domain.ExtractionResult, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, ErrEmptyResponse
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return nil, fmt.Errorf("model response was not a JSON object: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("model response was not a JSON object")
	}
	return domain.ExtractionResult(result), nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost object if there is text around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
		}
	}

	return strings.TrimSpace(s)
}
