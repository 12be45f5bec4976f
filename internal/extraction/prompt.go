// Package extraction asks a language model to turn a free-text message
// into transaction fields.
package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

const (
	// MaxAccountHints caps the account names placed in the prompt.
	MaxAccountHints = 20

	// MaxCategoryHints caps the category names placed in the prompt.
	MaxCategoryHints = 50
)

const systemPrompt = "You are a transaction parser. Output a JSON object only. " +
	"Use the schema below and do not add extra keys."

// responseSchema is rendered in field order, so it is a struct not a map.
type responseSchema struct {
	Date          string   `json:"date"`
	Amount        string   `json:"amount"`
	Currency      string   `json:"currency"`
	Payee         string   `json:"payee"`
	Account       string   `json:"account"`
	Category      string   `json:"category"`
	IsReceived    string   `json:"is_received"`
	Confidence    string   `json:"confidence"`
	MissingFields []string `json:"missing_fields"`
}

var schemaJSON = func() string {
	b, _ := json.Marshal(responseSchema{
		Date:          "YYYY-MM-DD or null",
		Amount:        "number",
		Currency:      "string",
		Payee:         "string",
		Account:       "string or null",
		Category:      "string or null",
		IsReceived:    "boolean",
		Confidence:    "number between 0 and 1",
		MissingFields: []string{"date", "amount", "payee", "account"},
	})
	return string(b)
}()

// BuildPrompt returns the system and user messages for text.
func BuildPrompt(text string, hints pipeline.ExtractionContext) (system, user string) {
	rules := fmt.Sprintf("Today is %s in the user's timezone (%s). ", hints.Today, hints.Timezone) +
		"If no date is mentioned, use today. " +
		"Return amount as a positive number. Use is_received=true for income. " +
		fmt.Sprintf("Default currency is %s if not specified. ", hints.DefaultCurrency) +
		"If you are unsure about a field, set it to null and include it in missing_fields. " +
		"Account must match one of the provided account names when possible. " +
		"Category should match a provided category name when possible."

	var b strings.Builder
	fmt.Fprintf(&b, "Text: %s\n\n", text)
	fmt.Fprintf(&b, "Accounts: %s\n\n", joinHints(hints.AccountLabels, MaxAccountHints))
	fmt.Fprintf(&b, "Categories: %s\n\n", joinHints(hints.CategoryNames, MaxCategoryHints))
	fmt.Fprintf(&b, "Schema: %s\n\n", schemaJSON)
	fmt.Fprintf(&b, "Rules: %s", rules)

	return systemPrompt, b.String()
}

func joinHints(items []string, limit int) string {
	if len(items) == 0 {
		return "(none)"
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}
