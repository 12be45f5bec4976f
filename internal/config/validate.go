package config

import (
	"fmt"
	"strings"
)

// ConfigurationError lists everything that prevents startup.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required env vars: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, "; "))
	}
	return strings.Join(parts, "; ")
}

// Scope selects which parts of the config a command needs.
type Scope int

const (
	ScopeTelegram Scope = iota
	ScopeLedger
	ScopeExtraction
	ScopePending
)

// AllScopes is what the bot itself needs.
var AllScopes = []Scope{ScopeTelegram, ScopeLedger, ScopeExtraction, ScopePending}

// Validate checks the requested scopes, or all of them when none are given.
// It returns a *ConfigurationError or nil.
func (c *Config) Validate(scopes ...Scope) error {
	if len(scopes) == 0 {
		scopes = AllScopes
	}

	e := &ConfigurationError{}
	for _, s := range scopes {
		switch s {
		case ScopeTelegram:
			c.validateTelegram(e)
		case ScopeLedger:
			if c.LunchMoney.Token == "" {
				e.Missing = append(e.Missing, "LUNCH_MONEY_TOKEN")
			}
		case ScopeExtraction:
			c.validateExtraction(e)
		case ScopePending:
			c.validatePending(e)
		}
	}

	if len(e.Missing) == 0 && len(e.Invalid) == 0 {
		return nil
	}
	return e
}

func (c *Config) validateTelegram(e *ConfigurationError) {
	if c.Telegram.Token == "" {
		e.Missing = append(e.Missing, "TELEGRAM_BOT_TOKEN")
	}
	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" {
			e.Missing = append(e.Missing, "WEBHOOK_URL")
		}
	default:
		e.Invalid = append(e.Invalid, fmt.Sprintf("TELEGRAM_MODE %q must be %s or %s", c.Telegram.Mode, ModePolling, ModeWebhook))
	}
}

func (c *Config) validateExtraction(e *ConfigurationError) {
	switch c.Extraction.Provider {
	case ProviderDeepSeek:
		if c.Extraction.DeepSeekAPIKey == "" {
			e.Missing = append(e.Missing, "DEEPSEEK_API_KEY")
		}
	case ProviderGemini:
		if c.Extraction.GeminiAPIKey == "" {
			e.Missing = append(e.Missing, "GEMINI_API_KEY")
		}
	default:
		e.Invalid = append(e.Invalid, fmt.Sprintf("EXTRACTION_PROVIDER %q must be %s or %s", c.Extraction.Provider, ProviderDeepSeek, ProviderGemini))
	}
}

func (c *Config) validatePending(e *ConfigurationError) {
	switch c.Pending.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Pending.RedisURL == "" {
			e.Missing = append(e.Missing, "REDIS_URL")
		}
	default:
		e.Invalid = append(e.Invalid, fmt.Sprintf("PENDING_STORE %q must be %s or %s", c.Pending.Backend, BackendMemory, BackendRedis))
	}
}
