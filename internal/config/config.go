// Package config loads the bot settings from the environment and .env files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	Telegram   TelegramConfig
	LunchMoney LunchMoneyConfig
	Extraction ExtractionConfig
	Defaults   DefaultsConfig
	Pending    PendingConfig
	Audit      AuditConfig
	Notion     NotionConfig
	Logger     LoggerConfig
	Dispatch   DispatchConfig

	// Warnings collects non-fatal problems found while loading. They are
	// logged once a logger exists.
	Warnings []string
}

type TelegramConfig struct {
	Token         string
	Mode          string // polling or webhook
	WebhookURL    string
	WebhookSecret string
	ListenAddr    string
}

type LunchMoneyConfig struct {
	Token             string
	BaseURL           string
	RequestsPerSecond float64
}

type ExtractionConfig struct {
	Provider        string // deepseek or gemini
	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string
	GeminiAPIKey    string
	GeminiModel     string
}

type DefaultsConfig struct {
	Timezone  string
	Currency  string
	AccountID *int64
	TokenMap  map[string]int64
}

type PendingConfig struct {
	Backend  string // memory or redis
	RedisURL string
	TTL      time.Duration
}

type AuditConfig struct {
	BigQueryProject string
	BigQueryDataset string
	CredentialsFile string
}

// Enabled reports whether BigQuery auditing is configured.
func (a AuditConfig) Enabled() bool { return a.BigQueryProject != "" }

type NotionConfig struct {
	Token      string
	DatabaseID string
}

// Enabled reports whether the Notion mirror is configured.
func (n NotionConfig) Enabled() bool { return n.Token != "" && n.DatabaseID != "" }

type LoggerConfig struct {
	Level  string
	Format string
}

type DispatchConfig struct {
	MaxBacklog int
}

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Load reads the first .env file found (if any) and then the environment.
func Load() *Config {
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token:         getEnv("TELEGRAM_BOT_TOKEN", ""),
			Mode:          strings.ToLower(getEnv("TELEGRAM_MODE", ModePolling)),
			WebhookURL:    getEnv("WEBHOOK_URL", ""),
			WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
			ListenAddr:    getEnv("WEBHOOK_LISTEN_ADDR", ":8080"),
		},
		LunchMoney: LunchMoneyConfig{
			Token:   getEnv("LUNCH_MONEY_TOKEN", ""),
			BaseURL: getEnv("LUNCH_MONEY_BASE_URL", "https://dev.lunchmoney.app"),
		},
		Extraction: ExtractionConfig{
			Provider:        strings.ToLower(getEnv("EXTRACTION_PROVIDER", ProviderDeepSeek)),
			DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekBaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Pending: PendingConfig{
			Backend:  strings.ToLower(getEnv("PENDING_STORE", BackendMemory)),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Audit: AuditConfig{
			BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
			BigQueryDataset: getEnv("BIGQUERY_DATASET", "finance"),
			CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		},
		Notion: NotionConfig{
			Token:      getEnv("NOTION_TOKEN", ""),
			DatabaseID: getEnv("NOTION_DATABASE_ID", ""),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	cfg.Defaults.Timezone = cfg.parseTimezone(getEnv("TIMEZONE", "UTC"))
	cfg.Defaults.Currency = cfg.parseCurrency(getEnv("DEFAULT_CURRENCY", "USD"))
	cfg.Defaults.AccountID = cfg.parseOptionalID("DEFAULT_ACCOUNT_ID", getEnv("DEFAULT_ACCOUNT_ID", ""))

	tokenMap, warnings := ParseTokenMap(getEnv("ACCOUNT_TOKEN_MAP", ""))
	cfg.Defaults.TokenMap = tokenMap
	cfg.Warnings = append(cfg.Warnings, warnings...)

	cfg.Pending.TTL = cfg.parseDuration("PENDING_TTL", getEnv("PENDING_TTL", "24h"), 24*time.Hour)
	cfg.LunchMoney.RequestsPerSecond = cfg.parseFloat("LUNCH_MONEY_RPS", getEnv("LUNCH_MONEY_RPS", "2"), 2)
	cfg.Dispatch.MaxBacklog = cfg.parseInt("MAX_CONVERSATION_BACKLOG", getEnv("MAX_CONVERSATION_BACKLOG", "16"), 16)

	return cfg
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) parseTimezone(tz string) string {
	if _, err := time.LoadLocation(tz); err != nil {
		c.warnf("TIMEZONE %q is invalid, using UTC", tz)
		return "UTC"
	}
	return tz
}

func (c *Config) parseCurrency(code string) string {
	code = strings.ToUpper(code)
	if !currencyCode.MatchString(code) {
		c.warnf("DEFAULT_CURRENCY %q is not a 3-letter code, using USD", code)
		return "USD"
	}
	return code
}

func (c *Config) parseOptionalID(key, raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.warnf("%s %q is not an integer, ignoring it", key, raw)
		return nil
	}
	return &id
}

func (c *Config) parseDuration(key, raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		c.warnf("%s %q is not a positive duration, using %s", key, raw, def)
		return def
	}
	return d
}

func (c *Config) parseFloat(key, raw string, def float64) float64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		c.warnf("%s %q is not a non-negative number, using %v", key, raw, def)
		return def
	}
	return f
}

func (c *Config) parseInt(key, raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.warnf("%s %q is not a positive integer, using %d", key, raw, def)
		return def
	}
	return n
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// APIKey returns the key of the selected extraction provider.
func (e ExtractionConfig) APIKey() string {
	if e.Provider == ProviderGemini {
		return e.GeminiAPIKey
	}
	return e.DeepSeekAPIKey
}

// Model returns the model of the selected extraction provider.
func (e ExtractionConfig) Model() string {
	if e.Provider == ProviderGemini {
		return e.GeminiModel
	}
	return e.DeepSeekModel
}
