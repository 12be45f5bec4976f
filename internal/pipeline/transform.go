package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
)

var (
	strictDate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	currencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// Fields is the sanitized view of an extraction result.
type Fields struct {
	Date       civil.Date
	Amount     float64 // absolute value
	Currency   string  // upper case
	Payee      string
	Account    string
	Category   string
	IsReceived bool

	// Advisory only.
	Confidence *float64
	Missing    []string
}

// SanitizeOptions carries the defaults applied while sanitizing.
type SanitizeOptions struct {
	Timezone        string
	DefaultCurrency string
	Now             time.Time
}

// SanitizeExtraction converts the untrusted model output into Fields.
// A missing payee or amount is a *ValidationError.
func SanitizeExtraction(ctx context.Context, raw domain.ExtractionResult, opts SanitizeOptions) (Fields, error) {
	var f Fields

	payee, ok := SafeText(raw["payee"])
	if !ok {
		return Fields{}, &ValidationError{Field: "payee"}
	}
	f.Payee = payee

	amount, ok := SafeNumber(raw["amount"])
	if !ok {
		return Fields{}, &ValidationError{Field: "amount"}
	}
	f.Amount = math.Abs(amount)

	f.Currency = strings.ToUpper(defaultString(opts.DefaultCurrency, DefaultCurrency))
	if cur, ok := SafeText(raw["currency"]); ok {
		if currencyCode.MatchString(cur) {
			f.Currency = strings.ToUpper(cur)
		} else {
			log := logger.FromContext(ctx)
			log.Debug().Str("currency", cur).Msg("Ignoring non ISO currency from model")
		}
	}

	f.Account, _ = SafeText(raw["account"])
	f.Category, _ = SafeText(raw["category"])
	f.IsReceived = SafeBool(raw["is_received"])

	dateStr, _ := SafeText(raw["date"])
	f.Date = ParseDate(ctx, dateStr, opts.Timezone, opts.Now)

	if c, ok := SafeNumber(raw["confidence"]); ok {
		f.Confidence = &c
	}
	if list, ok := raw["missing_fields"].([]any); ok {
		for _, item := range list {
			if s, ok := SafeText(item); ok {
				f.Missing = append(f.Missing, s)
			}
		}
	}

	return f, nil
}

// SafeNumber accepts numbers and numeric strings. NaN, infinities,
// booleans and everything else are absent.
func SafeNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SafeText trims strings and treats empty ones as absent. Non-string
// values other than nil are rendered with fmt.
func SafeText(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

// SafeBool reads a bool-like value. Unrecognized values are false.
func SafeBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	default:
		n, ok := SafeNumber(v)
		return ok && n != 0
	}
}

// ParseDate returns the calendar date in value when it is exactly
// YYYY-MM-DD, and today in tz otherwise.
func ParseDate(ctx context.Context, value, tz string, now time.Time) civil.Date {
	if strictDate.MatchString(value) {
		if t, err := time.Parse(DateLayout, value); err == nil {
			return civil.DateOf(t)
		}
	}
	return civil.DateOf(now.In(LoadLocation(ctx, tz)))
}

// LoadLocation resolves tz, falling back to UTC with a warning.
func LoadLocation(ctx context.Context, tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("timezone", tz).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
