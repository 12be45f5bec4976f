package config

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var tokenPattern = regexp.MustCompile(`^\d{4}$`)

// ParseTokenMap reads ACCOUNT_TOKEN_MAP, given either as a JSON object
// ({"1234": 42}) or as a "1234:42,5678:43" list. Bad entries are skipped
// and reported as warnings.
func ParseTokenMap(raw string) (map[string]int64, []string) {
	tokens := make(map[string]int64)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return tokens, nil
	}

	if strings.HasPrefix(raw, "{") {
		return parseTokenJSON(raw)
	}

	var warnings []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, idStr, ok := strings.Cut(entry, ":")
		if !ok {
			warnings = append(warnings, fmt.Sprintf("ACCOUNT_TOKEN_MAP entry %q has no ':' separator, skipped", entry))
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ACCOUNT_TOKEN_MAP entry %q has a non-integer account id, skipped", entry))
			continue
		}
		if w := addToken(tokens, strings.TrimSpace(token), id); w != "" {
			warnings = append(warnings, w)
		}
	}
	return tokens, warnings
}

func parseTokenJSON(raw string) (map[string]int64, []string) {
	tokens := make(map[string]int64)

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return tokens, []string{fmt.Sprintf("ACCOUNT_TOKEN_MAP is not valid JSON, ignored: %v", err)}
	}

	var warnings []string
	for token, v := range obj {
		id, ok := jsonID(v)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("ACCOUNT_TOKEN_MAP token %q has a non-integer account id, skipped", token))
			continue
		}
		if w := addToken(tokens, strings.TrimSpace(token), id); w != "" {
			warnings = append(warnings, w)
		}
	}
	return tokens, warnings
}

func jsonID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return id, err == nil
	}
	return 0, false
}

func addToken(tokens map[string]int64, token string, id int64) string {
	if !tokenPattern.MatchString(token) {
		return fmt.Sprintf("ACCOUNT_TOKEN_MAP token %q is not 4 digits, skipped", token)
	}
	tokens[token] = id
	return ""
}
