package matching

import "regexp"

// TokenLength is the length of a card or account hint ("last four").
const TokenLength = 4

// Labeled hints. Each captures the four digits in group 1; the trailing
// (?:\D|$) keeps a fifth digit from sneaking in.
var labeledTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:ending(?:\s+in)?|ends?\s+(?:with|in)|last\s*4|last\s+four)\s*[:#-]?\s*(\d{4})(?:\D|$)`),
	regexp.MustCompile(`(?i)(?:card|visa|mastercard|amex|debit|credit|acct|account)\s*(?:no\.?|number|#)?\s*[:#-]?\s*(\d{4})(?:\D|$)`),
	regexp.MustCompile(`(?:[xX]{2,}|\*{2,}|#{2,}|•{2,})[ -]?(\d{4})(?:\D|$)`),
}

// ExtractTokens returns every 4-digit card/account hint in text. Bare runs
// of exactly four digits are always included; labeled and masked patterns
// add their captures on top.
func ExtractTokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})

	for _, run := range digitRuns(text) {
		if len(run) == TokenLength {
			tokens[run] = struct{}{}
		}
	}

	for _, re := range labeledTokenPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			// Reject captures that sit right after another digit.
			if start > 0 && isDigit(text[start-1]) {
				continue
			}
			tokens[text[start:end]] = struct{}{}
		}
	}

	return tokens
}

// digitRuns splits text into maximal runs of ASCII digits.
func digitRuns(text string) []string {
	var runs []string
	start := -1
	for i := 0; i < len(text); i++ {
		if isDigit(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, text[start:])
	}
	return runs
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
