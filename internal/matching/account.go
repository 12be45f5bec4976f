package matching

import (
	"strconv"
	"strings"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

// AccountQuery is the input every account strategy sees.
type AccountQuery struct {
	RawName  string
	RawText  string
	Accounts []domain.Account
}

// AccountStrategy returns a match or abstains with ok=false.
type AccountStrategy func(q AccountQuery) (acct domain.Account, ok bool)

// AccountResolver picks a single account for a draft transaction.
type AccountResolver struct {
	TokenMap  map[string]int64
	DefaultID *int64

	strategies []AccountStrategy
}

// NewAccountResolver wires the strategies in precedence order: card-token
// map, name match, configured default, sole account.
func NewAccountResolver(tokenMap map[string]int64, defaultID *int64) *AccountResolver {
	r := &AccountResolver{TokenMap: tokenMap, DefaultID: defaultID}
	r.strategies = []AccountStrategy{
		r.byTokenMap,
		ByName,
		r.byDefault,
		bySoleAccount,
	}
	return r
}

// Resolve runs the strategies until one matches.
func (r *AccountResolver) Resolve(rawName, rawText string, accounts []domain.Account) (domain.Account, bool) {
	q := AccountQuery{RawName: rawName, RawText: rawText, Accounts: accounts}
	for _, strategy := range r.strategies {
		if acct, ok := strategy(q); ok {
			return acct, true
		}
	}
	return domain.Account{}, false
}

func (r *AccountResolver) byTokenMap(q AccountQuery) (domain.Account, bool) {
	return ByTokenMap(r.TokenMap, q.RawText, q.Accounts)
}

func (r *AccountResolver) byDefault(q AccountQuery) (domain.Account, bool) {
	if r.DefaultID == nil {
		return domain.Account{}, false
	}
	return findAccount(q.Accounts, *r.DefaultID)
}

func bySoleAccount(q AccountQuery) (domain.Account, bool) {
	if len(q.Accounts) == 1 {
		return q.Accounts[0], true
	}
	return domain.Account{}, false
}

// ByTokenMap matches when the card tokens in text map to exactly one
// listed account. Several distinct ids, or an id no longer listed,
// abstain.
func ByTokenMap(tokenMap map[string]int64, text string, accounts []domain.Account) (domain.Account, bool) {
	if len(tokenMap) == 0 {
		return domain.Account{}, false
	}

	ids := make(map[int64]struct{})
	for token := range ExtractTokens(text) {
		if id, ok := tokenMap[token]; ok {
			ids[id] = struct{}{}
		}
	}
	if len(ids) != 1 {
		return domain.Account{}, false
	}

	for id := range ids {
		return findAccount(accounts, id)
	}
	return domain.Account{}, false
}

// nameStrategies run over a normalized needle in precedence order.
var nameStrategies = []func(needle string, labels []normalizedAccount) (domain.Account, bool){
	exactName,
	labelContainsName,
	nameContainsLabel,
	uniqueTokenOverlap,
}

type normalizedAccount struct {
	account domain.Account
	label   string
}

// ByName matches the model's account name. A purely numeric name is a
// literal account id and wins when that id is listed; otherwise the
// normalized name goes through exact, contains, contained-by and token
// overlap in that order.
func ByName(q AccountQuery) (domain.Account, bool) {
	trimmed := strings.TrimSpace(q.RawName)
	if trimmed == "" {
		return domain.Account{}, false
	}

	if isNumeric(trimmed) {
		if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			if acct, ok := findAccount(q.Accounts, id); ok {
				return acct, true
			}
		}
	}

	needle := Normalize(trimmed)
	if needle == "" {
		return domain.Account{}, false
	}

	labels := make([]normalizedAccount, 0, len(q.Accounts))
	for _, acct := range q.Accounts {
		labels = append(labels, normalizedAccount{account: acct, label: Normalize(acct.Label)})
	}

	for _, match := range nameStrategies {
		if acct, ok := match(needle, labels); ok {
			return acct, true
		}
	}
	return domain.Account{}, false
}

func exactName(needle string, labels []normalizedAccount) (domain.Account, bool) {
	for _, l := range labels {
		if l.label == needle {
			return l.account, true
		}
	}
	return domain.Account{}, false
}

func labelContainsName(needle string, labels []normalizedAccount) (domain.Account, bool) {
	for _, l := range labels {
		if l.label != "" && strings.Contains(l.label, needle) {
			return l.account, true
		}
	}
	return domain.Account{}, false
}

func nameContainsLabel(needle string, labels []normalizedAccount) (domain.Account, bool) {
	for _, l := range labels {
		if l.label != "" && strings.Contains(needle, l.label) {
			return l.account, true
		}
	}
	return domain.Account{}, false
}

// uniqueTokenOverlap picks the account sharing the most words with the
// needle. A tie for the top non-zero score voids the match.
func uniqueTokenOverlap(needle string, labels []normalizedAccount) (domain.Account, bool) {
	needleTokens := make(map[string]struct{})
	for _, tok := range strings.Fields(needle) {
		needleTokens[tok] = struct{}{}
	}

	var (
		best      domain.Account
		bestScore int
		tie       bool
	)
	for _, l := range labels {
		score := overlap(needleTokens, l.label)
		switch {
		case score > bestScore:
			best, bestScore, tie = l.account, score, false
		case score > 0 && score == bestScore:
			tie = true
		}
	}

	if bestScore == 0 || tie {
		return domain.Account{}, false
	}
	return best, true
}

func overlap(needleTokens map[string]struct{}, label string) int {
	seen := make(map[string]struct{})
	score := 0
	for _, tok := range strings.Fields(label) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := needleTokens[tok]; ok {
			score++
		}
	}
	return score
}

func findAccount(accounts []domain.Account, id int64) (domain.Account, bool) {
	for _, acct := range accounts {
		if acct.ID == id {
			return acct, true
		}
	}
	return domain.Account{}, false
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}
