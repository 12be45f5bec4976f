package matching

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Chase   Credit ", "chase credit"},
		{"AMEX-Gold (1234)", "amex gold 1234"},
		{"Café_Crème!!", "café crème"},
		{"\t\nCash\n", "cash"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tok := range set {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func TestExtractTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"bare token", "coffee 4.50 on 1234", []string{"1234"}},
		{"longer runs ignored", "order 123456 ref 12345", []string{}},
		{"two bare tokens", "moved 1234 to 5678", []string{"1234", "5678"}},
		{"ending in", "visa ending in 4242", []string{"4242"}},
		{"last4 glued", "paid with last4:9876", []string{"9876"}},
		{"card label glued to digits", "CARD#1111 groceries", []string{"1111"}},
		{"masked stars", "**** 3333 lunch", []string{"3333"}},
		{"masked x", "xxxx4444", []string{"4444"}},
		{"masked bullets", "••••5555 taxi", []string{"5555"}},
		{"label followed by long number", "account 123456", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sortedTokens(ExtractTokens(tt.text)))
		})
	}
}

var chaseAccounts = []domain.Account{
	{ID: 10, Label: "Chase Credit"},
	{ID: 11, Label: "Chase Checking"},
	{ID: 12, Label: "Cash"},
}

func TestByName_ExactBeatsContains(t *testing.T) {
	acct, ok := ByName(AccountQuery{RawName: "Chase Credit", Accounts: []domain.Account{
		{ID: 11, Label: "Chase Checking"},
		{ID: 10, Label: "Chase Credit"},
	}})
	require.True(t, ok)
	assert.Equal(t, int64(10), acct.ID)
}

func TestByName_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		rawName  string
		accounts []domain.Account
		wantID   int64
		wantOK   bool
	}{
		{"numeric id", "11", chaseAccounts, 11, true},
		{"numeric id missing falls through to text", "1234", []domain.Account{{ID: 1, Label: "Visa 1234"}}, 1, true},
		{"numeric id missing no match", "99", chaseAccounts, 0, false},
		{"case and punctuation", "chase-credit!", chaseAccounts, 10, true},
		{"label contains name", "checking", chaseAccounts, 11, true},
		{"name contains label", "my cash wallet", chaseAccounts, 12, true},
		{"token overlap unique", "credit chase card", chaseAccounts, 10, true},
		{"blank", "   ", chaseAccounts, 0, false},
		{"punctuation only", "--", chaseAccounts, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, ok := ByName(AccountQuery{RawName: tt.rawName, Accounts: tt.accounts})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, acct.ID)
		})
	}
}

func TestByName_EmptyLabelNeverMatches(t *testing.T) {
	_, ok := ByName(AccountQuery{RawName: "groceries", Accounts: []domain.Account{{ID: 1, Label: "***"}}})
	assert.False(t, ok)
}

func TestUniqueTokenOverlap_TieIsVoid(t *testing.T) {
	labels := []normalizedAccount{
		{account: domain.Account{ID: 1, Label: "Bank of Foo"}, label: "bank of foo"},
		{account: domain.Account{ID: 2, Label: "Foo Bank"}, label: "foo bank"},
	}

	_, ok := uniqueTokenOverlap("foo bank x", labels)
	assert.False(t, ok)
}

func TestAccountResolver_TokenOverlapTieReturnsNone(t *testing.T) {
	r := NewAccountResolver(nil, nil)
	_, ok := r.Resolve("bank foo x", "", []domain.Account{
		{ID: 1, Label: "Bank of Foo"},
		{ID: 2, Label: "Foo Bank"},
	})
	assert.False(t, ok)
}

func TestAccountResolver_TokenMap(t *testing.T) {
	accounts := []domain.Account{{ID: 1, Label: "Visa"}, {ID: 2, Label: "Amex"}, {ID: 3, Label: "Cash"}}
	tokenMap := map[string]int64{"1234": 1, "5678": 2, "0000": 99}

	tests := []struct {
		name    string
		rawName string
		text    string
		wantID  int64
		wantOK  bool
	}{
		{"single token wins over name", "cash", "lunch 12 on card 1234", 1, true},
		{"two tokens same account", "", "1234 then xx1234", 1, true},
		{"ambiguous tokens abstain", "", "split 1234 and 5678", 0, false},
		{"ambiguous tokens fall through to name", "cash", "split 1234 and 5678", 3, true},
		{"unlisted id abstains", "amex", "card 0000", 2, true},
		{"no tokens uses name", "amex", "dinner 40", 2, true},
	}

	r := NewAccountResolver(tokenMap, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, ok := r.Resolve(tt.rawName, tt.text, accounts)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, acct.ID)
		})
	}
}

func TestByTokenMap_AmbiguousEvenWhenBothListed(t *testing.T) {
	accounts := []domain.Account{{ID: 1, Label: "A"}, {ID: 2, Label: "B"}}
	_, ok := ByTokenMap(map[string]int64{"1234": 1, "5678": 2}, "1234 5678", accounts)
	assert.False(t, ok)
}

func TestAccountResolver_Fallbacks(t *testing.T) {
	defaultID := int64(11)
	missingID := int64(404)

	t.Run("default id", func(t *testing.T) {
		acct, ok := NewAccountResolver(nil, &defaultID).Resolve("unknown", "", chaseAccounts)
		require.True(t, ok)
		assert.Equal(t, int64(11), acct.ID)
	})

	t.Run("default id not listed", func(t *testing.T) {
		_, ok := NewAccountResolver(nil, &missingID).Resolve("", "", chaseAccounts)
		assert.False(t, ok)
	})

	t.Run("sole account", func(t *testing.T) {
		acct, ok := NewAccountResolver(nil, nil).Resolve("", "", []domain.Account{{ID: 5, Label: "Wallet"}})
		require.True(t, ok)
		assert.Equal(t, int64(5), acct.ID)
	})

	t.Run("sole account after failed default", func(t *testing.T) {
		acct, ok := NewAccountResolver(nil, &missingID).Resolve("nope", "", []domain.Account{{ID: 5, Label: "Wallet"}})
		require.True(t, ok)
		assert.Equal(t, int64(5), acct.ID)
	})

	t.Run("nothing matches", func(t *testing.T) {
		_, ok := NewAccountResolver(nil, nil).Resolve("", "", chaseAccounts)
		assert.False(t, ok)
	})

	t.Run("empty list", func(t *testing.T) {
		_, ok := NewAccountResolver(nil, &defaultID).Resolve("chase", "", nil)
		assert.False(t, ok)
	})
}

func TestResolveCategory(t *testing.T) {
	categories := []domain.Category{
		{ID: 1, Name: "Restaurants & Bars"},
		{ID: 2, Name: "Groceries"},
		{ID: 3, Name: "Restaurants"},
	}

	tests := []struct {
		name   string
		raw    string
		wantID int64
		wantOK bool
	}{
		{"exact beats earlier contains", "restaurants", 3, true},
		{"contains", "bars", 1, true},
		{"case insensitive", "GROCERIES", 2, true},
		{"no contained-by", "weekly groceries run", 0, false},
		{"empty", "", 0, false},
		{"punctuation only", "&&", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ResolveCategory(tt.raw, categories)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, c.ID)
		})
	}
}

func TestFormatAccountOptions(t *testing.T) {
	var accounts []domain.Account
	for i := int64(1); i <= 12; i++ {
		accounts = append(accounts, domain.Account{ID: i, Label: "Acct"})
	}

	out := FormatAccountOptions(accounts, DefaultOptionLimit)
	assert.Contains(t, out, "Acct (id 1), ")
	assert.Contains(t, out, "Acct (id 10), ...and 2 more")
	assert.NotContains(t, out, "id 11")

	assert.Equal(t, "Cash (id 12)", FormatAccountOptions([]domain.Account{{ID: 12, Label: "Cash"}}, 10))
}
