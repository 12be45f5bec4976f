package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/manual-tx-bot/internal/config"
	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

type fakeLedger struct {
	accounts   []domain.Account
	categories []domain.Category
	err        error
	inserted   int
}

func (f *fakeLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return f.accounts, f.err
}

func (f *fakeLedger) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return f.categories, f.err
}

func (f *fakeLedger) InsertTransaction(ctx context.Context, rec domain.TransactionRecord) (int64, error) {
	f.inserted++
	return 1, nil
}

func (f *fakeLedger) SetStatus(ctx context.Context, id int64, status string) error {
	return nil
}

type fakeExtractor struct {
	result domain.ExtractionResult
}

func (f *fakeExtractor) Extract(ctx context.Context, text string, hints pipeline.ExtractionContext) (domain.ExtractionResult, error) {
	return f.result, nil
}

type fakeTables struct {
	ensured bool
	closed  bool
	err     error
}

func (f *fakeTables) EnsureTables(ctx context.Context) error {
	f.ensured = true
	return f.err
}

func (f *fakeTables) Close() error {
	f.closed = true
	return nil
}

// setup installs a config and fakes, restoring the factories afterwards.
func setup(t *testing.T, c *config.Config, l *fakeLedger) {
	t.Helper()

	prevLedger, prevExtractor, prevTables := newLedger, newExtractor, newAuditTables
	t.Cleanup(func() {
		cfg = nil
		newLedger, newExtractor, newAuditTables = prevLedger, prevExtractor, prevTables
	})

	cfg = c
	newLedger = func(*config.Config) ledger { return l }
}

func testConfig() *config.Config {
	return &config.Config{
		LunchMoney: config.LunchMoneyConfig{Token: "lm"},
		Extraction: config.ExtractionConfig{Provider: config.ProviderDeepSeek, DeepSeekAPIKey: "ds"},
		Defaults:   config.DefaultsConfig{Timezone: "UTC", Currency: "USD", TokenMap: map[string]int64{}},
		Logger:     config.LoggerConfig{Level: "error"},
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAccountsCmd(t *testing.T) {
	setup(t, testConfig(), &fakeLedger{accounts: []domain.Account{
		{ID: 1, Label: "Cash"},
		{ID: 2, Label: "Visa 1234"},
	}})

	out, err := execute(t, "accounts")
	require.NoError(t, err)
	assert.Equal(t, "1\tCash\n2\tVisa 1234\n", out)
}

func TestAccountsCmd_Empty(t *testing.T) {
	setup(t, testConfig(), &fakeLedger{})

	out, err := execute(t, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "No manual accounts found.")
}

func TestAccountsCmd_MissingToken(t *testing.T) {
	c := testConfig()
	c.LunchMoney.Token = ""
	setup(t, c, &fakeLedger{})

	_, err := execute(t, "accounts")
	var cerr *config.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"LUNCH_MONEY_TOKEN"}, cerr.Missing)
}

func TestAccountsCmd_LedgerError(t *testing.T) {
	setup(t, testConfig(), &fakeLedger{err: errors.New("boom")})

	_, err := execute(t, "accounts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list accounts")
}

func TestCategoriesCmd(t *testing.T) {
	setup(t, testConfig(), &fakeLedger{categories: []domain.Category{{ID: 7, Name: "Groceries"}}})

	out, err := execute(t, "categories")
	require.NoError(t, err)
	assert.Equal(t, "7\tGroceries\n", out)
}

func TestTokensCmd(t *testing.T) {
	c := testConfig()
	c.Defaults.TokenMap = map[string]int64{"1234": 2, "9999": 5}
	setup(t, c, &fakeLedger{accounts: []domain.Account{{ID: 2, Label: "Visa"}}})

	out, err := execute(t, "tokens")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 token(s)")
	assert.Equal(t, "1234\t2\tVisa\n9999\t5\t(no such manual account)\n", out)
}

func TestTokensCmd_EmptyMap(t *testing.T) {
	setup(t, testConfig(), &fakeLedger{})

	out, err := execute(t, "tokens")
	require.NoError(t, err)
	assert.Contains(t, out, "ACCOUNT_TOKEN_MAP is empty.")
}

func TestResolveCmd(t *testing.T) {
	c := testConfig()
	c.Defaults.TokenMap = map[string]int64{"1234": 2}
	setup(t, c, &fakeLedger{
		accounts:   []domain.Account{{ID: 1, Label: "Cash"}, {ID: 2, Label: "Visa"}},
		categories: []domain.Category{{ID: 7, Name: "Groceries"}},
	})

	t.Run("token wins", func(t *testing.T) {
		out, err := execute(t, "resolve", "--account", "cash", "--text", "paid with card *1234", "--category", "groceries")
		require.NoError(t, err)
		assert.Contains(t, out, "Account: Visa (id 2)")
		assert.Contains(t, out, "Category: Groceries (id 7)")
	})

	t.Run("unresolved lists options", func(t *testing.T) {
		out, err := execute(t, "resolve", "--account", "amex")
		require.NoError(t, err)
		assert.Contains(t, out, "Account: unresolved")
		assert.Contains(t, out, "Available accounts: Cash (id 1), Visa (id 2)")
	})

	t.Run("unknown category", func(t *testing.T) {
		out, err := execute(t, "resolve", "--account", "cash", "--category", "travel")
		require.NoError(t, err)
		assert.Contains(t, out, "Category: Uncategorized")
	})
}

func TestParseCmd(t *testing.T) {
	l := &fakeLedger{accounts: []domain.Account{{ID: 1, Label: "Cash"}}}
	setup(t, testConfig(), l)
	newExtractor = func(context.Context, *config.Config) (pipeline.Extractor, error) {
		return &fakeExtractor{result: domain.ExtractionResult{
			"payee":    "Tesco",
			"amount":   12.5,
			"currency": "GBP",
			"date":     "2026-03-01",
		}}, nil
	}

	out, err := execute(t, "parse", "tesco 12.50 gbp")
	require.NoError(t, err)
	assert.Contains(t, out, "Payee: Tesco")
	assert.Contains(t, out, "Amount: 12.50 GBP")
	assert.Contains(t, out, "Account: Cash")
	assert.Zero(t, l.inserted)
}

func TestParseCmd_RequiresText(t *testing.T) {
	setup(t, testConfig(), &fakeLedger{})

	_, err := execute(t, "parse")
	require.Error(t, err)
}

func TestAuditInitCmd(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		setup(t, testConfig(), &fakeLedger{})
		_, err := execute(t, "audit-init")
		require.Error(t, err)
	})

	t.Run("creates tables", func(t *testing.T) {
		c := testConfig()
		c.Audit = config.AuditConfig{BigQueryProject: "proj", BigQueryDataset: "ledger_audit"}
		setup(t, c, &fakeLedger{})

		tables := &fakeTables{}
		newAuditTables = func(context.Context, *config.Config) (auditTables, error) { return tables, nil }

		out, err := execute(t, "audit-init")
		require.NoError(t, err)
		assert.True(t, tables.ensured)
		assert.True(t, tables.closed)
		assert.Contains(t, out, "Audit tables ready in proj.ledger_audit")
	})
}
