package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dvloznov/manual-tx-bot/internal/config"
	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/matching"
	pendingmem "github.com/dvloznov/manual-tx-bot/internal/pending/inmemory"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List manual Lunch Money accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.ScopeLedger); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			accounts, err := newLedger(cfg).ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				fmt.Fprintln(out, "No manual accounts found.")
				return nil
			}
			for _, a := range accounts {
				fmt.Fprintf(out, "%d\t%s\n", a.ID, a.Label)
			}
			return nil
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List assignable Lunch Money categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.ScopeLedger); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			categories, err := newLedger(cfg).ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			for _, c := range categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "Check ACCOUNT_TOKEN_MAP against the live account list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.ScopeLedger); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Defaults.TokenMap) == 0 {
				fmt.Fprintln(out, "ACCOUNT_TOKEN_MAP is empty.")
				return nil
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			accounts, err := newLedger(cfg).ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			byID := make(map[int64]domain.Account, len(accounts))
			for _, a := range accounts {
				byID[a.ID] = a
			}

			tokens := make([]string, 0, len(cfg.Defaults.TokenMap))
			for token := range cfg.Defaults.TokenMap {
				tokens = append(tokens, token)
			}
			sort.Strings(tokens)

			missing := 0
			for _, token := range tokens {
				id := cfg.Defaults.TokenMap[token]
				if a, ok := byID[id]; ok {
					fmt.Fprintf(out, "%s\t%d\t%s\n", token, id, a.Label)
					continue
				}
				missing++
				fmt.Fprintf(out, "%s\t%d\t(no such manual account)\n", token, id)
			}
			if missing > 0 {
				return fmt.Errorf("%d token(s) point at unknown accounts", missing)
			}
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	var account, text, category string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which account and category a message would resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.ScopeLedger); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			l := newLedger(cfg)
			accounts, err := l.ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			out := cmd.OutOrStdout()

			resolver := matching.NewAccountResolver(cfg.Defaults.TokenMap, cfg.Defaults.AccountID)
			if acct, ok := resolver.Resolve(account, text, accounts); ok {
				fmt.Fprintf(out, "Account: %s (id %d)\n", acct.Label, acct.ID)
			} else {
				fmt.Fprintf(out, "Account: unresolved\nAvailable accounts: %s\n",
					matching.FormatAccountOptions(accounts, matching.DefaultOptionLimit))
			}

			if category == "" {
				return nil
			}
			categories, err := l.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			if c, ok := matching.ResolveCategory(category, categories); ok {
				fmt.Fprintf(out, "Category: %s (id %d)\n", c.Name, c.ID)
			} else {
				fmt.Fprintln(out, "Category: Uncategorized")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name as the model would report it")
	cmd.Flags().StringVar(&text, "text", "", "original message text, scanned for card tokens")
	cmd.Flags().StringVar(&category, "category", "", "category name to match")
	return cmd
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text>",
		Short: "Draft a transaction from text without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.ScopeLedger, config.ScopeExtraction); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			extractor, err := newExtractor(ctx, cfg)
			if err != nil {
				return err
			}
			l := newLedger(cfg)
			svc := pipeline.NewService(l, l, extractor, pendingmem.NewStore(), pipeline.Settings{
				Timezone:         cfg.Defaults.Timezone,
				DefaultCurrency:  cfg.Defaults.Currency,
				DefaultAccountID: cfg.Defaults.AccountID,
				TokenMap:         cfg.Defaults.TokenMap,
			})

			p, err := svc.Preview(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pipeline.BuildSummary(p))
			return nil
		},
	}
}

func newAuditInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit-init",
		Short: "Create the BigQuery audit tables if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Audit.Enabled() {
				return fmt.Errorf("BIGQUERY_PROJECT is not set")
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			tables, err := newAuditTables(ctx, cfg)
			if err != nil {
				return err
			}
			defer tables.Close()

			if err := tables.EnsureTables(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Audit tables ready in %s.%s\n", cfg.Audit.BigQueryProject, cfg.Audit.BigQueryDataset)
			return nil
		},
	}
}
