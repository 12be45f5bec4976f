package main

import (
	"context"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/manual-tx-bot/internal/config"
	"github.com/dvloznov/manual-tx-bot/internal/extraction"
	infraBQ "github.com/dvloznov/manual-tx-bot/internal/infra/bigquery"
	"github.com/dvloznov/manual-tx-bot/internal/infra/lunchmoney"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

const commandTimeout = 2 * time.Minute

// ledger is what the commands need from Lunch Money.
type ledger interface {
	pipeline.LedgerSource
	pipeline.LedgerWriter
}

// auditTables creates the BigQuery audit tables.
type auditTables interface {
	EnsureTables(ctx context.Context) error
	Close() error
}

var (
	cfg *config.Config
	log zerolog.Logger

	newLedger = func(c *config.Config) ledger {
		return lunchmoney.NewClient(c.LunchMoney.Token,
			lunchmoney.WithBaseURL(c.LunchMoney.BaseURL),
			lunchmoney.WithRateLimit(c.LunchMoney.RequestsPerSecond),
		)
	}

	newExtractor = func(ctx context.Context, c *config.Config) (pipeline.Extractor, error) {
		return extraction.New(ctx, extraction.Provider{
			Name:    c.Extraction.Provider,
			APIKey:  c.Extraction.APIKey(),
			BaseURL: c.Extraction.DeepSeekBaseURL,
			Model:   c.Extraction.Model(),
		})
	}

	newAuditTables = func(ctx context.Context, c *config.Config) (auditTables, error) {
		return infraBQ.NewAuditor(ctx, c.Audit.BigQueryProject, c.Audit.BigQueryDataset, c.Audit.CredentialsFile)
	}
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cli",
		Short:         "Operator tools for the manual transaction bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				cfg = config.Load()
			}
			log = logger.New(logger.Options{Level: cfg.Logger.Level, Format: cfg.Logger.Format, Out: cmd.ErrOrStderr()})
			for _, w := range cfg.Warnings {
				log.Warn().Msg(w)
			}
			return nil
		},
	}

	root.AddCommand(
		newAccountsCmd(),
		newCategoriesCmd(),
		newTokensCmd(),
		newResolveCmd(),
		newParseCmd(),
		newAuditInitCmd(),
	)
	return root
}

// commandContext returns a bounded context carrying the CLI logger.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	return logger.WithContext(ctx, log), cancel
}
