// Package bigquery keeps an audit trail of model answers and confirmed
// transactions in BigQuery.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

const (
	DefaultDatasetID           = "finance"
	modelOutputsTable          = "model_outputs"
	confirmedTransactionsTable = "confirmed_transactions"
)

// Auditor writes to the model_outputs and confirmed_transactions tables.
// It is both a pipeline.ExtractionRecorder and a pipeline.ConfirmationMirror.
type Auditor struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewAuditor opens a BigQuery client. credentialsFile may be empty to use
// application default credentials.
func NewAuditor(ctx context.Context, projectID, datasetID, credentialsFile string) (*Auditor, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewAuditor: creating client: %w", err)
	}
	return NewAuditorWithClient(client, projectID, datasetID), nil
}

// NewAuditorWithClient uses an existing client.
func NewAuditorWithClient(client *bigquery.Client, projectID, datasetID string) *Auditor {
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	return &Auditor{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection.
func (a *Auditor) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Name implements pipeline.ConfirmationMirror.
func (a *Auditor) Name() string { return "bigquery" }

// RecordExtraction inserts one model answer. Uses DML INSERT so the row is
// queryable immediately.
func (a *Auditor) RecordExtraction(ctx context.Context, rec pipeline.ExtractionRecord) error {
	row, err := newModelOutputRow(uuid.NewString(), rec)
	if err != nil {
		return fmt.Errorf("RecordExtraction: encoding raw output: %w", err)
	}

	q := a.client.Query(`
		INSERT INTO ` + a.table(modelOutputsTable) + ` (
			output_id, conversation_id, model_name,
			raw_json, source_text, created_ts
		)
		VALUES (
			@output_id, @conversation_id, @model_name,
			@raw_json, @source_text, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "conversation_id", Value: row.ConversationID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_json", Value: row.RawJSON},
		{Name: "source_text", Value: row.SourceText},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("RecordExtraction: %w", err)
	}
	return nil
}

// MirrorConfirmed implements pipeline.ConfirmationMirror.
func (a *Auditor) MirrorConfirmed(ctx context.Context, tx pipeline.ConfirmedTransaction) error {
	row := newConfirmedTransactionRow(tx)

	inserter := a.client.DatasetInProject(a.projectID, a.datasetID).Table(confirmedTransactionsTable).Inserter()
	if err := inserter.Put(ctx, []*ConfirmedTransactionRow{row}); err != nil {
		return fmt.Errorf("MirrorConfirmed: inserting row: %w", err)
	}
	return nil
}

// EnsureTables creates the audit tables when they are missing.
func (a *Auditor) EnsureTables(ctx context.Context) error {
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS ` + a.table(modelOutputsTable) + ` (
			output_id       STRING NOT NULL,
			conversation_id INT64 NOT NULL,
			model_name      STRING NOT NULL,
			raw_json        JSON,
			source_text     STRING,
			created_ts      TIMESTAMP DEFAULT CURRENT_TIMESTAMP()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + a.table(confirmedTransactionsTable) + ` (
			draft_id         STRING NOT NULL,
			ledger_id        INT64 NOT NULL,
			conversation_id  INT64 NOT NULL,
			transaction_date DATE NOT NULL,
			amount           NUMERIC NOT NULL,
			currency         STRING NOT NULL,
			payee            STRING NOT NULL,
			account_id       INT64 NOT NULL,
			account_label    STRING,
			category_id      INT64,
			category_name    STRING,
			is_received      BOOL,
			status_enforced  BOOL,
			original_text    STRING,
			created_ts       TIMESTAMP NOT NULL
		)`,
	} {
		if err := runQuery(ctx, a.client.Query(ddl)); err != nil {
			return fmt.Errorf("EnsureTables: %w", err)
		}
	}
	return nil
}

func (a *Auditor) table(name string) string {
	return "`" + a.projectID + "." + a.datasetID + "." + name + "`"
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var (
	_ pipeline.ExtractionRecorder = (*Auditor)(nil)
	_ pipeline.ConfirmationMirror = (*Auditor)(nil)
)
