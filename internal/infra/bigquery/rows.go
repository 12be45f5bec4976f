package bigquery

import (
	"encoding/json"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

type ModelOutputRow struct {
	OutputID       string `bigquery:"output_id"`       // REQUIRED
	ConversationID int64  `bigquery:"conversation_id"` // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED

	RawJSON    bigquery.NullJSON   `bigquery:"raw_json"`    // REQUIRED (JSON)
	SourceText bigquery.NullString `bigquery:"source_text"` // NULLABLE

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // REQUIRED
}

type ConfirmedTransactionRow struct {
	DraftID        string `bigquery:"draft_id"`        // REQUIRED
	LedgerID       int64  `bigquery:"ledger_id"`       // REQUIRED
	ConversationID int64  `bigquery:"conversation_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC, signed as sent to the ledger
	Currency        string     `bigquery:"currency"`         // REQUIRED
	Payee           string     `bigquery:"payee"`            // REQUIRED

	AccountID    int64               `bigquery:"account_id"`    // REQUIRED
	AccountLabel bigquery.NullString `bigquery:"account_label"` // NULLABLE
	CategoryID   bigquery.NullInt64  `bigquery:"category_id"`   // NULLABLE
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE

	IsReceived     bool `bigquery:"is_received"`
	StatusEnforced bool `bigquery:"status_enforced"`

	OriginalText bigquery.NullString `bigquery:"original_text"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newModelOutputRow(outputID string, rec pipeline.ExtractionRecord) (*ModelOutputRow, error) {
	raw, err := json.Marshal(rec.Raw)
	if err != nil {
		return nil, err
	}
	return &ModelOutputRow{
		OutputID:       outputID,
		ConversationID: rec.ConversationID,
		ModelName:      rec.Model,
		RawJSON:        bigquery.NullJSON{JSONVal: string(raw), Valid: true},
		SourceText:     nullString(rec.Text),
		CreatedTS:      bigquery.NullTimestamp{Timestamp: rec.CreatedAt, Valid: !rec.CreatedAt.IsZero()},
	}, nil
}

func newConfirmedTransactionRow(tx pipeline.ConfirmedTransaction) *ConfirmedTransactionRow {
	row := &ConfirmedTransactionRow{
		DraftID:         tx.Record.ExternalID,
		LedgerID:        tx.LedgerID,
		TransactionDate: tx.Record.Date,
		Amount:          tx.Record.Amount.Rat(),
		Currency:        tx.Record.Currency,
		Payee:           tx.Record.Payee,
		AccountID:       tx.Record.AccountID,
		StatusEnforced:  tx.StatusEnforced,
		CreatedTS:       tx.ConfirmedAt,
	}
	if tx.Record.CategoryID != nil {
		row.CategoryID = bigquery.NullInt64{Int64: *tx.Record.CategoryID, Valid: true}
	}
	if p := tx.Pending; p != nil {
		row.ConversationID = p.ConversationID
		row.AccountLabel = nullString(p.AccountLabel)
		row.IsReceived = p.IsReceived
		row.OriginalText = nullString(p.OriginalText)
		if p.CategoryName != nil {
			row.CategoryName = nullString(*p.CategoryName)
		}
	}
	return row
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
