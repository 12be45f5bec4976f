package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

// LedgerSource lists what a transaction can be posted against. Accounts
// are already filtered to manual ones, categories exclude groups.
type LedgerSource interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// LedgerWriter persists confirmed transactions.
type LedgerWriter interface {
	// InsertTransaction returns the id the ledger assigned.
	InsertTransaction(ctx context.Context, rec domain.TransactionRecord) (int64, error)

	// SetStatus is called best-effort after an insert.
	SetStatus(ctx context.Context, transactionID int64, status string) error
}

// ExtractionContext is what the extractor may use to steer the model.
type ExtractionContext struct {
	Timezone        string
	Today           string // YYYY-MM-DD in Timezone
	DefaultCurrency string
	AccountLabels   []string
	CategoryNames   []string
}

// Extractor turns free text into an untrusted field bag.
type Extractor interface {
	Extract(ctx context.Context, text string, hints ExtractionContext) (domain.ExtractionResult, error)
}

// ExtractionRecord is one raw model answer, kept for auditing.
type ExtractionRecord struct {
	ConversationID int64
	Text           string
	Model          string
	Raw            domain.ExtractionResult
	CreatedAt      time.Time
}

// ExtractionRecorder stores raw model answers. Failures are logged only.
type ExtractionRecorder interface {
	RecordExtraction(ctx context.Context, rec ExtractionRecord) error
}

// ConfirmedTransaction describes a transaction after it reached the ledger.
type ConfirmedTransaction struct {
	Pending        *domain.PendingTransaction
	Record         domain.TransactionRecord
	LedgerID       int64
	StatusEnforced bool
	ConfirmedAt    time.Time
}

// ConfirmationMirror copies confirmed transactions somewhere else.
// Failures are logged only.
type ConfirmationMirror interface {
	Name() string
	MirrorConfirmed(ctx context.Context, tx ConfirmedTransaction) error
}

// modelNamer is implemented by extractors that can report their model.
type modelNamer interface {
	ModelName() string
}
