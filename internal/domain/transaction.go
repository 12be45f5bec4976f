package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Status values understood by the ledger.
const (
	StatusUncleared = "uncleared"
	StatusCleared   = "cleared"
)

// Account is a manual ledger account the bot can post to.
type Account struct {
	ID    int64
	Label string // display name, or name when no display name is set
}

// Category is a non-group ledger category.
type Category struct {
	ID   int64
	Name string
}

// ExtractionResult is the raw field bag returned by the language model.
// Nothing in it is trusted; see pipeline.SanitizeExtraction.
type ExtractionResult map[string]any

// PendingTransaction is a candidate waiting for the user to confirm or
// cancel it. Amount is always non-negative; the sign is applied when the
// ledger record is assembled.
type PendingTransaction struct {
	DraftID        string     `json:"draft_id"`
	ConversationID int64      `json:"conversation_id"`
	OriginalText   string     `json:"original_text"`
	Date           civil.Date `json:"date"`
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	Payee          string     `json:"payee"`
	AccountID      int64      `json:"account_id"`
	AccountLabel   string     `json:"account_label"`
	CategoryID     *int64     `json:"category_id,omitempty"`
	CategoryName   *string    `json:"category_name,omitempty"`
	IsReceived     bool       `json:"is_received"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Clone returns a deep copy so stored drafts never alias caller memory.
func (p *PendingTransaction) Clone() *PendingTransaction {
	if p == nil {
		return nil
	}
	c := *p
	if p.CategoryID != nil {
		id := *p.CategoryID
		c.CategoryID = &id
	}
	if p.CategoryName != nil {
		name := *p.CategoryName
		c.CategoryName = &name
	}
	return &c
}

// TransactionRecord is the insert payload handed to the ledger writer.
// Amount is signed: negative is money in, positive is money out.
type TransactionRecord struct {
	Date       civil.Date
	CategoryID *int64
	Payee      string
	Amount     decimal.Decimal
	Currency   string // lowercase
	Status     string
	AccountID  int64
	ExternalID string
}
