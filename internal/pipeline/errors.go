package pipeline

import (
	"errors"
	"fmt"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

var (
	// ErrNoAccounts means the ledger has no manual accounts to post to.
	ErrNoAccounts = errors.New("no manual accounts")

	// ErrNoPending means a confirm arrived with nothing to confirm.
	ErrNoPending = errors.New("no pending transaction")
)

// LedgerError wraps a failure to load reference data from the ledger.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// ExtractionError wraps a failed or unparseable language-model call.
// Conversation state is left untouched.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError reports a required field missing after sanitizing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing %s", e.Field)
}

// ResolutionAmbiguousError means no account could be chosen. Accounts is
// the full candidate list for the user to pick from.
type ResolutionAmbiguousError struct {
	RawName  string
	Accounts []domain.Account
}

func (e *ResolutionAmbiguousError) Error() string {
	return fmt.Sprintf("could not resolve account %q among %d accounts", e.RawName, len(e.Accounts))
}

// PersistenceError means the ledger insert failed. The pending draft is
// kept so the user can confirm again.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("insert transaction: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PostProcessingWarning means the transaction was saved but its review
// status could not be enforced.
type PostProcessingWarning struct {
	TransactionID int64
	Err           error
}

func (e *PostProcessingWarning) Error() string {
	return fmt.Sprintf("transaction %d saved, status not enforced: %v", e.TransactionID, e.Err)
}

func (e *PostProcessingWarning) Unwrap() error { return e.Err }
