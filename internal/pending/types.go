// Package pending holds at most one unconfirmed transaction per
// conversation.
package pending

import (
	"context"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

// Store keeps the single pending draft of each conversation. A Set for a
// conversation that already has a draft replaces it without notice.
//
// Implementations must be safe for concurrent use across conversations.
// Ordering of calls within one conversation is the dispatcher's job.
type Store interface {
	// Set stores txn as the conversation's draft, replacing any previous one.
	Set(ctx context.Context, conversationID int64, txn *domain.PendingTransaction) error

	// Get returns the conversation's draft. found is false when there is none.
	Get(ctx context.Context, conversationID int64) (txn *domain.PendingTransaction, found bool, err error)

	// Clear drops the draft and reports whether one existed.
	Clear(ctx context.Context, conversationID int64) (bool, error)
}
