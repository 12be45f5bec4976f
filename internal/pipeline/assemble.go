package pipeline

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

// Assemble builds the ledger record for a confirmed draft. Money received
// is negative, money spent is positive. Bot entries are always uncleared
// so they show up for manual review.
func Assemble(p *domain.PendingTransaction) domain.TransactionRecord {
	amount := decimal.NewFromFloat(p.Amount).Abs()
	if p.IsReceived {
		amount = amount.Neg()
	}

	var categoryID *int64
	if p.CategoryID != nil {
		id := *p.CategoryID
		categoryID = &id
	}

	return domain.TransactionRecord{
		Date:       p.Date,
		CategoryID: categoryID,
		Payee:      p.Payee,
		Amount:     amount,
		Currency:   strings.ToLower(p.Currency),
		Status:     domain.StatusUncleared,
		AccountID:  p.AccountID,
		ExternalID: p.DraftID,
	}
}

// BuildSummary renders the confirmation prompt shown to the user.
func BuildSummary(p *domain.PendingTransaction) string {
	kind := "Expense"
	if p.IsReceived {
		kind = "Income"
	}

	category := "Uncategorized"
	if p.CategoryName != nil && *p.CategoryName != "" {
		category = *p.CategoryName
	}

	lines := []string{
		"Proposed transaction:",
		fmt.Sprintf("Date: %s", p.Date),
		fmt.Sprintf("Payee: %s", p.Payee),
		fmt.Sprintf("Amount: %s %s", decimal.NewFromFloat(p.Amount).StringFixed(2), p.Currency),
		fmt.Sprintf("Type: %s", kind),
		fmt.Sprintf("Account: %s", p.AccountLabel),
		fmt.Sprintf("Category: %s", category),
		"",
		fmt.Sprintf("Original text: %s", p.OriginalText),
	}
	return strings.Join(lines, "\n")
}
