package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/matching"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// Callback data carried by the confirmation buttons.
const (
	CallbackConfirm = "confirm_tx"
	CallbackCancel  = "cancel_tx"
)

const (
	msgStart = "Send a transaction like: 'Lunch 12.50 yesterday cash at Subway'. " +
		"I will parse it and ask you to confirm before saving. " +
		"Use /accounts to see account names and IDs."
	msgNoAccounts    = "No manual accounts found in Lunch Money. Add a cash or credit account before using this bot."
	msgMissingPayee  = "Missing payee. Please include who the transaction was with."
	msgMissingAmount = "Missing amount. Please include the amount."
	msgLedgerDown    = "Could not reach Lunch Money. Please try again later."
	msgInternal      = "Something went wrong. Please try again."
	msgCancelled     = "Cancelled. Send a new transaction when ready."
	msgBusy          = "Still working on your earlier messages. Please wait a moment and resend."

	toastSaved      = "Saved"
	toastCancelled  = "Cancelled"
	toastNoPending  = "No pending transaction"
	toastSaveFailed = "Failed to save transaction. Check logs."
)

func savedText(res *pipeline.ConfirmResult) string {
	text := fmt.Sprintf("Saved transaction in Lunch Money (id %d).", res.TransactionID)
	if res.Warning != nil {
		text += "\nCould not mark it as uncleared, please review it in Lunch Money."
	}
	return text
}

func accountsText(accounts []domain.Account) string {
	if len(accounts) == 0 {
		return msgNoAccounts
	}
	lines := []string{"Manual accounts:"}
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf("- %s (id %d)", a.Label, a.ID))
	}
	return strings.Join(lines, "\n")
}

// draftErrorText maps a failed draft to the reply shown to the user.
func draftErrorText(err error) string {
	var (
		validationErr *pipeline.ValidationError
		ambiguousErr  *pipeline.ResolutionAmbiguousError
		extractionErr *pipeline.ExtractionError
		ledgerErr     *pipeline.LedgerError
	)

	switch {
	case errors.Is(err, pipeline.ErrNoAccounts):
		return msgNoAccounts
	case errors.As(err, &validationErr):
		if validationErr.Field == "payee" {
			return msgMissingPayee
		}
		return msgMissingAmount
	case errors.As(err, &ambiguousErr):
		return "Could not match an account. Include one of your account names in the message, " +
			"or set DEFAULT_ACCOUNT_ID.\n" +
			"Available accounts: " + matching.FormatAccountOptions(ambiguousErr.Accounts, matching.DefaultOptionLimit)
	case errors.As(err, &extractionErr):
		return "Failed to parse transaction: " + extractionErr.Error()
	case errors.As(err, &ledgerErr):
		return msgLedgerDown
	default:
		return msgInternal
	}
}
