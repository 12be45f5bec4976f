package notionsync

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// Property names of the Notion transactions database.
const (
	PropPayee          = "Payee"
	PropDate           = "Date"
	PropAmount         = "Amount"
	PropCurrency       = "Currency"
	PropType           = "Type"
	PropAccount        = "Account"
	PropCategory       = "Category"
	PropLedgerID       = "Ledger ID"
	PropDraftID        = "Draft ID"
	PropStatusEnforced = "Status Enforced"
	PropOriginalText   = "Original Text"
	PropConfirmedAt    = "Confirmed At"
)

// TransactionToNotionProperties converts a confirmed transaction to Notion
// properties. Amount keeps the ledger sign (negative is money in).
func TransactionToNotionProperties(tx pipeline.ConfirmedTransaction) notionapi.Properties {
	rec := tx.Record

	props := notionapi.Properties{
		PropPayee: notionapi.TitleProperty{
			Title: richText(rec.Payee),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: civilDate(rec.Date)},
		},
		PropAmount: notionapi.NumberProperty{
			Number: rec.Amount.InexactFloat64(),
		},
		PropCurrency: notionapi.SelectProperty{
			Select: notionapi.Option{Name: strings.ToUpper(rec.Currency)},
		},
		PropLedgerID: notionapi.NumberProperty{
			Number: float64(tx.LedgerID),
		},
		PropDraftID: notionapi.RichTextProperty{
			RichText: richText(rec.ExternalID),
		},
		PropStatusEnforced: notionapi.CheckboxProperty{
			Checkbox: tx.StatusEnforced,
		},
	}

	txType := "Expense"
	if rec.Amount.IsNegative() {
		txType = "Income"
	}
	props[PropType] = notionapi.SelectProperty{Select: notionapi.Option{Name: txType}}

	if p := tx.Pending; p != nil {
		if p.AccountLabel != "" {
			props[PropAccount] = notionapi.RichTextProperty{RichText: richText(p.AccountLabel)}
		}
		if p.CategoryName != nil && *p.CategoryName != "" {
			props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: *p.CategoryName}}
		}
		if p.OriginalText != "" {
			props[PropOriginalText] = notionapi.RichTextProperty{RichText: richText(p.OriginalText)}
		}
	}

	if !tx.ConfirmedAt.IsZero() {
		confirmed := notionapi.Date(tx.ConfirmedAt)
		props[PropConfirmedAt] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &confirmed},
		}
	}

	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func civilDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return &nd
}

// extractDraftID reads the draft id back from a page.
func extractDraftID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropDraftID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
