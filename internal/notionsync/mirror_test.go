package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

type fakeNotion struct {
	pages    []notionapi.Page
	created  []notionapi.Properties
	updated  map[string]notionapi.Properties
	queryErr error
	lastReq  *notionapi.DatabaseQueryRequest
}

func (f *fakeNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	f.created = append(f.created, props)
	return &notionapi.Page{ID: "new-page"}, nil
}

func (f *fakeNotion) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	if f.updated == nil {
		f.updated = map[string]notionapi.Properties{}
	}
	f.updated[pageID] = props
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.lastReq = req
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &notionapi.DatabaseQueryResponse{Results: f.pages}, nil
}

func confirmedTx(amount string) pipeline.ConfirmedTransaction {
	catID := int64(11)
	catName := "Restaurants"
	return pipeline.ConfirmedTransaction{
		Pending: &domain.PendingTransaction{
			ConversationID: 42,
			OriginalText:   "Lunch 12.50 cash at Subway",
			AccountLabel:   "Cash",
			CategoryName:   &catName,
		},
		Record: domain.TransactionRecord{
			Date:       civil.Date{Year: 2024, Month: 3, Day: 14},
			CategoryID: &catID,
			Payee:      "Subway",
			Amount:     decimal.RequireFromString(amount),
			Currency:   "usd",
			AccountID:  1,
			ExternalID: "draft-1",
		},
		LedgerID:       987,
		StatusEnforced: true,
		ConfirmedAt:    time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestTransactionToNotionProperties(t *testing.T) {
	props := TransactionToNotionProperties(confirmedTx("12.5"))

	title := props[PropPayee].(notionapi.TitleProperty)
	assert.Equal(t, "Subway", title.Title[0].Text.Content)

	assert.Equal(t, 12.5, props[PropAmount].(notionapi.NumberProperty).Number)
	assert.Equal(t, "USD", props[PropCurrency].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "Expense", props[PropType].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "Restaurants", props[PropCategory].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "Cash", props[PropAccount].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.Equal(t, float64(987), props[PropLedgerID].(notionapi.NumberProperty).Number)
	assert.Equal(t, "draft-1", props[PropDraftID].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.True(t, props[PropStatusEnforced].(notionapi.CheckboxProperty).Checkbox)

	date := props[PropDate].(notionapi.DateProperty)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), time.Time(*date.Date.Start))
}

func TestTransactionToNotionProperties_IncomeAndUncategorized(t *testing.T) {
	tx := confirmedTx("-1500.25")
	tx.Pending.CategoryName = nil

	props := TransactionToNotionProperties(tx)

	assert.Equal(t, "Income", props[PropType].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, -1500.25, props[PropAmount].(notionapi.NumberProperty).Number)
	_, hasCategory := props[PropCategory]
	assert.False(t, hasCategory)
}

func TestMirror_CreatesNewPage(t *testing.T) {
	fake := &fakeNotion{}
	m := NewMirror(fake, "db-1")

	require.NoError(t, m.MirrorConfirmed(context.Background(), confirmedTx("12.5")))

	assert.Len(t, fake.created, 1)
	assert.Empty(t, fake.updated)
	filter, ok := fake.lastReq.Filter.(notionapi.PropertyFilter)
	require.True(t, ok)
	assert.Equal(t, PropDraftID, filter.Property)
	assert.Equal(t, "draft-1", filter.RichText.Equals)
}

func TestMirror_UpdatesExistingPage(t *testing.T) {
	fake := &fakeNotion{pages: []notionapi.Page{{
		ID: "page-7",
		Properties: notionapi.Properties{
			PropDraftID: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "draft-1"}}},
		},
	}}}
	m := NewMirror(fake, "db-1")

	require.NoError(t, m.MirrorConfirmed(context.Background(), confirmedTx("12.5")))

	assert.Empty(t, fake.created)
	assert.Contains(t, fake.updated, "page-7")
}

func TestMirror_QueryFailure(t *testing.T) {
	fake := &fakeNotion{queryErr: errors.New("rate limited")}
	m := NewMirror(fake, "db-1")

	err := m.MirrorConfirmed(context.Background(), confirmedTx("12.5"))
	assert.ErrorContains(t, err, "rate limited")
	assert.Empty(t, fake.created)
	assert.Equal(t, "notion", m.Name())
}
