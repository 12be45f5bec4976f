package lunchmoney

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// ManualAssetTypes are the asset types the bot may post to.
var ManualAssetTypes = map[string]bool{
	"cash":   true,
	"credit": true,
}

// Asset is a manually-managed account.
type Asset struct {
	ID          int64   `json:"id"`
	TypeName    string  `json:"type_name"`
	SubtypeName *string `json:"subtype_name"`
	Name        string  `json:"name"`
	DisplayName *string `json:"display_name"`
	Currency    string  `json:"currency"`
	Institution *string `json:"institution_name"`
}

// Label is the display name, or the name when there is none.
func (a Asset) Label() string {
	if a.DisplayName != nil && *a.DisplayName != "" {
		return *a.DisplayName
	}
	return a.Name
}

// Category is a Lunch Money category or category group.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsGroup  bool   `json:"is_group"`
	GroupID  *int64 `json:"group_id"`
	Archived bool   `json:"archived"`
}

// ListAssets returns every manually-managed asset.
func (c *Client) ListAssets(ctx context.Context) ([]Asset, error) {
	var resp struct {
		Assets []Asset `json:"assets"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/assets", nil, &resp); err != nil {
		return nil, fmt.Errorf("ListAssets: %w", err)
	}
	return resp.Assets, nil
}

// ListAccounts implements pipeline.LedgerSource. Only cash and credit
// assets are returned.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	assets, err := c.ListAssets(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(assets))
	for _, a := range assets {
		if !ManualAssetTypes[a.TypeName] {
			continue
		}
		accounts = append(accounts, domain.Account{ID: a.ID, Label: a.Label()})
	}
	return accounts, nil
}

// ListCategories implements pipeline.LedgerSource. Category groups are
// skipped.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var resp struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/categories", nil, &resp); err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}

	categories := make([]domain.Category, 0, len(resp.Categories))
	for _, cat := range resp.Categories {
		if cat.IsGroup {
			continue
		}
		categories = append(categories, domain.Category{ID: cat.ID, Name: cat.Name})
	}
	return categories, nil
}

type insertObject struct {
	Date       string `json:"date"`
	CategoryID *int64 `json:"category_id,omitempty"`
	Payee      string `json:"payee"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	AssetID    int64  `json:"asset_id"`
	Status     string `json:"status"`
	ExternalID string `json:"external_id,omitempty"`
}

type insertRequest struct {
	Transactions      []insertObject `json:"transactions"`
	ApplyRules        bool           `json:"apply_rules"`
	SkipDuplicates    bool           `json:"skip_duplicates"`
	CheckForRecurring bool           `json:"check_for_recurring"`
	DebitAsNegative   bool           `json:"debit_as_negative"`
	SkipBalanceUpdate bool           `json:"skip_balance_update"`
}

// InsertTransaction implements pipeline.LedgerWriter. Amounts follow the
// default convention: positive is a debit.
func (c *Client) InsertTransaction(ctx context.Context, rec domain.TransactionRecord) (int64, error) {
	body := insertRequest{
		Transactions: []insertObject{{
			Date:       rec.Date.String(),
			CategoryID: rec.CategoryID,
			Payee:      rec.Payee,
			Amount:     rec.Amount.String(),
			Currency:   rec.Currency,
			AssetID:    rec.AccountID,
			Status:     rec.Status,
			ExternalID: rec.ExternalID,
		}},
		SkipBalanceUpdate: true,
	}

	var resp struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", body, &resp); err != nil {
		return 0, fmt.Errorf("InsertTransaction: %w", err)
	}
	if len(resp.IDs) == 0 {
		return 0, errors.New("InsertTransaction: Lunch Money did not return a transaction id")
	}
	return resp.IDs[0], nil
}

// SetStatus implements pipeline.LedgerWriter.
func (c *Client) SetStatus(ctx context.Context, transactionID int64, status string) error {
	body := map[string]any{
		"transaction": map[string]string{"status": status},
	}

	var resp struct {
		Updated bool `json:"updated"`
	}
	path := "/v1/transactions/" + strconv.FormatInt(transactionID, 10)
	if err := c.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return fmt.Errorf("SetStatus: %w", err)
	}
	if !resp.Updated {
		return fmt.Errorf("SetStatus: transaction %d not updated", transactionID)
	}
	return nil
}

var (
	_ pipeline.LedgerSource = (*Client)(nil)
	_ pipeline.LedgerWriter = (*Client)(nil)
)
