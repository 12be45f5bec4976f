// Package notionsync copies confirmed transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// Mirror is a pipeline.ConfirmationMirror backed by a Notion database.
// Pages are keyed by draft id, so mirroring the same transaction twice
// updates the page instead of duplicating it.
type Mirror struct {
	client     NotionService
	databaseID string
}

// NewMirror creates a mirror writing to databaseID.
func NewMirror(client NotionService, databaseID string) *Mirror {
	return &Mirror{client: client, databaseID: databaseID}
}

// Name implements pipeline.ConfirmationMirror.
func (m *Mirror) Name() string { return "notion" }

// MirrorConfirmed implements pipeline.ConfirmationMirror.
func (m *Mirror) MirrorConfirmed(ctx context.Context, tx pipeline.ConfirmedTransaction) error {
	log := logger.FromContext(ctx)
	props := TransactionToNotionProperties(tx)
	draftID := tx.Record.ExternalID

	existing, err := m.findPage(ctx, draftID)
	if err != nil {
		return fmt.Errorf("MirrorConfirmed: %w", err)
	}

	if existing != "" {
		if _, err := m.client.UpdatePage(ctx, existing, props); err != nil {
			return fmt.Errorf("MirrorConfirmed: %w", err)
		}
		log.Debug().Str("draft_id", draftID).Str("page_id", existing).Msg("Updated Notion page")
		return nil
	}

	page, err := m.client.CreatePage(ctx, m.databaseID, props)
	if err != nil {
		return fmt.Errorf("MirrorConfirmed: %w", err)
	}
	log.Debug().Str("draft_id", draftID).Str("page_id", string(page.ID)).Msg("Created Notion page")
	return nil
}

// findPage returns the id of the page holding draftID, or "".
func (m *Mirror) findPage(ctx context.Context, draftID string) (string, error) {
	if draftID == "" {
		return "", nil
	}

	resp, err := m.client.QueryDatabase(ctx, m.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropDraftID,
			RichText: &notionapi.TextFilterCondition{Equals: draftID},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", err
	}

	for _, page := range resp.Results {
		if extractDraftID(page) == draftID {
			return string(page.ID), nil
		}
	}
	return "", nil
}

var _ pipeline.ConfirmationMirror = (*Mirror)(nil)
