package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dvloznov/manual-tx-bot/internal/api/middleware"
	"github.com/dvloznov/manual-tx-bot/internal/jobs"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
)

// maxUpdateBytes bounds a single webhook body.
const maxUpdateBytes = 1 << 20

// UpdateAcceptor queues a Telegram update for processing.
type UpdateAcceptor interface {
	Accept(ctx context.Context, u tgbotapi.Update) error
}

// WebhookHandler receives Telegram webhook deliveries.
type WebhookHandler struct {
	intake UpdateAcceptor
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(intake UpdateAcceptor) *WebhookHandler {
	return &WebhookHandler{intake: intake}
}

// ReceiveUpdate handles POST <webhook path>. The update is queued and
// acknowledged right away; replies go out through the bot API.
func (h *WebhookHandler) ReceiveUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		log.Warn().Err(err).Msg("Invalid webhook body")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid update")
		return
	}

	// The request context ends when we respond; queueing must outlive it.
	if err := h.intake.Accept(context.WithoutCancel(ctx), update); err != nil {
		log.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to queue update")
		if errors.Is(err, jobs.ErrQueueClosed) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Shutting down")
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to queue update")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
