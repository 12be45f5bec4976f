// Package telegram turns chat updates into pipeline calls and replies.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/jobs"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// Sender is the part of *tgbotapi.BotAPI the handler talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TransactionService is what the handler needs from the pipeline.
type TransactionService interface {
	Draft(ctx context.Context, conversationID int64, text string) (*domain.PendingTransaction, error)
	Confirm(ctx context.Context, conversationID int64) (*pipeline.ConfirmResult, error)
	Cancel(ctx context.Context, conversationID int64) (bool, error)
	Accounts(ctx context.Context) ([]domain.Account, error)
}

// Handler processes updates for one conversation at a time.
type Handler struct {
	sender Sender
	svc    TransactionService
}

// NewHandler creates a new update handler.
func NewHandler(sender Sender, svc TransactionService) *Handler {
	return &Handler{sender: sender, svc: svc}
}

// HandleJob is a jobs.JobHandler for *UpdateJob.
func (h *Handler) HandleJob(ctx context.Context, job jobs.Job) error {
	uj, ok := job.(*UpdateJob)
	if !ok {
		return fmt.Errorf("unexpected job type %T", job)
	}
	return h.HandleUpdate(ctx, uj.Update)
}

// HandleUpdate routes a single update. Only failures to talk to Telegram
// are returned; pipeline errors become replies.
func (h *Handler) HandleUpdate(ctx context.Context, u tgbotapi.Update) error {
	switch {
	case u.CallbackQuery != nil:
		return h.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		return h.handleMessage(ctx, u.Message)
	}
	return nil
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID
	ctx, log := logger.WithConversation(ctx, chatID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			return h.reply(chatID, msgStart, nil)
		case "accounts":
			return h.handleAccounts(ctx, chatID)
		}
		log.Debug().Str("command", msg.Command()).Msg("Ignoring unknown command")
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	pending, err := h.svc.Draft(ctx, chatID, text)
	if err != nil {
		logDraftError(log, err)
		return h.reply(chatID, draftErrorText(err), nil)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Confirm", CallbackConfirm)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Cancel", CallbackCancel)),
	)
	return h.reply(chatID, pipeline.BuildSummary(pending), keyboard)
}

func (h *Handler) handleAccounts(ctx context.Context, chatID int64) error {
	accounts, err := h.svc.Accounts(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list accounts")
		return h.reply(chatID, msgLedgerDown, nil)
	}
	return h.reply(chatID, accountsText(accounts), nil)
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.Message == nil || cq.Message.Chat == nil {
		h.answer(ctx, tgbotapi.NewCallback(cq.ID, toastNoPending))
		return nil
	}
	chatID := cq.Message.Chat.ID
	ctx, log := logger.WithConversation(ctx, chatID)

	switch cq.Data {
	case CallbackConfirm:
		res, err := h.svc.Confirm(ctx, chatID)
		if errors.Is(err, pipeline.ErrNoPending) {
			h.answer(ctx, tgbotapi.NewCallback(cq.ID, toastNoPending))
			h.removeKeyboard(ctx, cq.Message)
			return nil
		}
		if err != nil {
			log.Error().Err(err).Msg("Confirm failed")
			h.answer(ctx, tgbotapi.NewCallbackWithAlert(cq.ID, toastSaveFailed))
			return nil
		}
		h.answer(ctx, tgbotapi.NewCallback(cq.ID, toastSaved))
		h.removeKeyboard(ctx, cq.Message)
		return h.reply(chatID, savedText(res), nil)

	case CallbackCancel:
		if _, err := h.svc.Cancel(ctx, chatID); err != nil {
			log.Error().Err(err).Msg("Cancel failed")
			h.answer(ctx, tgbotapi.NewCallbackWithAlert(cq.ID, msgInternal))
			return nil
		}
		h.answer(ctx, tgbotapi.NewCallback(cq.ID, toastCancelled))
		h.removeKeyboard(ctx, cq.Message)
		return h.reply(chatID, msgCancelled, nil)
	}

	log.Debug().Str("data", cq.Data).Msg("Ignoring unknown callback")
	h.answer(ctx, tgbotapi.NewCallback(cq.ID, ""))
	return nil
}

func (h *Handler) reply(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := h.sender.Send(msg); err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}

// answer acknowledges a button press. Failures only cost the user a
// spinner, so they are logged.
func (h *Handler) answer(ctx context.Context, cb tgbotapi.CallbackConfig) {
	if _, err := h.sender.Request(cb); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to answer callback")
	}
}

func (h *Handler) removeKeyboard(ctx context.Context, msg *tgbotapi.Message) {
	edit := tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, msg.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := h.sender.Request(edit); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Int("message_id", msg.MessageID).Msg("Failed to remove keyboard")
	}
}

func logDraftError(log zerolog.Logger, err error) {
	var validationErr *pipeline.ValidationError
	if errors.As(err, &validationErr) || errors.Is(err, pipeline.ErrNoAccounts) {
		log.Info().Err(err).Msg("Draft rejected")
		return
	}
	log.Error().Err(err).Msg("Draft failed")
}
