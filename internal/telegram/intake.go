package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dvloznov/manual-tx-bot/internal/jobs"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
)

// Intake hands incoming updates to the dispatcher. Polling and the
// webhook endpoint both go through it.
type Intake struct {
	publisher jobs.Publisher
	sender    Sender
}

// NewIntake creates an intake publishing to p. sender is used to tell a
// user when their conversation is backed up.
func NewIntake(p jobs.Publisher, sender Sender) *Intake {
	return &Intake{publisher: p, sender: sender}
}

// Accept queues an update. A full backlog is answered in chat and not
// reported as an error.
func (i *Intake) Accept(ctx context.Context, u tgbotapi.Update) error {
	job := NewUpdateJob(u)
	err := i.publisher.Publish(ctx, job)
	if !errors.Is(err, jobs.ErrBacklogFull) {
		return err
	}

	log := logger.FromContext(ctx)
	log.Warn().Int64("chat_id", job.GetConversationID()).Int("update_id", u.UpdateID).Msg("Conversation backlog full, dropping update")

	if chat := u.FromChat(); chat != nil && i.sender != nil {
		if _, sendErr := i.sender.Send(tgbotapi.NewMessage(chat.ID, msgBusy)); sendErr != nil {
			log.Warn().Err(sendErr).Msg("Failed to send busy notice")
		}
	}
	return nil
}

// UpdateSource is the long-polling side of *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// DefaultPollTimeout is the long-poll timeout in seconds.
const DefaultPollTimeout = 60

// Poll feeds updates from src into the intake until ctx is done or the
// dispatcher is closed.
func Poll(ctx context.Context, src UpdateSource, intake *Intake) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = DefaultPollTimeout
	updates := src.GetUpdatesChan(cfg)
	defer src.StopReceivingUpdates()

	log := logger.FromContext(ctx)
	log.Info().Msg("Polling for updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := intake.Accept(ctx, u); err != nil {
				if errors.Is(err, jobs.ErrQueueClosed) {
					return err
				}
				log.Error().Err(err).Int("update_id", u.UpdateID).Msg("Failed to queue update")
			}
		}
	}
}

// WebhookRegistrar is the raw-request side of *tgbotapi.BotAPI.
type WebhookRegistrar interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// RegisterWebhook points Telegram at url. Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func RegisterWebhook(r WebhookRegistrar, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	resp, err := r.MakeRequest("setWebhook", params)
	if err != nil {
		return err
	}
	if !resp.Ok {
		return errors.New("setWebhook rejected: " + resp.Description)
	}
	return nil
}

// DeleteWebhook switches the bot back to polling.
func DeleteWebhook(r WebhookRegistrar) error {
	_, err := r.MakeRequest("deleteWebhook", tgbotapi.Params{})
	return err
}
