package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dvloznov/manual-tx-bot/internal/jobs"
)

// UpdateJob carries one Telegram update through the dispatcher.
type UpdateJob struct {
	Update tgbotapi.Update
}

// NewUpdateJob wraps an update.
func NewUpdateJob(u tgbotapi.Update) *UpdateJob {
	return &UpdateJob{Update: u}
}

// GetID implements the Job interface.
func (j *UpdateJob) GetID() string {
	return "update-" + strconv.Itoa(j.Update.UpdateID)
}

// GetType implements the Job interface.
func (j *UpdateJob) GetType() jobs.JobType {
	switch {
	case j.Update.CallbackQuery != nil:
		return jobs.JobTypeCallback
	case j.Update.Message != nil:
		return jobs.JobTypeMessage
	default:
		return jobs.JobTypeOther
	}
}

// GetConversationID implements the Job interface. Updates without a chat
// share lane 0.
func (j *UpdateJob) GetConversationID() int64 {
	if chat := j.Update.FromChat(); chat != nil {
		return chat.ID
	}
	return 0
}

var _ jobs.Job = (*UpdateJob)(nil)
