package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/manual-tx-bot/internal/jobs"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []jobs.Job
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, job jobs.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, job)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestIntake_Accept(t *testing.T) {
	pub := &fakePublisher{}
	in := NewIntake(pub, &fakeSender{})

	require.NoError(t, in.Accept(context.Background(), textUpdate(42, "hello")))
	require.Len(t, pub.published, 1)
	assert.Equal(t, int64(42), pub.published[0].GetConversationID())
}

func TestIntake_BacklogFullTellsUser(t *testing.T) {
	pub := &fakePublisher{err: fmt.Errorf("conversation 42: %w", jobs.ErrBacklogFull)}
	sender := &fakeSender{}
	in := NewIntake(pub, sender)

	require.NoError(t, in.Accept(context.Background(), textUpdate(42, "hello")))
	assert.Equal(t, []string{msgBusy}, sender.texts())
}

func TestIntake_OtherErrorsPropagate(t *testing.T) {
	pub := &fakePublisher{err: jobs.ErrQueueClosed}
	in := NewIntake(pub, &fakeSender{})

	assert.ErrorIs(t, in.Accept(context.Background(), textUpdate(42, "hello")), jobs.ErrQueueClosed)
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
	once    sync.Once
}

func (s *fakeSource) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.ch
}

func (s *fakeSource) StopReceivingUpdates() {
	s.once.Do(func() { close(s.stopped) })
}

func TestPoll(t *testing.T) {
	src := &fakeSource{ch: make(chan tgbotapi.Update, 2), stopped: make(chan struct{})}
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Poll(ctx, src, NewIntake(pub, &fakeSender{})) }()

	src.ch <- textUpdate(1, "a")
	src.ch <- textUpdate(2, "b")

	require.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	select {
	case <-src.stopped:
	default:
		t.Fatal("updates were not stopped")
	}
}

func TestPoll_StopsWhenQueueCloses(t *testing.T) {
	src := &fakeSource{ch: make(chan tgbotapi.Update, 1), stopped: make(chan struct{})}
	pub := &fakePublisher{err: jobs.ErrQueueClosed}

	src.ch <- textUpdate(1, "a")
	err := Poll(context.Background(), src, NewIntake(pub, &fakeSender{}))
	assert.True(t, errors.Is(err, jobs.ErrQueueClosed))
}

type fakeRegistrar struct {
	endpoint string
	params   tgbotapi.Params
}

func (r *fakeRegistrar) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	r.endpoint, r.params = endpoint, params
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestRegisterWebhook(t *testing.T) {
	r := &fakeRegistrar{}
	require.NoError(t, RegisterWebhook(r, "https://bot.example.com/telegram/webhook", "s3cret"))
	assert.Equal(t, "setWebhook", r.endpoint)
	assert.Equal(t, "https://bot.example.com/telegram/webhook", r.params["url"])
	assert.Equal(t, "s3cret", r.params["secret_token"])

	require.NoError(t, RegisterWebhook(r, "https://x", ""))
	_, hasSecret := r.params["secret_token"]
	assert.False(t, hasSecret)
}
