package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/manual-tx-bot/internal/jobs"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
)

// DefaultMaxBacklog is the per-conversation queue limit used when none is given.
const DefaultMaxBacklog = 16

// Queue is an in-memory job dispatcher with one lane per conversation.
// Jobs in the same lane run sequentially in publish order; different lanes
// run concurrently. A lane's goroutine exists only while it has work.
type Queue struct {
	mu         sync.Mutex
	lanes      map[int64]*lane
	maxBacklog int

	handler jobs.JobHandler
	runCtx  context.Context
	started bool
	closed  bool

	wg sync.WaitGroup
}

type lane struct {
	pending []jobs.Job
}

// NewQueue creates a dispatcher. maxBacklog bounds how many jobs may wait
// per conversation, not counting the one being handled.
func NewQueue(maxBacklog int) *Queue {
	if maxBacklog <= 0 {
		maxBacklog = DefaultMaxBacklog
	}
	return &Queue{
		lanes:      make(map[int64]*lane),
		maxBacklog: maxBacklog,
	}
}

// Start implements the Consumer interface. ctx is the parent of every
// handler call; cancelling it drops jobs that have not started yet.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}
	if q.started {
		return fmt.Errorf("queue already started")
	}
	q.handler = handler
	q.runCtx = ctx
	q.started = true
	return nil
}

// Publish implements the Publisher interface.
func (q *Queue) Publish(ctx context.Context, job jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}
	if !q.started {
		return jobs.ErrNotStarted
	}

	convID := job.GetConversationID()
	l, running := q.lanes[convID]
	if !running {
		l = &lane{}
		q.lanes[convID] = l
	}
	if len(l.pending) >= q.maxBacklog {
		return fmt.Errorf("conversation %d: %w", convID, jobs.ErrBacklogFull)
	}
	l.pending = append(l.pending, job)

	if !running {
		q.wg.Add(1)
		go q.drain(convID, l)
	}
	return nil
}

// drain runs a lane until it is empty, then removes it.
func (q *Queue) drain(convID int64, l *lane) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(l.pending) == 0 {
			delete(q.lanes, convID)
			q.mu.Unlock()
			return
		}
		job := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		ctx := q.runCtx
		q.mu.Unlock()

		if ctx.Err() != nil {
			log := logger.FromContext(ctx)
			log.Warn().
				Str("job_id", job.GetID()).
				Int64("chat_id", convID).
				Msg("Dropping job, dispatcher context is done")
			continue
		}

		q.processJob(ctx, job)
	}
}

// processJob executes a single job. Handler errors and panics are logged
// and do not stop the lane.
func (q *Queue) processJob(ctx context.Context, job jobs.Job) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.GetID()).
		Str("job_type", string(job.GetType())).
		Int64("chat_id", job.GetConversationID()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Job handler panicked")
		}
	}()

	start := time.Now()
	if err := q.handler(ctx, job); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Job failed")
		return
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Job completed")
}

// Backlog returns how many jobs are waiting for a conversation.
func (q *Queue) Backlog(convID int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[convID]; ok {
		return len(l.pending)
	}
	return 0
}

// Stop implements the Consumer interface. New jobs are refused; queued and
// in-flight jobs finish unless ctx expires first.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
