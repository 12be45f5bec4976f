package jobs

import (
	"context"
	"errors"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeMessage is a text or command message from a chat.
	JobTypeMessage JobType = "message"
	// JobTypeCallback is an inline keyboard button press.
	JobTypeCallback JobType = "callback"
	// JobTypeOther covers updates the bot ignores.
	JobTypeOther JobType = "other"
)

var (
	// ErrQueueClosed is returned when publishing after Stop.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrNotStarted is returned when publishing before Start.
	ErrNotStarted = errors.New("queue is not started")
	// ErrBacklogFull is returned when a conversation has too many queued jobs.
	ErrBacklogFull = errors.New("conversation backlog is full")
)

// Job is one unit of work tied to a conversation.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetConversationID returns the chat the job belongs to. Jobs that
	// share a conversation are handled one at a time, in publish order.
	GetConversationID() int64
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// Publish enqueues a job behind earlier jobs of the same conversation.
	Publish(ctx context.Context, job Job) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job. Errors are logged and
// never retried.
type JobHandler func(ctx context.Context, job Job) error
