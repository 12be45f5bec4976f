package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/pending"
)

const (
	// DefaultTTL bounds how long an unanswered draft survives.
	DefaultTTL = 24 * time.Hour

	// KeyPrefix namespaces draft keys.
	KeyPrefix = "manual-tx-bot:pending:"
)

// Store keeps drafts in Redis, one JSON value per conversation. Each call
// is a single Redis command, so operations on one key never interleave.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore wraps an existing client. ttl <= 0 uses DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Open parses a redis:// URL, connects and pings.
func Open(ctx context.Context, url string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("Open: parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Open: ping redis: %w", err)
	}

	return NewStore(client, ttl), nil
}

func key(conversationID int64) string {
	return KeyPrefix + strconv.FormatInt(conversationID, 10)
}

// Set implements pending.Store.
func (s *Store) Set(ctx context.Context, conversationID int64, txn *domain.PendingTransaction) error {
	if txn == nil {
		return fmt.Errorf("Set: nil transaction for conversation %d", conversationID)
	}

	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("Set: marshal draft: %w", err)
	}

	if err := s.client.Set(ctx, key(conversationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

// Get implements pending.Store.
func (s *Store) Get(ctx context.Context, conversationID int64) (*domain.PendingTransaction, bool, error) {
	val, err := s.client.Get(ctx, key(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Get: %w", err)
	}

	var txn domain.PendingTransaction
	if err := json.Unmarshal(val, &txn); err != nil {
		// A value we cannot read is as good as no draft.
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Int64("chat_id", conversationID).Msg("Discarding unreadable pending draft")
		_ = s.client.Del(ctx, key(conversationID)).Err()
		return nil, false, nil
	}
	return &txn, true, nil
}

// Clear implements pending.Store.
func (s *Store) Clear(ctx context.Context, conversationID int64) (bool, error) {
	n, err := s.client.Del(ctx, key(conversationID)).Result()
	if err != nil {
		return false, fmt.Errorf("Clear: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ pending.Store = (*Store)(nil)
