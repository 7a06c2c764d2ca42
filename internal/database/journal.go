package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-trading-bot/internal/engine"
)

const (
	// pendingKeyPrefix is the prefix for individual pending update keys.
	// Format: pending:update:{tradeID}
	pendingKeyPrefix = "pending:update"

	// pendingSetKey holds the set of in-flight trade ids
	pendingSetKey = "pending:ids"

	// pendingTTL bounds how long an orphaned entry survives
	pendingTTL = 24 * time.Hour
)

// RedisJournal stores pending portfolio updates in Redis so an
// operator can see what was in flight if the process dies mid-trade.
// When Redis is unavailable it falls back to an in-memory map so
// trading continues without interruption.
type RedisJournal struct {
	client    *redis.Client
	logger    zerolog.Logger
	available atomic.Bool

	mu       sync.RWMutex
	fallback map[string]engine.PendingUpdate
}

// NewRedisJournal creates the journal. A nil client means memory-only
// operation.
func NewRedisJournal(client *redis.Client, logger zerolog.Logger) *RedisJournal {
	j := &RedisJournal{
		client:   client,
		logger:   logger,
		fallback: make(map[string]engine.PendingUpdate),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable at startup, journaling in memory")
		} else {
			logger.Info().Msg("redis journal connected")
			j.available.Store(true)
		}
	} else {
		logger.Info().Msg("no redis client configured, journaling in memory")
	}

	return j
}

func pendingKey(tradeID string) string {
	return fmt.Sprintf("%s:%s", pendingKeyPrefix, tradeID)
}

// Save journals a pending update. The in-memory map is always
// updated; a Redis failure downgrades to memory-only without error.
func (j *RedisJournal) Save(ctx context.Context, u engine.PendingUpdate) error {
	j.mu.Lock()
	j.fallback[u.TradeID] = u
	j.mu.Unlock()

	if j.client == nil || !j.available.Load() {
		return nil
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal pending update: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.Set(ctx, pendingKey(u.TradeID), data, pendingTTL)
	pipe.SAdd(ctx, pendingSetKey, u.TradeID)
	pipe.Expire(ctx, pendingSetKey, pendingTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		j.logger.Warn().Err(err).Str("trade_id", u.TradeID).Msg("redis save failed, journaling in memory")
		j.available.Store(false)
	}
	return nil
}

// Remove clears a journaled update after commit or rollback
func (j *RedisJournal) Remove(ctx context.Context, tradeID string) error {
	j.mu.Lock()
	delete(j.fallback, tradeID)
	j.mu.Unlock()

	if j.client == nil || !j.available.Load() {
		return nil
	}

	pipe := j.client.TxPipeline()
	pipe.Del(ctx, pendingKey(tradeID))
	pipe.SRem(ctx, pendingSetKey, tradeID)

	if _, err := pipe.Exec(ctx); err != nil {
		j.logger.Warn().Err(err).Str("trade_id", tradeID).Msg("redis remove failed")
		j.available.Store(false)
	}
	return nil
}

// Load returns all journaled updates, preferring Redis when reachable
func (j *RedisJournal) Load(ctx context.Context) ([]engine.PendingUpdate, error) {
	if j.client != nil && j.available.Load() {
		updates, err := j.loadFromRedis(ctx)
		if err == nil {
			return updates, nil
		}
		j.logger.Warn().Err(err).Msg("redis load failed, reading in-memory journal")
		j.available.Store(false)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	updates := make([]engine.PendingUpdate, 0, len(j.fallback))
	for _, u := range j.fallback {
		updates = append(updates, u)
	}
	return updates, nil
}

func (j *RedisJournal) loadFromRedis(ctx context.Context) ([]engine.PendingUpdate, error) {
	ids, err := j.client.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending ids: %w", err)
	}

	var updates []engine.PendingUpdate
	for _, id := range ids {
		data, err := j.client.Get(ctx, pendingKey(id)).Result()
		if err == redis.Nil {
			// Entry expired under its owner id, drop the dangling set member.
			j.client.SRem(ctx, pendingSetKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pending update %s: %w", id, err)
		}
		var u engine.PendingUpdate
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return nil, fmt.Errorf("failed to decode pending update %s: %w", id, err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

var _ engine.PendingJournal = (*RedisJournal)(nil)
