package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

const (
	redisKeyPrefix = "sgpt:session:"
	redisIndexKey  = "sgpt:sessions"
)

// RedisStore keeps each session as a Redis list of JSON turns. Sessions
// expire after ttl without writes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// OpenRedisStore parses url and verifies the server answers.
func OpenRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, &domain.ConfigError{Key: "chat.redis_url", Err: err}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisStore(client, ttl), nil
}

// Append implements ports.SessionStore. The push and the index update run
// in one MULTI/EXEC block.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turn domain.Turn) error {
	if sessionID == "" {
		return fmt.Errorf("append turn: empty session id")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	val, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	key := s.key(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, val)
		pipe.SAdd(ctx, redisIndexKey, sessionID)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Load implements ports.SessionStore.
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	vals, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load session: %w", err)
	}
	turns := make([]domain.Turn, 0, len(vals))
	for _, val := range vals {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(val), &turn); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// List implements ports.SessionStore. Expired sessions are pruned from the
// index as they are found.
func (s *RedisStore) List(ctx context.Context) ([]domain.SessionSummary, error) {
	ids, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var out []domain.SessionSummary
	for _, id := range ids {
		key := s.key(id)
		n, err := s.client.LLen(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			s.client.SRem(ctx, redisIndexKey, id)
			continue
		}
		summary := domain.SessionSummary{ID: id, Turns: int(n)}
		if last, err := s.client.LIndex(ctx, key, -1).Result(); err == nil {
			var turn domain.Turn
			if json.Unmarshal([]byte(last), &turn) == nil {
				summary.UpdatedAt = turn.Timestamp
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Close implements ports.SessionStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

var _ ports.SessionStore = (*RedisStore)(nil)
