package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

const sessionKeyPrefix = "tabletalk:payment:"

// RedisSessionStore keeps payment sessions in Redis so multiple engine
// processes can serve turns for the same call. The key TTL is a backstop;
// the coordinator still deletes and sweeps sessions explicitly.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(addr string, db int, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Put inserts or updates the session for its call id.
func (s *RedisSessionStore) Put(ctx context.Context, session ports.PaymentSession) error {
	session.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+session.CallID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the session for a call id.
func (s *RedisSessionStore) Get(ctx context.Context, callID string) (ports.PaymentSession, bool, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.PaymentSession{}, false, nil
	}
	if err != nil {
		return ports.PaymentSession{}, false, fmt.Errorf("failed to load session: %w", err)
	}

	var session ports.PaymentSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return ports.PaymentSession{}, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, true, nil
}

// Delete pops the session for a call id, returning what was stored.
func (s *RedisSessionStore) Delete(ctx context.Context, callID string) (ports.PaymentSession, bool, error) {
	payload, err := s.client.GetDel(ctx, sessionKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.PaymentSession{}, false, nil
	}
	if err != nil {
		return ports.PaymentSession{}, false, fmt.Errorf("failed to delete session: %w", err)
	}

	var session ports.PaymentSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return ports.PaymentSession{}, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, true, nil
}

// Sweep removes sessions started before the cutoff and reports how many.
func (s *RedisSessionStore) Sweep(ctx context.Context, startedBefore time.Time) (int, error) {
	var cursor uint64
	removed := 0

	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan sessions: %w", err)
		}

		for _, key := range keys {
			payload, err := s.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return removed, fmt.Errorf("failed to load session %s: %w", key, err)
			}

			var session ports.PaymentSession
			if err := json.Unmarshal(payload, &session); err != nil {
				// Unreadable entries are dead weight; drop them.
				if delErr := s.client.Del(ctx, key).Err(); delErr == nil {
					removed++
				}
				continue
			}

			if session.StartedAt.Before(startedBefore) {
				if err := s.client.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("failed to delete session %s: %w", key, err)
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}

// Close releases the underlying Redis client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Ensure RedisSessionStore implements the SessionStore interface.
var _ ports.SessionStore = (*RedisSessionStore)(nil)
