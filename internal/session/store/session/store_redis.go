package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"authhub/internal/session/models"
	"authhub/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "session:"
	userSetKeyPrefix = "user_sessions:"
)

// RedisStore persists sessions in Redis for distributed deployments. Each session
// lives under its own key with a TTL matching its expiry; a per-user set
// supports the list and bulk-destroy operations. Set members whose session
// key has already expired are pruned lazily.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store. The client lifecycle is
// managed externally.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userSetKey(userID string) string {
	return userSetKeyPrefix + userID
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// Already expired; write nothing and let lookups miss.
		return nil
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
	pipe.SAdd(ctx, userSetKey(session.UserID), session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	session, err := s.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, userSetKey(session.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return true, nil
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	ids, err := s.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	// Count only sessions that still exist; expired keys already vanished.
	live := 0
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("check session: %w", err)
		}
		live += int(exists)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, userSetKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return live, nil
}

// DeleteExpired prunes user-set members whose session key has expired. The
// session payloads themselves are evicted by Redis TTLs; this keeps the
// index sets from growing without bound.
func (s *RedisStore) DeleteExpired(ctx context.Context, _ time.Time) (int, error) {
	pruned := 0
	iter := s.client.Scan(ctx, 0, userSetKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		ids, err := s.client.SMembers(ctx, setKey).Result()
		if err != nil {
			return pruned, fmt.Errorf("list user sessions: %w", err)
		}
		for _, id := range ids {
			exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
			if err != nil {
				return pruned, fmt.Errorf("check session: %w", err)
			}
			if exists == 0 {
				if err := s.client.SRem(ctx, setKey, id).Err(); err != nil {
					return pruned, fmt.Errorf("prune session index: %w", err)
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("scan session indexes: %w", err)
	}
	return pruned, nil
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	ids, err := s.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	var sessions []*models.Session
	for _, id := range ids {
		session, err := s.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
