package completion

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	completedKeyPrefix = "gymrunner-completion||"
	totalKeyPrefix     = "gymrunner-completion-total||"

	DefaultTTL = 30 * 24 * time.Hour
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps completed tokens in a redis set per section.
// SADD of an existing member is a no-op, which gives idempotent marking for free.
// Every write pushes the key expiry ttl further; a zero ttl keeps keys forever.
type RedisStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (s *RedisStore) Add(ctx context.Context, sectionKey string, tokens ...string) error {
	key := completedKeyPrefix + sectionKey
	if err := s.redisClient.SAdd(ctx, key, toMembers(tokens)...).Err(); err != nil {
		return err
	}
	return s.expire(ctx, key)
}

func (s *RedisStore) Remove(ctx context.Context, sectionKey string, tokens ...string) error {
	return s.redisClient.SRem(ctx, completedKeyPrefix+sectionKey, toMembers(tokens)...).Err()
}

func (s *RedisStore) Members(ctx context.Context, sectionKey string) ([]string, error) {
	cmd := s.redisClient.SMembers(ctx, completedKeyPrefix+sectionKey)
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	return cmd.Val(), nil
}

func (s *RedisStore) Count(ctx context.Context, sectionKey string) (int, error) {
	cmd := s.redisClient.SCard(ctx, completedKeyPrefix+sectionKey)
	if err := cmd.Err(); err != nil {
		return 0, err
	}
	return int(cmd.Val()), nil
}

func (s *RedisStore) SetTotal(ctx context.Context, sectionKey string, total int) error {
	return s.redisClient.Set(ctx, totalKeyPrefix+sectionKey, total, s.ttl).Err()
}

func (s *RedisStore) Total(ctx context.Context, sectionKey string) (int, bool, error) {
	cmd := s.redisClient.Get(ctx, totalKeyPrefix+sectionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	total, err := strconv.Atoi(cmd.Val())
	if err != nil {
		return 0, false, err
	}
	return total, true, nil
}

func (s *RedisStore) Clear(ctx context.Context, sectionKey string) error {
	return s.redisClient.Del(ctx, completedKeyPrefix+sectionKey).Err()
}

func (s *RedisStore) expire(ctx context.Context, key string) error {
	if s.ttl == 0 {
		return nil
	}
	return s.redisClient.Expire(ctx, key, s.ttl).Err()
}

func toMembers(tokens []string) []interface{} {
	members := make([]interface{}, 0, len(tokens))
	for _, t := range tokens {
		members = append(members, t)
	}
	return members
}
