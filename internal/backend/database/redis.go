package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jo-hoe/gopicker/internal/picker"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "gopicker:session:"

// RedisDatabase stores sessions as string keys that expire after ttl, so
// expired sessions vanish without a sweep.
type RedisDatabase struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDatabase connects using a redis:// URL; ttl <= 0 keeps keys forever
func NewRedisDatabase(connectionString string, ttl time.Duration) (DatabaseService, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	return &RedisDatabase{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisDatabase) CreateDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisDatabase) DoesDatabaseExist() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisDatabase) Close() error {
	return r.client.Close()
}

func (r *RedisDatabase) SaveSession(ctx context.Context, session *picker.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, redisKey(session.ID), data, ttl).Err()
}

func (r *RedisDatabase) GetSession(ctx context.Context, id string) (*picker.Session, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession(data)
}

func (r *RedisDatabase) DeleteSession(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKey(id)).Err()
}

// DeleteExpiredSessions is a no-op; redis expires keys itself
func (r *RedisDatabase) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
