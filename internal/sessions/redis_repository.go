package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "workouts:session:"

// ErrDuplicateRefresh means a refresh token is already stored.
var ErrDuplicateRefresh = errors.New("refresh token already stored")

// RedisRepository keeps one JSON value per session under prefix+refresh token.
// Each key expires together with its session, so it needs no purge job.
type RedisRepository struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRepository(rdb *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

// remaining is the key TTL for a session; Redis rejects non-positive expirations.
func remaining(expiresAt time.Time) time.Duration {
	if d := time.Until(expiresAt); d > time.Second {
		return d
	}
	return time.Second
}

// decode turns a GET/GETDEL reply into a session; a missing key is (nil, nil).
func decode(payload []byte, err error) (*Session, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	stored, err := r.rdb.SetNX(ctx, r.prefix+s.RefreshToken, payload, remaining(s.ExpiresAt)).Result()
	if err != nil {
		return err
	}
	if !stored {
		return ErrDuplicateRefresh
	}
	return nil
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	return decode(r.rdb.Get(ctx, r.prefix+refresh).Bytes())
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	return r.rdb.Del(ctx, r.prefix+refresh).Err()
}

// Consume uses GETDEL so the read and the delete happen as one command.
func (r *RedisRepository) Consume(ctx context.Context, refresh string) (*Session, error) {
	return decode(r.rdb.GetDel(ctx, r.prefix+refresh).Bytes())
}
