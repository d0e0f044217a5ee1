package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     10,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connect error: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// Incr bumps currKey, refreshes its expiry and reads prevKey in one
// MULTI/EXEC round trip.
func (s *Store) Incr(ctx context.Context, currKey, prevKey string, ttl time.Duration) (int64, int64, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, currKey)
	pipe.PExpire(ctx, currKey, ttl)
	prevCmd := pipe.Get(ctx, prevKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}

	var raw any
	if v, err := prevCmd.Result(); err == nil {
		raw = v
	} else if !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	prev, err := toInt(raw)
	if err != nil {
		return 0, 0, err
	}
	return incr.Val(), prev, nil
}

func (s *Store) Decr(ctx context.Context, key string) error {
	return s.rdb.Decr(ctx, key).Err()
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("redis counter %q: %w", x, err)
		}
		return n, nil
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("redis counter has type %T", v)
	}
}
