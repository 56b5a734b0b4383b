package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"SteamPM/internal/catalog"
)

const redisSnapshotKey = "steampm:catalog:snapshot"

type redisEnvelope struct {
	SavedAt time.Time       `json:"saved_at"`
	Entries []catalog.Entry `json:"entries"`
}

// RedisStore keeps the snapshot as one JSON value without expiry.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr given as tcp://[:password@]host:port[/db].
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, key: redisSnapshotKey}, nil
}

func parseRedisURL(addr string) (*redis.Options, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redis url %q has no host", addr)
	}

	var passwd string
	if u.User != nil {
		passwd, _ = u.User.Password()
	}
	db := 0
	if len(u.Path) > 1 {
		db, err = strconv.Atoi(u.Path[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid redis db in %q: %w", addr, err)
		}
	}

	network := u.Scheme
	if network == "" || network == "redis" {
		network = "tcp"
	}
	return &redis.Options{
		Network:  network,
		Addr:     u.Host,
		Password: passwd,
		DB:       db,
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, entries []catalog.Entry) error {
	data, err := json.Marshal(redisEnvelope{SavedAt: time.Now().UTC(), Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context) ([]catalog.Entry, time.Time, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, ErrNoSnapshot
		}
		return nil, time.Time{}, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return env.Entries, env.SavedAt, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
