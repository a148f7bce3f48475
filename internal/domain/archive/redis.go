package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a redis-backed archive and verifies the
// connection up front.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "deafine:session:"
	}
	return &redisStore{client: client, ttl: cfg.TTL, prefix: prefix}, nil
}

func (s *redisStore) key(id string) string {
	return s.prefix + id
}

func (s *redisStore) Put(ctx context.Context, record Record) error {
	if record.SessionID == "" {
		return fmt.Errorf("session id required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var expiry time.Duration
	if s.ttl > 0 {
		expiry = time.Until(record.CreatedAt.Add(s.ttl))
	}
	return s.client.Set(ctx, s.key(record.SessionID), data, expiry).Err()
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (Record, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return Record{}, err
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, err
	}
	return record, nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	removed, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

func (s *redisStore) List(ctx context.Context) ([]Record, error) {
	var cursor uint64
	var records []Record
	pattern := s.prefix + "*"
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			record, err := s.Get(ctx, strings.TrimPrefix(key, s.prefix))
			if err != nil {
				continue // expired between scan and fetch
			}
			records = append(records, record)
		}
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SessionID < records[j].SessionID
	})
	return records, nil
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// Redis expires keys on its own.
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	var cursor uint64
	total := 0
	pattern := s.prefix + "*"
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		total += len(keys)
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return map[string]any{
		"type":        "redis",
		"total":       total,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
