package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "compas:session:"

// RedisConfig holds Redis connection configuration for the Redis-backed
// session store.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for session keys (default "compas:session:").
	Prefix string
	// SessionTTL expires idle sessions after this duration (0 = never).
	// This doubles as the store's eviction policy: Redis handles expiry.
	SessionTTL time.Duration
	// PoolSize is the connection pool size (default 10).
	PoolSize int
}

// RedisStore keeps session snapshots in Redis. It survives process restarts
// as long as Redis does, and idle sessions expire via TTL rather than an
// in-process sweep.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &RedisStore{client: client, prefix: prefix, ttl: cfg.SessionTTL}, nil
}

// NewRedisStoreFromClient wraps an existing client. Useful for testing with
// miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Create makes a new session and persists its initial snapshot.
func (s *RedisStore) Create(ctx context.Context) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	sess := New(NewID())
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session snapshot and rebuilds a live session from it.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return FromSnapshot(snap), nil
}

// Save marshals the session snapshot and writes it with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(sess.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sess.ID()), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), sess.ID())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns the IDs of sessions present in the index. IDs whose data has
// expired are cleaned from the index as they are discovered.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		if n == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Ping checks the Redis connection. Used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
