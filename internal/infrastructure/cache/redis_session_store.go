package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionKeyPrefix namespaces session keys
const DefaultSessionKeyPrefix = "exchange:session:"

// RedisSessionStore shares exchange sessions between service instances.
// Keys expire together with the session.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisSessionStore creates a session store on a new Redis connection
func NewRedisSessionStore(cfg RedisConfig) (*RedisSessionStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisSessionStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisSessionStoreWithClient creates a store with an existing Redis client
func NewRedisSessionStoreWithClient(client *redis.Client, keyPrefix string) *RedisSessionStore {
	if keyPrefix == "" {
		keyPrefix = DefaultSessionKeyPrefix
	}
	return &RedisSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// sessionRecord is the stored JSON form of a session.
type sessionRecord struct {
	ID        string                `json:"id"`
	Kind      exchange.ExchangeKind `json:"kind"`
	State     exchange.SessionState `json:"state"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

func encodeSession(session *exchange.ExchangeSession) ([]byte, error) {
	return json.Marshal(sessionRecord{
		ID:        session.ID,
		Kind:      session.Kind,
		State:     session.State,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
}

func decodeSession(data []byte) (*exchange.ExchangeSession, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &exchange.ExchangeSession{
		ID:        rec.ID,
		Kind:      rec.Kind,
		State:     rec.State,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *RedisSessionStore) key(id string) string {
	return s.keyPrefix + id
}

// Save writes session with a TTL equal to its remaining lifetime. A session
// that has no time left is deleted instead.
func (s *RedisSessionStore) Save(ctx context.Context, session *exchange.ExchangeSession) error {
	ttl := session.Remaining(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, session.ID)
	}
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get loads a session
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*exchange.ExchangeSession, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, exchange.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeSession(data)
}

// Delete removes a session
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

var _ exchange.SessionStore = (*RedisSessionStore)(nil)
