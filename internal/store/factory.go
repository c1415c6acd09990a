package store

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType selects a driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeRedis  StoreType = "redis"
)

// Option configures NewStore.
type Option func(*storeConfig)

type storeConfig struct {
	path           string
	busyTimeout    int
	redisClient    *redis.Client
	redisNamespace string
	redisTTL       time.Duration
}

// WithPath sets the database file for the sqlite driver.
func WithPath(path string) Option {
	return func(c *storeConfig) { c.path = path }
}

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option {
	return func(c *storeConfig) { c.busyTimeout = ms }
}

// WithRedisClient sets the client for the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithRedisNamespace scopes keys, typically to one device or profile.
func WithRedisNamespace(ns string) Option {
	return func(c *storeConfig) { c.redisNamespace = ns }
}

// WithRedisTTL expires keys after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *storeConfig) { c.redisTTL = ttl }
}

// NewStore creates a Store for the given driver.
// The sqlite driver requires WithPath; the redis driver requires WithRedisClient.
func NewStore(storeType StoreType, opts ...Option) (Store, error) {
	cfg := &storeConfig{
		busyTimeout:    5000,
		redisNamespace: "default",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeSQLite:
		if cfg.path == "" {
			return nil, ErrInvalidConfig
		}
		return OpenSQLite(cfg.path, cfg.busyTimeout)

	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedisStore(cfg.redisClient, cfg.redisNamespace, cfg.redisTTL), nil

	default:
		return nil, ErrInvalidStoreType
	}
}
