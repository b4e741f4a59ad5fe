package cache

import (
	"context"
	"fmt"
	"time"

	"skillforge/pkg/utils/yamlx"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the configuration for Redis client.
type RedisConfig struct {
	Addr            string         `yaml:"addr"`
	Password        string         `yaml:"password"`
	DB              int            `yaml:"db"`
	MaxRetries      int            `yaml:"maxRetries"`
	DialTimeout     yamlx.Duration `yaml:"dialTimeout"`
	ReadTimeout     yamlx.Duration `yaml:"readTimeout"`
	WriteTimeout    yamlx.Duration `yaml:"writeTimeout"`
	PoolSize        int            `yaml:"poolSize"`
	MinIdleConns    int            `yaml:"minIdleConns"`
	PoolTimeout     yamlx.Duration `yaml:"poolTimeout"`
	ConnMaxIdleTime yamlx.Duration `yaml:"connMaxIdleTime"`
	ConnMaxLifetime yamlx.Duration `yaml:"connMaxLifetime"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		MaxRetries:      3,
		DialTimeout:     yamlx.Duration(5 * time.Second),
		ReadTimeout:     yamlx.Duration(3 * time.Second),
		WriteTimeout:    yamlx.Duration(3 * time.Second),
		PoolSize:        20,
		MinIdleConns:    2,
		PoolTimeout:     yamlx.Duration(4 * time.Second),
		ConnMaxIdleTime: yamlx.Duration(10 * time.Minute),
		ConnMaxLifetime: yamlx.Duration(30 * time.Minute),
	}
}

// RedisCache implements Cache using go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis cache instance with default config.
func NewRedisCache(addr string) (*RedisCache, error) {
	config := DefaultRedisConfig()
	config.Addr = addr
	return NewRedisCacheWithConfig(config)
}

// NewRedisCacheWithConfig creates a Redis cache instance with custom config.
func NewRedisCacheWithConfig(config *RedisConfig) (*RedisCache, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Addr == "" {
		return nil, fmt.Errorf("addr cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:            config.Addr,
		Password:        config.Password,
		DB:              config.DB,
		MaxRetries:      config.MaxRetries,
		DialTimeout:     config.DialTimeout.Std(),
		ReadTimeout:     config.ReadTimeout.Std(),
		WriteTimeout:    config.WriteTimeout.Std(),
		PoolSize:        config.PoolSize,
		MinIdleConns:    config.MinIdleConns,
		PoolTimeout:     config.PoolTimeout.Std(),
		ConnMaxIdleTime: config.ConnMaxIdleTime.Std(),
		ConnMaxLifetime: config.ConnMaxLifetime.Std(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient creates a Redis cache from an existing redis.Client.
func NewRedisCacheWithClient(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return value, err
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}
