package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"ADDR"`
	Password     string        `json:"password,omitempty" env:"PASSWORD"`
	DB           int           `json:"db" env:"DB"`
	PoolSize     int           `json:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	// KeyPrefix names the hashes review values live in.
	KeyPrefix string `json:"key_prefix" env:"KEY_PREFIX"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "reviewkit",
	}
}

// Store implements the engine.Storage interface on Redis hashes.
// Data structure:
// - {prefix} -> hash of un-namespaced review values
// - {prefix}:{installation} -> hash of one installation's review values
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: prefixOrDefault(config.KeyPrefix)}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefixOrDefault(prefix)}
}

func prefixOrDefault(p string) string {
	if p == "" {
		return "reviewkit"
	}
	return p
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// locate maps a possibly namespaced key to its hash and field.
func (s *Store) locate(key string) (hash, field string) {
	if ns, rest, ok := strings.Cut(key, ":"); ok {
		return s.prefix + ":" + ns, rest
	}
	return s.prefix, key
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	hash, field := s.locate(key)
	v, err := s.client.HGet(ctx, hash, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, true, nil
}

// Load groups keys by hash and issues one HMGET per hash in a pipeline.
func (s *Store) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	type lookup struct {
		keys []string
		cmd  *redis.SliceCmd
	}
	groups := map[string]*lookup{}
	fields := map[string][]string{}
	for _, k := range keys {
		hash, field := s.locate(k)
		if groups[hash] == nil {
			groups[hash] = &lookup{}
		}
		groups[hash].keys = append(groups[hash].keys, k)
		fields[hash] = append(fields[hash], field)
	}

	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for hash, g := range groups {
			g.cmd = p.HMGet(ctx, hash, fields[hash]...)
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load review values: %w", err)
	}

	out := make(map[string]string, len(keys))
	for _, g := range groups {
		vals, err := g.cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load review values: %w", err)
		}
		for i, v := range vals {
			if str, ok := v.(string); ok {
				out[g.keys[i]] = str
			}
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	hash, field := s.locate(key)
	if err := s.client.HSet(ctx, hash, field, value).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Save writes all values in a MULTI/EXEC transaction.
func (s *Store) Save(ctx context.Context, values map[string]string) error {
	byHash := map[string][]any{}
	for k, v := range values {
		hash, field := s.locate(k)
		byHash[hash] = append(byHash[hash], field, v)
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for hash, pairs := range byHash {
			p.HSet(ctx, hash, pairs...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save review values: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	byHash := map[string][]string{}
	for _, k := range keys {
		hash, field := s.locate(k)
		byHash[hash] = append(byHash[hash], field)
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for hash, fields := range byHash {
			p.HDel(ctx, hash, fields...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete review values: %w", err)
	}
	return nil
}

// Installations lists the namespaces that have stored values.
func (s *Store) Installations(ctx context.Context) ([]string, error) {
	var out []string
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), s.prefix+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan installations: %w", err)
	}
	return out, nil
}
