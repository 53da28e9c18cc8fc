package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const redisKeyPrefix = "mirror:"

// RedisClient implements Client on top of Redis. Each collection is a hash
// of JSON documents; every write or delete publishes a notification on a
// channel named after the hash, and subscribers re-read the hash.
type RedisClient struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClientConfig contains options for creating a new RedisClient.
type NewRedisClientConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg NewRedisClientConfig, logger *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	logger.Info("Successfully connected to Redis", zap.String("address", cfg.Address))
	return &RedisClient{client: rdb, logger: logger}, nil
}

func redisKey(path string) string { return redisKeyPrefix + path }

// Subscribe listens for change notifications on the collection channel and
// emits the whole hash after subscribing and after every notification.
func (c *RedisClient) Subscribe(ctx context.Context, path string, fn SnapshotFunc) (Subscription, error) {
	key := redisKey(path)
	ps := c.client.Subscribe(ctx, key)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", key, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{ps: ps, cancel: cancel}
	notifications := ps.Channel()

	go func() {
		emit := func() {
			snap, err := c.snapshot(subCtx, path)
			if subCtx.Err() != nil {
				return
			}
			if err != nil {
				fn(Snapshot{Path: path}, err)
				return
			}
			fn(snap, nil)
		}

		emit()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-notifications:
				if !ok {
					c.logger.Debug("Redis subscription ended", zap.String("path", path))
					return
				}
				emit()
			}
		}
	}()

	return sub, nil
}

func (c *RedisClient) snapshot(ctx context.Context, path string) (Snapshot, error) {
	values, err := c.client.HGetAll(ctx, redisKey(path)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read collection '%s': %w", path, err)
	}

	snap := Snapshot{Path: path, Children: make([]Child, 0, len(values))}
	for key, raw := range values {
		var data interface{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			// Handed to the codec as-is; it will reject the record.
			data = raw
		}
		snap.Children = append(snap.Children, Child{Key: key, Data: data})
	}
	sort.Slice(snap.Children, func(i, j int) bool { return snap.Children[i].Key < snap.Children[j].Key })
	return snap, nil
}

// Write stores rec as JSON and notifies subscribers in one transaction.
func (c *RedisClient) Write(ctx context.Context, path, key string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode document '%s': %w", key, err)
	}
	hash := redisKey(path)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hash, key, payload)
		pipe.Publish(ctx, hash, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write document '%s' in '%s': %w", key, path, err)
	}
	return nil
}

// Delete removes the document and notifies subscribers in one transaction.
func (c *RedisClient) Delete(ctx context.Context, path, key string) error {
	hash := redisKey(path)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, hash, key)
		pipe.Publish(ctx, hash, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document '%s' in '%s': %w", key, path, err)
	}
	return nil
}

// Push allocates a time-ordered key locally.
func (c *RedisClient) Push(_ context.Context, _ string) (string, error) {
	return NewPushKey(), nil
}

// Close closes the Redis connection pool.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

type redisSubscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSubscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		_ = s.ps.Close()
	})
}
