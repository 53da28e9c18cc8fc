package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	rtdb "firebase.google.com/go/v4/db"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when RealtimeClient is built with a zero interval.
const DefaultPollInterval = 2 * time.Second

// RealtimeClient implements Client on top of the Firebase Realtime Database.
// The Admin SDK offers no listeners, so subscriptions poll the collection
// node with ETag-conditional reads and emit only when it changed.
type RealtimeClient struct {
	client   *rtdb.Client
	interval time.Duration
	logger   *zap.Logger
}

// NewRealtimeClient wraps an initialized Realtime Database client.
func NewRealtimeClient(client *rtdb.Client, interval time.Duration, logger *zap.Logger) (*RealtimeClient, error) {
	if client == nil {
		return nil, errors.New("realtime database client is not initialized")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &RealtimeClient{client: client, interval: interval, logger: logger}, nil
}

// Subscribe polls the node at path until the subscription is stopped.
// Read errors are reported through fn and polling continues.
func (c *RealtimeClient) Subscribe(ctx context.Context, path string, fn SnapshotFunc) (Subscription, error) {
	ref := c.client.NewRef(path)
	subCtx, cancel := context.WithCancel(ctx)
	sub := &pollSubscription{cancel: cancel}

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		etag := ""
		for {
			var node map[string]interface{}
			var err error
			changed := true
			if etag == "" {
				etag, err = ref.GetWithETag(subCtx, &node)
			} else {
				var next string
				changed, next, err = ref.GetIfChanged(subCtx, etag, &node)
				if err == nil {
					etag = next
				}
			}

			switch {
			case subCtx.Err() != nil:
				c.logger.Debug("Realtime Database subscription ended", zap.String("path", path))
				return
			case err != nil:
				fn(Snapshot{Path: path}, fmt.Errorf("realtime database read of '%s': %w", path, err))
			case changed:
				fn(nodeSnapshot(path, node), nil)
			}

			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return sub, nil
}

// nodeSnapshot converts a decoded JSON object into a snapshot ordered by key,
// which is the database's default child order.
func nodeSnapshot(path string, node map[string]interface{}) Snapshot {
	snap := Snapshot{Path: path, Children: make([]Child, 0, len(node))}
	for key, data := range node {
		snap.Children = append(snap.Children, Child{Key: key, Data: data})
	}
	sort.Slice(snap.Children, func(i, j int) bool { return snap.Children[i].Key < snap.Children[j].Key })
	return snap
}

// Write sets the child node path/key.
func (c *RealtimeClient) Write(ctx context.Context, path, key string, rec Record) error {
	if err := c.client.NewRef(path).Child(key).Set(ctx, map[string]interface{}(rec)); err != nil {
		return fmt.Errorf("failed to write node '%s/%s': %w", path, key, err)
	}
	return nil
}

// Delete removes the child node path/key.
func (c *RealtimeClient) Delete(ctx context.Context, path, key string) error {
	if err := c.client.NewRef(path).Child(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete node '%s/%s': %w", path, key, err)
	}
	return nil
}

// Push allocates a time-ordered key locally. Ref.Push would write a
// placeholder value, which subscribers would observe as a malformed child.
func (c *RealtimeClient) Push(_ context.Context, _ string) (string, error) {
	return NewPushKey(), nil
}

// Close is a no-op; the Realtime Database client holds no connection.
func (c *RealtimeClient) Close() error { return nil }

type pollSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *pollSubscription) Stop() {
	s.once.Do(s.cancel)
}
