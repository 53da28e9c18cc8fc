package db

import (
	"context"
	"fmt"
	"sync"
)

// Op names a MemoryClient operation passed to a Hook.
type Op string

const (
	OpWrite  Op = "write"
	OpDelete Op = "delete"
	OpPush   Op = "push"
)

// Hook runs before a MemoryClient operation is applied. A non-nil error
// fails the operation without touching the data; a hook may also block to
// delay the acknowledgement.
type Hook func(ctx context.Context, op Op, path, key string) error

// MemoryClient is an in-process Client used for local development and tests.
// Snapshots are delivered in order on one goroutine per subscription.
type MemoryClient struct {
	mu     sync.Mutex
	colls  map[string]*memCollection
	subs   map[string]map[*memSub]struct{}
	hook   Hook
	closed bool
}

type memCollection struct {
	keys []string
	docs map[string]interface{}
}

// NewMemoryClient returns an empty in-memory store.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		colls: make(map[string]*memCollection),
		subs:  make(map[string]map[*memSub]struct{}),
	}
}

// SetHook installs h for subsequent operations; nil removes it.
func (c *MemoryClient) SetHook(h Hook) {
	c.mu.Lock()
	c.hook = h
	c.mu.Unlock()
}

func (c *MemoryClient) runHook(ctx context.Context, op Op, path, key string) error {
	c.mu.Lock()
	h := c.hook
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClientClosed
	}
	if h == nil {
		return nil
	}
	return h(ctx, op, path, key)
}

// Subscribe registers fn and delivers the current content of path first.
func (c *MemoryClient) Subscribe(_ context.Context, path string, fn SnapshotFunc) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	sub := &memSub{
		client: c,
		path:   path,
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if c.subs[path] == nil {
		c.subs[path] = make(map[*memSub]struct{})
	}
	c.subs[path][sub] = struct{}{}
	sub.enqueue(memEvent{snap: c.snapshotLocked(path)})
	go sub.run()
	return sub, nil
}

// Write replaces the document at path/key.
func (c *MemoryClient) Write(ctx context.Context, path, key string, rec Record) error {
	if err := c.runHook(ctx, OpWrite, path, key); err != nil {
		return err
	}
	doc := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		doc[k] = v
	}
	c.Put(path, key, doc)
	return nil
}

// Delete removes the document at path/key. Deleting a missing key succeeds,
// as it does in the hosted stores.
func (c *MemoryClient) Delete(ctx context.Context, path, key string) error {
	if err := c.runHook(ctx, OpDelete, path, key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	coll := c.colls[path]
	if coll == nil {
		return nil
	}
	if _, ok := coll.docs[key]; !ok {
		return nil
	}
	delete(coll.docs, key)
	for i, k := range coll.keys {
		if k == key {
			coll.keys = append(coll.keys[:i], coll.keys[i+1:]...)
			break
		}
	}
	c.notifyLocked(path)
	return nil
}

// Push allocates a new key.
func (c *MemoryClient) Push(ctx context.Context, path string) (string, error) {
	if err := c.runHook(ctx, OpPush, path, ""); err != nil {
		return "", err
	}
	return NewPushKey(), nil
}

// Put stores arbitrary data at path/key and notifies subscribers. It
// bypasses hooks, which makes it suitable for seeding malformed records.
func (c *MemoryClient) Put(path, key string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll := c.colls[path]
	if coll == nil {
		coll = &memCollection{docs: make(map[string]interface{})}
		c.colls[path] = coll
	}
	if _, ok := coll.docs[key]; !ok {
		coll.keys = append(coll.keys, key)
	}
	coll.docs[key] = data
	c.notifyLocked(path)
}

// Get returns the raw data stored at path/key.
func (c *MemoryClient) Get(path, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if coll := c.colls[path]; coll != nil {
		if data, ok := coll.docs[key]; ok {
			return data, nil
		}
	}
	return nil, fmt.Errorf("'%s/%s': %w", path, key, ErrNotFound)
}

// Len returns the number of documents under path.
func (c *MemoryClient) Len(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if coll := c.colls[path]; coll != nil {
		return len(coll.keys)
	}
	return 0
}

// FailSubscriptions delivers err to every subscriber of path.
func (c *MemoryClient) FailSubscriptions(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub := range c.subs[path] {
		sub.enqueue(memEvent{snap: Snapshot{Path: path}, err: err})
	}
}

// Subscribers returns the number of live subscriptions on path.
func (c *MemoryClient) Subscribers(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[path])
}

// Close stops every subscription; later operations fail with ErrClientClosed.
func (c *MemoryClient) Close() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]map[*memSub]struct{})
	c.closed = true
	c.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.stop()
		}
	}
	return nil
}

func (c *MemoryClient) snapshotLocked(path string) Snapshot {
	snap := Snapshot{Path: path}
	coll := c.colls[path]
	if coll == nil {
		return snap
	}
	snap.Children = make([]Child, 0, len(coll.keys))
	for _, key := range coll.keys {
		snap.Children = append(snap.Children, Child{Key: key, Data: coll.docs[key]})
	}
	return snap
}

func (c *MemoryClient) notifyLocked(path string) {
	if len(c.subs[path]) == 0 {
		return
	}
	snap := c.snapshotLocked(path)
	for sub := range c.subs[path] {
		sub.enqueue(memEvent{snap: snap})
	}
}

type memEvent struct {
	snap Snapshot
	err  error
}

type memSub struct {
	client *MemoryClient
	path   string
	fn     SnapshotFunc

	mu     sync.Mutex
	queue  []memEvent
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *memSub) enqueue(ev memEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *memSub) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(ev.snap, ev.err)
		}
	}
}

func (s *memSub) stop() {
	s.once.Do(func() { close(s.done) })
}

// Stop detaches the subscription.
func (s *memSub) Stop() {
	s.client.mu.Lock()
	if set := s.client.subs[s.path]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.client.subs, s.path)
		}
	}
	s.client.mu.Unlock()
	s.stop()
}
