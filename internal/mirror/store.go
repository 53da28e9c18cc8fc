// Package mirror keeps local, observable copies of remote collections.
//
// A Store subscribes to one collection, decodes every snapshot into a typed
// list, publishes that list to watchers and writes mutations through to the
// remote store, patching the local list as soon as a write is acknowledged.
// User-scoped stores (carts, orders) mirror a different collection per
// signed-in user and switch between them with SetScope.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/codec"
	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/metrics"
)

var (
	ErrNoScope       = errors.New("no active scope")
	ErrMissingKey    = errors.New("entity has no remote key")
	ErrClosed        = errors.New("mirror store is closed")
	ErrNotScoped     = errors.New("mirror store is not user-scoped")
	ErrNotSubscribed = errors.New("mirror store is not subscribed")
	ErrPending       = errors.New("mutation still pending")
)

// Entity is implemented by every mirrored model.
type Entity[T any] interface {
	RemoteKey() string
	WithRemoteKey(key string) T
}

// PathFunc maps a scope to the collection path it mirrors. Unscoped stores
// are called with an empty scope.
type PathFunc func(scope string) string

// Static returns a PathFunc for a collection that is not user-scoped.
func Static(path string) PathFunc {
	return func(string) string { return path }
}

// State is the subscription state of a Store.
type State int

const (
	Unsubscribed State = iota
	Subscribed
)

func (s State) String() string {
	if s == Subscribed {
		return "subscribed"
	}
	return "unsubscribed"
}

// Options configure a Store.
type Options[T any] struct {
	Path   PathFunc
	Scoped bool
	// Less, when set, keeps the list sorted after every refresh and patch.
	Less   func(a, b T) bool
	Logger *zap.Logger
}

// Store mirrors one remote collection. All list changes and publications
// happen under a single lock, so a snapshot refresh and an optimistic patch
// never interleave.
type Store[T Entity[T]] struct {
	name   string
	client db.Client
	codec  codec.Codec[T]
	opts   Options[T]
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	scope   string
	closed  bool
	gen     uint64
	sub     db.Subscription
	ready   chan struct{}
	synced  bool
	items   []T
	lastErr error
	chains  map[string]chan struct{}

	subject *Subject[[]T]
}

// New creates a store. It does not subscribe: call Start for unscoped
// stores or SetScope for scoped ones.
func New[T Entity[T]](name string, client db.Client, c codec.Codec[T], opts Options[T]) *Store[T] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store[T]{
		name:    name,
		client:  client,
		codec:   c,
		opts:    opts,
		logger:  logger.With(zap.String("store", name)),
		chains:  make(map[string]chan struct{}),
		subject: NewSubject[[]T](),
	}
	s.subject.Publish([]T{})
	return s
}

// Name returns the store name used in logs and metrics.
func (s *Store[T]) Name() string { return s.name }

// Start subscribes an unscoped store. ctx bounds the subscription lifetime.
func (s *Store[T]) Start(ctx context.Context) error {
	if s.opts.Scoped {
		return fmt.Errorf("%s: Start on a user-scoped store, use SetScope", s.name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = false
	return s.subscribeLocked(ctx, s.opts.Path(""))
}

// SetScope switches a user-scoped store to scope. The previous subscription
// is detached and its list discarded before the store subscribes to the new
// scope. Watchers of the previous scope receive the empty list and are then
// closed. An empty scope leaves the store unsubscribed. ctx bounds the new
// subscription's lifetime.
func (s *Store[T]) SetScope(ctx context.Context, scope string) error {
	if !s.opts.Scoped {
		return ErrNotScoped
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	prev := s.scope
	s.scope = scope
	s.items = nil
	s.lastErr = nil
	s.publishLocked()
	if prev != "" {
		s.subject.CloseWatchers()
	}

	if scope == "" {
		return nil
	}
	return s.subscribeLocked(ctx, s.opts.Path(scope))
}

// Scope returns the current scope of a user-scoped store.
func (s *Store[T]) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Close detaches the subscription and closes every watcher. A scoped store
// also forgets its scope and clears its list. Close is idempotent.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	defer s.subject.CloseWatchers()
	if s.opts.Scoped {
		if s.scope != "" || len(s.items) > 0 {
			s.scope = ""
			s.items = nil
			s.publishLocked()
		}
		return
	}
	s.closed = true
}

func (s *Store[T]) subscribeLocked(ctx context.Context, path string) error {
	s.gen++
	gen := s.gen
	s.ready = make(chan struct{})
	s.synced = false

	sub, err := s.client.Subscribe(ctx, path, func(snap db.Snapshot, err error) {
		s.onSnapshot(gen, snap, err)
	})
	if err != nil {
		s.lastErr = err
		s.logger.Error("Failed to subscribe", zap.String("path", path), zap.Error(err))
		metrics.SubscriptionErrors.WithLabelValues(s.name).Inc()
		return fmt.Errorf("subscribe %s to '%s': %w", s.name, path, err)
	}
	s.sub = sub
	s.state = Subscribed
	s.logger.Debug("Subscribed", zap.String("path", path))
	return nil
}

// stopLocked detaches the current subscription. Bumping the generation
// makes callbacks still in flight from it no-ops.
func (s *Store[T]) stopLocked() {
	if s.sub != nil {
		s.sub.Stop()
		s.sub = nil
	}
	s.gen++
	s.state = Unsubscribed
}

func (s *Store[T]) onSnapshot(gen uint64, snap db.Snapshot, err error) {
	var items []T
	if err == nil {
		items = codec.DecodeAll(s.logger, s.name, s.codec, snap.Children)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if !s.synced {
		s.synced = true
		close(s.ready)
	}

	if err != nil {
		// The last known list stays published; only the error is recorded.
		s.lastErr = err
		s.logger.Error("Subscription error, keeping last known list", zap.Error(err))
		metrics.SubscriptionErrors.WithLabelValues(s.name).Inc()
		return
	}

	s.items = items
	s.lastErr = nil
	s.sortLocked()
	s.publishLocked()
	metrics.SnapshotsApplied.WithLabelValues(s.name).Inc()
}

// Ready waits until the current subscription delivered its first snapshot.
// It returns the subscription error if the first event was an error.
func (s *Store[T]) Ready(ctx context.Context) error {
	s.mu.Lock()
	ch := s.ready
	state := s.state
	s.mu.Unlock()
	if ch == nil || state != Subscribed {
		if s.opts.Scoped {
			return ErrNoScope
		}
		return ErrNotSubscribed
	}
	select {
	case <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 && s.lastErr != nil {
		return s.lastErr
	}
	return nil
}

// State returns whether the store is subscribed.
func (s *Store[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the most recent subscription error, cleared by the next
// successful snapshot.
func (s *Store[T]) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Stale reports whether the published list predates a subscription error.
func (s *Store[T]) Stale() bool {
	return s.LastError() != nil
}

// Items returns a copy of the current list.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Find returns the entity with the given remote key.
func (s *Store[T]) Find(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(key); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Watch returns a watcher receiving the list on every change, starting with
// the current one.
func (s *Store[T]) Watch() *Watcher[[]T] {
	return s.subject.Watch()
}

// Add allocates a remote key for e, writes it and, once acknowledged,
// appends it to the local list. The returned Op carries the key immediately.
func (s *Store[T]) Add(ctx context.Context, e T) *Op[T] {
	path, err := s.target()
	if err != nil {
		s.count("add", err)
		return failedOp[T]("", err)
	}
	key, err := s.client.Push(ctx, path)
	if err != nil {
		err = fmt.Errorf("failed to allocate key in '%s': %w", path, err)
		s.count("add", err)
		return failedOp[T]("", err)
	}

	e = e.WithRemoteKey(key)
	op := newOp[T](key)
	s.chain(path, key, func() {
		err := s.client.Write(ctx, path, key, s.codec.Encode(e))
		if err == nil {
			s.patch(path, func() { s.upsertLocked(e) })
		}
		s.count("add", err)
		op.resolve(e, err)
	})
	return op
}

// Update writes e over its existing remote key and, once acknowledged,
// replaces the local entry with the same key.
func (s *Store[T]) Update(ctx context.Context, e T) *Op[T] {
	key := e.RemoteKey()
	if key == "" {
		s.count("update", ErrMissingKey)
		return failedOp[T]("", ErrMissingKey)
	}
	path, err := s.target()
	if err != nil {
		s.count("update", err)
		return failedOp[T](key, err)
	}

	op := newOp[T](key)
	s.chain(path, key, func() {
		err := s.client.Write(ctx, path, key, s.codec.Encode(e))
		if err == nil {
			s.patch(path, func() { s.upsertLocked(e) })
		}
		s.count("update", err)
		op.resolve(e, err)
	})
	return op
}

// Remove deletes the entity with the given key and, once acknowledged,
// drops it from the local list. The Op's value is the removed entity when
// it was present locally.
func (s *Store[T]) Remove(ctx context.Context, key string) *Op[T] {
	if key == "" {
		s.count("remove", ErrMissingKey)
		return failedOp[T]("", ErrMissingKey)
	}
	path, err := s.target()
	if err != nil {
		s.count("remove", err)
		return failedOp[T](key, err)
	}

	op := newOp[T](key)
	s.chain(path, key, func() {
		var removed T
		err := s.client.Delete(ctx, path, key)
		if err == nil {
			s.patch(path, func() { removed = s.removeLocked(key) })
		}
		s.count("remove", err)
		op.resolve(removed, err)
	})
	return op
}

// target returns the path mutations currently go to.
func (s *Store[T]) target() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Scoped {
		if s.scope == "" {
			return "", ErrNoScope
		}
		return s.opts.Path(s.scope), nil
	}
	if s.closed {
		return "", ErrClosed
	}
	return s.opts.Path(""), nil
}

// chain runs fn on its own goroutine after every earlier mutation of the
// same document has finished, so writes to one key reach the remote store
// in call order.
func (s *Store[T]) chain(path, key string, fn func()) {
	id := path + "/" + key
	s.mu.Lock()
	prev := s.chains[id]
	mine := make(chan struct{})
	s.chains[id] = mine
	s.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		fn()
		s.mu.Lock()
		if s.chains[id] == mine {
			delete(s.chains, id)
		}
		s.mu.Unlock()
		close(mine)
	}()
}

// patch applies an optimistic change if the store still mirrors path. A
// write acknowledged after the scope changed belongs to another list.
func (s *Store[T]) patch(path string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Scoped {
		if s.scope == "" || s.opts.Path(s.scope) != path {
			return
		}
	} else if s.closed {
		return
	}
	fn()
}

func (s *Store[T]) upsertLocked(e T) {
	if i := s.indexLocked(e.RemoteKey()); i >= 0 {
		s.items[i] = e
	} else {
		s.items = append(s.items, e)
	}
	s.sortLocked()
	s.publishLocked()
}

func (s *Store[T]) removeLocked(key string) T {
	var removed T
	i := s.indexLocked(key)
	if i < 0 {
		return removed
	}
	removed = s.items[i]
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.publishLocked()
	return removed
}

func (s *Store[T]) indexLocked(key string) int {
	for i, it := range s.items {
		if it.RemoteKey() == key {
			return i
		}
	}
	return -1
}

func (s *Store[T]) sortLocked() {
	if s.opts.Less == nil {
		return
	}
	sort.SliceStable(s.items, func(i, j int) bool { return s.opts.Less(s.items[i], s.items[j]) })
}

func (s *Store[T]) copyLocked() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store[T]) publishLocked() {
	s.subject.Publish(s.copyLocked())
	metrics.Items.WithLabelValues(s.name).Set(float64(len(s.items)))
}

func (s *Store[T]) count(op string, err error) {
	metrics.Mutations.WithLabelValues(s.name, op, metrics.MutationResult(err)).Inc()
	if err != nil {
		s.logger.Warn("Mutation failed", zap.String("op", op), zap.Error(err))
	}
}
