// Package session tracks the signed-in users of this instance and owns the
// cart and order mirrors bound to each of them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/metrics"
)

// ErrNoSession is returned for a user with no active session.
var ErrNoSession = errors.New("no active session")

type entry struct {
	stores *core.UserStores
	refs   int
}

// Registry is a reference-counted map from uid to user-scoped mirrors. A
// user signed in from several screens shares one set of mirrors.
type Registry struct {
	client db.Client
	logger *zap.Logger
	// base bounds every subscription; request contexts end too early.
	base context.Context

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
}

// NewRegistry creates a registry whose subscriptions live until base ends
// or Close is called.
func NewRegistry(base context.Context, client db.Client, logger *zap.Logger) *Registry {
	return &Registry{
		client:   client,
		logger:   logger,
		base:     base,
		sessions: make(map[string]*entry),
	}
}

// Acquire returns the mirrors of uid, creating and scoping them on the first
// acquisition. Every Acquire must be paired with a Release.
func (r *Registry) Acquire(uid string) (*core.UserStores, error) {
	if uid == "" {
		return nil, fmt.Errorf("acquire session: empty uid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrNoSession
	}

	if e, ok := r.sessions[uid]; ok {
		e.refs++
		return e.stores, nil
	}

	stores := core.NewUserStores(r.client, r.logger.With(zap.String("uid", uid)))
	if err := stores.SetScope(r.base, uid); err != nil {
		stores.Close()
		return nil, fmt.Errorf("failed to open session for user '%s': %w", uid, err)
	}
	r.sessions[uid] = &entry{stores: stores, refs: 1}
	metrics.ActiveSessions.Inc()
	r.logger.Info("Session opened", zap.String("uid", uid))
	return stores, nil
}

// Get returns the mirrors of an active session.
func (r *Registry) Get(uid string) (*core.UserStores, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[uid]; ok {
		return e.stores, nil
	}
	return nil, fmt.Errorf("%w for user '%s'", ErrNoSession, uid)
}

// Release drops one reference. The last release signs the user out: the
// mirrors are unscoped and their lists discarded.
func (r *Registry) Release(uid string) error {
	r.mu.Lock()
	e, ok := r.sessions[uid]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w for user '%s'", ErrNoSession, uid)
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.sessions, uid)
	r.mu.Unlock()

	r.discard(e.stores)
	metrics.ActiveSessions.Dec()
	r.logger.Info("Session closed", zap.String("uid", uid))
	return nil
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close ends every session. Later acquisitions fail.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.closed = true
	r.mu.Unlock()

	for _, e := range sessions {
		r.discard(e.stores)
		metrics.ActiveSessions.Dec()
	}
}

func (r *Registry) discard(stores *core.UserStores) {
	if err := stores.SetScope(r.base, ""); err != nil {
		r.logger.Warn("Failed to unscope session mirrors", zap.Error(err))
	}
	stores.Close()
}
