package db

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document or collection node does not exist.
var ErrNotFound = errors.New("document not found")

// ErrClientClosed is returned by operations on a client after Close.
var ErrClientClosed = errors.New("remote client is closed")

// Record is the raw field map of one remote document.
type Record map[string]interface{}

// Child is one raw entry of a collection snapshot. Data is whatever the
// backend holds at that key and is not guaranteed to be a Record.
type Child struct {
	Key  string
	Data interface{}
}

// Snapshot is the full content of a collection at one point in time.
type Snapshot struct {
	Path     string
	Children []Child
}

// SnapshotFunc receives every snapshot of a subscription, or the error that
// ended it. It is called on the backend's own goroutine.
type SnapshotFunc func(snap Snapshot, err error)

// Subscription is a live attachment to one collection.
type Subscription interface {
	// Stop detaches the subscription. It is safe to call more than once.
	Stop()
}

// Client defines the remote collection operations the mirror stores rely on.
// Writes are single-path; there is no batching or transaction support.
type Client interface {
	// Subscribe attaches fn to the collection at path. fn receives the
	// whole collection on every change.
	Subscribe(ctx context.Context, path string, fn SnapshotFunc) (Subscription, error)
	// Write sets the document at path/key to rec, replacing it.
	Write(ctx context.Context, path, key string, rec Record) error
	// Delete removes the document at path/key.
	Delete(ctx context.Context, path, key string) error
	// Push allocates a new unique key under path without writing anything.
	Push(ctx context.Context, path string) (string, error)
	// Close releases the client's resources.
	Close() error
}
