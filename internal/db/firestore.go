package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreClient implements Client on top of Cloud Firestore. Collection
// paths must have an odd number of segments.
type FirestoreClient struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreClient wraps an initialized Firestore client.
func NewFirestoreClient(client *firestore.Client, logger *zap.Logger) (*FirestoreClient, error) {
	if client == nil {
		return nil, errors.New("firestore client is not initialized")
	}
	return &FirestoreClient{client: client, logger: logger}, nil
}

func (c *FirestoreClient) collection(path string) (*firestore.CollectionRef, error) {
	coll := c.client.Collection(firestorePath(path))
	if coll == nil {
		return nil, fmt.Errorf("invalid firestore collection path '%s'", path)
	}
	return coll, nil
}

// Subscribe attaches a live query snapshot listener to the collection.
func (c *FirestoreClient) Subscribe(ctx context.Context, path string, fn SnapshotFunc) (Subscription, error) {
	coll, err := c.collection(path)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	it := coll.Snapshots(subCtx)
	sub := &firestoreSubscription{it: it, cancel: cancel}

	go func() {
		for {
			qs, err := it.Next()
			if err != nil {
				if isStopped(err) {
					c.logger.Debug("Firestore subscription ended", zap.String("path", path))
					return
				}
				fn(Snapshot{Path: path}, fmt.Errorf("firestore snapshot of '%s': %w", path, err))
				return
			}

			docs, err := qs.Documents.GetAll()
			if err != nil {
				fn(Snapshot{Path: path}, fmt.Errorf("failed to read snapshot documents of '%s': %w", path, err))
				continue
			}

			snap := Snapshot{Path: path, Children: make([]Child, 0, len(docs))}
			for _, doc := range docs {
				snap.Children = append(snap.Children, Child{Key: doc.Ref.ID, Data: doc.Data()})
			}
			fn(snap, nil)
		}
	}()

	return sub, nil
}

// isStopped reports whether err only signals that the listener was stopped.
func isStopped(err error) bool {
	if errors.Is(err, iterator.Done) || errors.Is(err, context.Canceled) {
		return true
	}
	return status.Code(err) == codes.Canceled
}

// Write replaces the document at path/key.
func (c *FirestoreClient) Write(ctx context.Context, path, key string, rec Record) error {
	coll, err := c.collection(path)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(key).Set(ctx, map[string]interface{}(rec)); err != nil {
		return fmt.Errorf("failed to write document '%s' in '%s': %w", key, path, err)
	}
	return nil
}

// Delete removes the document at path/key.
func (c *FirestoreClient) Delete(ctx context.Context, path, key string) error {
	coll, err := c.collection(path)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(key).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("document '%s' in '%s': %w", key, path, ErrNotFound)
		}
		return fmt.Errorf("failed to delete document '%s' in '%s': %w", key, path, err)
	}
	return nil
}

// Push allocates a document id locally; nothing is written.
func (c *FirestoreClient) Push(_ context.Context, path string) (string, error) {
	coll, err := c.collection(path)
	if err != nil {
		return "", err
	}
	return coll.NewDoc().ID, nil
}

// Close closes the underlying Firestore client.
func (c *FirestoreClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

type firestoreSubscription struct {
	it     *firestore.QuerySnapshotIterator
	cancel context.CancelFunc
	once   sync.Once
}

func (s *firestoreSubscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.it.Stop()
	})
}
