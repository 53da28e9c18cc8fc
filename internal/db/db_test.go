package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	errs  []error
}

func (r *recorder) fn(snap Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.snaps = append(r.snaps, snap)
}

func (r *recorder) last() (Snapshot, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}, 0
	}
	return r.snaps[len(r.snaps)-1], len(r.snaps)
}

func keys(s Snapshot) []string {
	out := make([]string, 0, len(s.Children))
	for _, c := range s.Children {
		out = append(out, c.Key)
	}
	return out
}

func TestMemoryClient_SubscribeWriteDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	c.Put("Category", "b", map[string]interface{}{"id": 2})

	var rec recorder
	sub, err := c.Subscribe(ctx, "Category", rec.fn)
	require.NoError(t, err)
	defer sub.Stop()

	require.Eventually(t, func() bool {
		s, n := rec.last()
		return n == 1 && assert.ObjectsAreEqual([]string{"b"}, keys(s))
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Write(ctx, "Category", "a", Record{"id": 1}))
	require.NoError(t, c.Delete(ctx, "Category", "b"))
	require.NoError(t, c.Delete(ctx, "Category", "missing"))

	require.Eventually(t, func() bool {
		s, n := rec.last()
		return n == 3 && assert.ObjectsAreEqual([]string{"a"}, keys(s))
	}, time.Second, 5*time.Millisecond)

	data, err := c.Get("Category", "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": 1}, data)
	_, err = c.Get("Category", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryClient_HookFailsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	boom := errors.New("permission denied")
	c.SetHook(func(_ context.Context, op Op, _, _ string) error {
		if op == OpWrite {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, c.Write(ctx, "users", "u1", Record{"name": "x"}), boom)
	assert.Zero(t, c.Len("users"))

	key, err := c.Push(ctx, "users")
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestMemoryClient_StopAndClose(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	var rec recorder
	sub, err := c.Subscribe(ctx, "Items", rec.fn)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Subscribers("Items"))
	sub.Stop()
	sub.Stop()
	assert.Zero(t, c.Subscribers("Items"))

	_, err = c.Subscribe(ctx, "Items", rec.fn)
	require.NoError(t, err)
	c.FailSubscriptions("Items", errors.New("unavailable"))
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.errs) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Write(ctx, "Items", "k", Record{}), ErrClientClosed)
	_, err = c.Subscribe(ctx, "Items", rec.fn)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestNewPushKey_UniqueAndOrdered(t *testing.T) {
	prev := NewPushKey()
	seen := map[string]bool{prev: true}
	for i := 0; i < 1000; i++ {
		k := NewPushKey()
		require.False(t, seen[k])
		require.Greater(t, k, prev)
		seen[k] = true
		prev = k
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "Cart/u1/items", CartPath("u1"))
	assert.Equal(t, "orders/u1", OrdersPath("u1"))
}

func TestFirestorePath(t *testing.T) {
	cases := map[string]string{
		UsersPath:        "users",
		CategoriesPath:   "Category",
		CartPath("u1"):   "Cart/u1/items",
		OrdersPath("u1"): "orders/u1/items",
		"a/b/c/d":        "a/b/c/d/items",
	}
	for in, want := range cases {
		assert.Equal(t, want, firestorePath(in), in)
	}
}

func TestNodeSnapshot_OrdersByKey(t *testing.T) {
	snap := nodeSnapshot("Items", map[string]interface{}{"c": 3, "a": 1, "b": "x"})
	assert.Equal(t, "Items", snap.Path)
	assert.Equal(t, []string{"a", "b", "c"}, keys(snap))
}
