package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// newOfflineFirestore builds a client whose connection is never dialled by
// tests that only resolve references.
func newOfflineFirestore(t *testing.T) *FirestoreClient {
	t.Helper()
	fs, err := firestore.NewClient(context.Background(), "storefront-test",
		option.WithEndpoint("127.0.0.1:1"),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	c, err := NewFirestoreClient(fs, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewFirestoreClient_RequiresClient(t *testing.T) {
	_, err := NewFirestoreClient(nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestFirestoreClient_CollectionRefs(t *testing.T) {
	c := newOfflineFirestore(t)

	users, err := c.collection(UsersPath)
	require.NoError(t, err)
	assert.Equal(t, "users", users.ID)
	assert.Nil(t, users.Parent)

	cart, err := c.collection(CartPath("u1"))
	require.NoError(t, err)
	assert.Equal(t, "items", cart.ID)
	require.NotNil(t, cart.Parent)
	assert.Equal(t, "u1", cart.Parent.ID)

	orders, err := c.collection(OrdersPath("u1"))
	require.NoError(t, err)
	assert.Equal(t, "items", orders.ID)
	require.NotNil(t, orders.Parent)
	assert.Equal(t, "u1", orders.Parent.ID)
	assert.Equal(t, "orders", orders.Parent.Parent.ID)
}

func TestIsStopped(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"iterator done":    {iterator.Done, true},
		"context canceled": {context.Canceled, true},
		"wrapped cancel":   {fmt.Errorf("listen: %w", context.Canceled), true},
		"grpc canceled":    {status.Error(codes.Canceled, "stream closed"), true},
		"permission":       {status.Error(codes.PermissionDenied, "rules"), false},
		"unavailable":      {status.Error(codes.Unavailable, "backend"), false},
		"plain":            {errors.New("boom"), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, isStopped(tc.err))
		})
	}
}

// TestFirestoreClient_Emulator runs against the Firestore emulator named by
// FIRESTORE_EMULATOR_HOST and is skipped without one.
func TestFirestoreClient_Emulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}
	ctx := context.Background()
	fs, err := firestore.NewClient(ctx, "storefront-test")
	require.NoError(t, err)
	c, err := NewFirestoreClient(fs, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	path := OrdersPath(fmt.Sprintf("emu-%d", time.Now().UnixNano()))
	var rec recorder
	sub, err := c.Subscribe(ctx, path, rec.fn)
	require.NoError(t, err)
	defer sub.Stop()

	key, err := c.Push(ctx, path)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, path, key, Record{"status": "pending"}))
	require.Eventually(t, func() bool {
		s, _ := rec.last()
		return assert.ObjectsAreEqual([]string{key}, keys(s))
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, c.Delete(ctx, path, key))
	require.Eventually(t, func() bool {
		s, n := rec.last()
		return n > 1 && len(s.Children) == 0
	}, 5*time.Second, 20*time.Millisecond)
}
