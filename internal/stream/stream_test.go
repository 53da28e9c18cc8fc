package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/codec"
	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/mirror"
	"github.com/example/storefront/internal/models"
)

type frame struct {
	Collection string            `json:"collection"`
	Items      []models.Category `json:"items"`
}

func TestServe_PushesListChanges(t *testing.T) {
	client := db.NewMemoryClient()
	client.Put(db.CategoriesPath, "a", map[string]interface{}{"id": 1, "title": "Hats"})
	store := mirror.New[models.Category]("categories", client, codec.CategoryCodec{}, mirror.Options[models.Category]{
		Path: mirror.Static(db.CategoriesPath),
	})
	require.NoError(t, store.Start(context.Background()))
	require.NoError(t, store.Ready(context.Background()))
	defer store.Close()

	upgrader := NewUpgrader("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(conn, store, zap.NewNop())
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first frame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "categories", first.Collection)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "Hats", first.Items[0].Title)

	client.Put(db.CategoriesPath, "b", map[string]interface{}{"id": 2, "title": "Mugs"})
	for {
		var next frame
		require.NoError(t, conn.ReadJSON(&next))
		if len(next.Items) == 2 {
			break
		}
	}
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	u := NewUpgrader("https://shop.example.com")

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/stream", nil)
	assert.True(t, u.CheckOrigin(req))

	req.Header.Set("Origin", "https://shop.example.com")
	assert.True(t, u.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, u.CheckOrigin(req))

	req.Header.Set("Origin", "http://api.example.com")
	assert.True(t, u.CheckOrigin(req))
}

func TestServe_EndsWhenScopeEnds(t *testing.T) {
	client := db.NewMemoryClient()
	client.Put(db.CartPath("alice"), "c1", map[string]interface{}{"id": 1, "title": "Red Cap"})
	cart := mirror.New[models.CartItem]("cart", client, codec.CartItemCodec{}, mirror.Options[models.CartItem]{
		Path:   db.CartPath,
		Scoped: true,
	})
	require.NoError(t, cart.SetScope(context.Background(), "alice"))
	require.NoError(t, cart.Ready(context.Background()))
	defer cart.Close()

	served := make(chan struct{})
	upgrader := NewUpgrader("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(conn, cart, zap.NewNop())
		close(served)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "cart", first.Collection)

	// Signing out ends the stream instead of leaving it on an orphaned list.
	require.NoError(t, cart.SetScope(context.Background(), ""))
	for {
		var next Message
		if err := conn.ReadJSON(&next); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure), err)
			break
		}
	}
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the scope ended")
	}
}
