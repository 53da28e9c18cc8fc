package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/session"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	client   *db.MemoryClient
	router   *gin.Engine
	sessions *session.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	client := db.NewMemoryClient()
	client.Put(db.CategoriesPath, "cat-1", map[string]interface{}{"id": 1, "title": "Hats"})
	client.Put(db.ProductsPath, "p-cap", map[string]interface{}{
		"title": "Red Cap", "price": 10.0, "categoryId": 1, "recommended": true,
	})
	client.Put(db.ProductsPath, "p-mug", map[string]interface{}{"title": "Blue Mug", "price": 4.5, "categoryId": 2})
	client.Put(db.UsersPath, "root", map[string]interface{}{"email": "root@example.com", "role": "admin"})

	logger := zap.NewNop()
	stores := core.NewStores(client, logger)
	require.NoError(t, stores.Start(context.Background()))
	require.NoError(t, stores.Ready(context.Background()))
	t.Cleanup(stores.Close)

	ctx, cancel := context.WithCancel(context.Background())
	sessions := session.NewRegistry(ctx, client, logger)
	t.Cleanup(func() {
		sessions.Close()
		cancel()
	})

	catalog := core.NewCatalogService(stores)
	users := core.NewUserService(stores, logger)
	cart := core.NewCartService(sessions, catalog)
	orders := core.NewOrderService(sessions, stores, client, events.NewLogPublisher(logger), logger)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recover(logger))
	SetupRoutes(router, &config.Config{}, logger, middleware.DevVerifier{}, sessions, stores, users, catalog, cart, orders)
	return &testServer{client: client, router: router, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path, uid string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("Authorization", "Bearer dev:"+uid+":"+uid+"@example.com")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mirror_items")
}

func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/categories", "", nil).Code)
}

func TestCatalogQueries(t *testing.T) {
	s := newTestServer(t)

	cats := decode[[]models.Category](t, s.do(t, http.MethodGet, "/api/v1/categories", "bob", nil))
	require.Len(t, cats, 1)
	assert.Equal(t, "Hats", cats[0].Title)

	all := decode[[]models.Product](t, s.do(t, http.MethodGet, "/api/v1/products", "bob", nil))
	assert.Len(t, all, 2)

	byCat := decode[[]models.Product](t, s.do(t, http.MethodGet, "/api/v1/products?category=2", "bob", nil))
	require.Len(t, byCat, 1)
	assert.Equal(t, "Blue Mug", byCat[0].Title)

	rec := decode[[]models.Product](t, s.do(t, http.MethodGet, "/api/v1/products?recommended=true", "bob", nil))
	require.Len(t, rec, 1)
	assert.Equal(t, "Red Cap", rec[0].Title)

	found := decode[[]models.Product](t, s.do(t, http.MethodGet, "/api/v1/products?q=MUG", "bob", nil))
	require.Len(t, found, 1)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/products?category=x", "bob", nil).Code)

	p := decode[models.Product](t, s.do(t, http.MethodGet, "/api/v1/products/p-cap", "bob", nil))
	assert.Equal(t, "Red Cap", p.Title)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/products/nope", "bob", nil).Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/cart", "bob", nil).Code)

	w := s.do(t, http.MethodPost, "/api/v1/session", "bob", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	login := decode[LoginResponse](t, w)
	assert.True(t, login.Created)
	assert.Equal(t, "bob@example.com", login.User.Email)
	assert.Equal(t, models.RoleUser, login.User.Role)
	assert.Equal(t, 1, s.sessions.Len())

	me := decode[models.User](t, s.do(t, http.MethodGet, "/api/v1/users/me", "bob", nil))
	assert.Equal(t, "bob", me.UID)

	// A second sign-in of the same user reuses the profile.
	w = s.do(t, http.MethodPost, "/api/v1/session", "bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/session", "bob", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/session", "bob", nil).Code)
	assert.Equal(t, 0, s.sessions.Len())
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/session", "bob", nil).Code)
}

func TestCartAndCheckout(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/session", "bob", nil).Code)

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", "bob", models.AddToCartRequest{ProductKey: "p-cap", Quantity: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	line := decode[models.CartItem](t, w)
	assert.NotEmpty(t, line.Key)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.Selected)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/v1/cart/items", "bob", map[string]interface{}{}).Code)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodPost, "/api/v1/cart/items", "bob", models.AddToCartRequest{ProductKey: "nope"}).Code)

	require.Eventually(t, func() bool {
		cart := decode[CartResponse](t, s.do(t, http.MethodGet, "/api/v1/cart", "bob", nil))
		return len(cart.Items) == 1 && cart.Totals.Subtotal == 20
	}, waitFor, tick)

	qty := -1
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPatch, "/api/v1/cart/items/"+line.Key, "bob", models.UpdateCartItemRequest{Quantity: &qty}).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPatch, "/api/v1/cart/items/"+line.Key, "bob", models.UpdateCartItemRequest{}).Code)

	w = s.do(t, http.MethodPost, "/api/v1/orders", "bob", models.CheckoutRequest{
		Shipping: models.ShippingAddress{FullName: "Bob", Street: "Rua 1", City: "Lisbon"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 20.0, order.TotalPrice)

	require.Eventually(t, func() bool {
		orders := decode[[]models.Order](t, s.do(t, http.MethodGet, "/api/v1/orders", "bob", nil))
		cart := decode[CartResponse](t, s.do(t, http.MethodGet, "/api/v1/cart", "bob", nil))
		return len(orders) == 1 && len(cart.Items) == 0
	}, waitFor, tick)

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/v1/orders", "bob", nil).Code)

	// Fulfilment by an administrator.
	path := "/api/v1/admin/orders/bob/" + order.ID + "/status"
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPatch, path, "bob", models.UpdateOrderStatusRequest{Status: models.OrderConfirmed}).Code)
	w = s.do(t, http.MethodPatch, path, "root", models.UpdateOrderStatusRequest{Status: models.OrderConfirmed})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.OrderConfirmed, decode[models.Order](t, w).Status)
	assert.Eventually(t, func() bool {
		w := s.do(t, http.MethodPatch, path, "root", models.UpdateOrderStatusRequest{Status: models.OrderPending})
		return w.Code == http.StatusConflict
	}, waitFor, tick)
}

func TestAdminCatalogCuration(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/api/v1/admin/categories", "bob", models.CategoryRequest{ID: 2, Title: "Mugs"}).Code)

	w := s.do(t, http.MethodPost, "/api/v1/admin/categories", "root", models.CategoryRequest{ID: 2, Title: "Mugs"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Category](t, w)
	require.NotEmpty(t, created.Key)
	assert.Equal(t, 2, s.client.Len(db.CategoriesPath))

	w = s.do(t, http.MethodPut, "/api/v1/admin/categories/"+created.Key, "root", models.CategoryRequest{ID: 2, Title: "Cups"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Cups", decode[models.Category](t, w).Title)

	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodPut, "/api/v1/admin/categories/nope", "root", models.CategoryRequest{ID: 3, Title: "X"}).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/admin/categories/"+created.Key, "root", nil).Code)
	assert.Equal(t, 1, s.client.Len(db.CategoriesPath))

	w = s.do(t, http.MethodPost, "/api/v1/admin/products", "root", models.ProductRequest{Title: "Green Scarf", Price: 12, CategoryID: 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode[models.Product](t, w)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/admin/products/"+product.Key, "root", nil).Code)

	users := decode[[]models.User](t, s.do(t, http.MethodGet, "/api/v1/admin/users", "root", nil))
	require.Len(t, users, 1)

	w = s.do(t, http.MethodPut, "/api/v1/admin/users/root/role", "root", models.UpdateRoleRequest{Role: "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/v1/admin/users/ghost/role", "root", models.UpdateRoleRequest{Role: "user"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStream_UnknownCollectionAndNoSession(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/stream/secrets", "bob", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/stream/cart", "bob", nil).Code)
}
