package core

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrExceedsStock      = errors.New("quantity exceeds available stock")
	ErrEmptySelection    = errors.New("no cart items selected")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrInvalidQuantity   = errors.New("quantity must not be negative")
	ErrInvalidRole       = errors.New("unknown role")
)

// CatalogService defines the interface for browsing and curating the catalog.
type CatalogService interface {
	Categories() []models.Category
	CategoryByID(id int) (models.Category, error)
	Products() []models.Product
	ProductByKey(key string) (models.Product, error)
	ProductsByCategory(categoryID int) []models.Product
	RecommendedProducts() []models.Product
	SearchProducts(query string) []models.Product

	CreateCategory(ctx context.Context, c models.Category) (models.Category, error)
	ReplaceCategory(ctx context.Context, key string, c models.Category) (models.Category, error)
	DeleteCategory(ctx context.Context, key string) error
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	ReplaceProduct(ctx context.Context, key string, p models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, key string) error
}

// UserService defines the interface for storefront profiles.
type UserService interface {
	// EnsureProfile returns the profile of uid, creating a "user" profile
	// when none exists. The boolean reports whether it was created.
	EnsureProfile(ctx context.Context, uid, email, displayName string) (models.User, bool, error)
	GetByID(uid string) (models.User, error)
	IsAdmin(uid string) bool
	List() []models.User
	SetRole(ctx context.Context, uid, role string) (models.User, error)
}

// CartService defines the interface for a signed-in user's cart.
type CartService interface {
	Items(uid string) ([]models.CartItem, error)
	AddProduct(ctx context.Context, uid string, req models.AddToCartRequest) (models.CartItem, error)
	SetQuantity(ctx context.Context, uid, key string, qty int) (models.CartItem, error)
	SetSelected(ctx context.Context, uid, key string, selected bool) (models.CartItem, error)
	RemoveItem(ctx context.Context, uid, key string) error
	Totals(uid string) (CartTotals, error)
}

// OrderService defines the interface for placing and fulfilling orders.
type OrderService interface {
	List(uid string) ([]models.Order, error)
	Checkout(ctx context.Context, uid string, shipping models.ShippingAddress) (models.Order, error)
	UpdateStatus(ctx context.Context, uid, orderID string, status models.OrderStatus) (models.Order, error)
}

// SessionSource resolves the user-scoped mirrors of a signed-in user.
type SessionSource interface {
	Get(uid string) (*UserStores, error)
}

// CartTotals summarizes the selected lines of a cart.
type CartTotals struct {
	SelectedItems int     `json:"selectedItems"`
	Subtotal      float64 `json:"subtotal"`
	Lines         int     `json:"lines"`
}
