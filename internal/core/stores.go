package core

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/codec"
	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/mirror"
	"github.com/example/storefront/internal/models"
)

// Stores are the mirrors shared by every signed-in user: profiles and the
// catalog.
type Stores struct {
	users      *mirror.Store[models.User]
	categories *mirror.Store[models.Category]
	products   *mirror.Store[models.Product]
}

// NewStores creates the shared mirrors on client. They do not subscribe
// until Start.
func NewStores(client db.Client, logger *zap.Logger) *Stores {
	return &Stores{
		users: mirror.New[models.User]("users", client, codec.UserCodec{}, mirror.Options[models.User]{
			Path:   mirror.Static(db.UsersPath),
			Logger: logger,
		}),
		categories: mirror.New[models.Category]("categories", client, codec.CategoryCodec{}, mirror.Options[models.Category]{
			Path:   mirror.Static(db.CategoriesPath),
			Less:   func(a, b models.Category) bool { return a.ID < b.ID },
			Logger: logger,
		}),
		products: mirror.New[models.Product]("products", client, codec.ProductCodec{}, mirror.Options[models.Product]{
			Path:   mirror.Static(db.ProductsPath),
			Logger: logger,
		}),
	}
}

// Start subscribes every shared mirror.
func (s *Stores) Start(ctx context.Context) error {
	if err := s.users.Start(ctx); err != nil {
		return err
	}
	if err := s.categories.Start(ctx); err != nil {
		return err
	}
	return s.products.Start(ctx)
}

// Ready waits for the first snapshot of every shared mirror.
func (s *Stores) Ready(ctx context.Context) error {
	for _, ready := range []func(context.Context) error{s.users.Ready, s.categories.Ready, s.products.Ready} {
		if err := ready(ctx); err != nil {
			return fmt.Errorf("waiting for catalog mirrors: %w", err)
		}
	}
	return nil
}

// Close detaches every shared mirror.
func (s *Stores) Close() {
	s.users.Close()
	s.categories.Close()
	s.products.Close()
}

func (s *Stores) Users() *mirror.Store[models.User]          { return s.users }
func (s *Stores) Categories() *mirror.Store[models.Category] { return s.categories }
func (s *Stores) Products() *mirror.Store[models.Product]    { return s.products }

func (s *Stores) AddUser(ctx context.Context, u models.User) *mirror.Op[models.User] {
	return s.users.Add(ctx, u)
}

func (s *Stores) UpdateUser(ctx context.Context, u models.User) *mirror.Op[models.User] {
	return s.users.Update(ctx, u)
}

func (s *Stores) RemoveUser(ctx context.Context, uid string) *mirror.Op[models.User] {
	return s.users.Remove(ctx, uid)
}

func (s *Stores) AddCategory(ctx context.Context, c models.Category) *mirror.Op[models.Category] {
	return s.categories.Add(ctx, c)
}

func (s *Stores) UpdateCategory(ctx context.Context, c models.Category) *mirror.Op[models.Category] {
	return s.categories.Update(ctx, c)
}

func (s *Stores) RemoveCategory(ctx context.Context, key string) *mirror.Op[models.Category] {
	return s.categories.Remove(ctx, key)
}

func (s *Stores) AddProduct(ctx context.Context, p models.Product) *mirror.Op[models.Product] {
	return s.products.Add(ctx, p)
}

func (s *Stores) UpdateProduct(ctx context.Context, p models.Product) *mirror.Op[models.Product] {
	return s.products.Update(ctx, p)
}

func (s *Stores) RemoveProduct(ctx context.Context, key string) *mirror.Op[models.Product] {
	return s.products.Remove(ctx, key)
}

// UserStores are the mirrors scoped to one signed-in user.
type UserStores struct {
	cart   *mirror.Store[models.CartItem]
	orders *mirror.Store[models.Order]

	// cartMu serializes read-modify-write sequences on the cart, including
	// checkout.
	cartMu sync.Mutex
}

// NewUserStores creates unscoped cart and order mirrors; SetScope binds them
// to a user.
func NewUserStores(client db.Client, logger *zap.Logger) *UserStores {
	return &UserStores{
		cart: mirror.New[models.CartItem]("cart", client, codec.CartItemCodec{}, mirror.Options[models.CartItem]{
			Path:   db.CartPath,
			Scoped: true,
			Less:   func(a, b models.CartItem) bool { return a.ID < b.ID },
			Logger: logger,
		}),
		orders: newOrdersStore(client, logger),
	}
}

func newOrdersStore(client db.Client, logger *zap.Logger) *mirror.Store[models.Order] {
	return mirror.New[models.Order]("orders", client, codec.OrderCodec{}, mirror.Options[models.Order]{
		Path:   db.OrdersPath,
		Scoped: true,
		Less:   models.NewerFirst,
		Logger: logger,
	})
}

// SetScope binds both mirrors to uid. An empty uid signs out: both lists
// are discarded.
func (u *UserStores) SetScope(ctx context.Context, uid string) error {
	if err := u.cart.SetScope(ctx, uid); err != nil {
		return err
	}
	return u.orders.SetScope(ctx, uid)
}

// Ready waits for the first snapshot of both mirrors.
func (u *UserStores) Ready(ctx context.Context) error {
	if err := u.cart.Ready(ctx); err != nil {
		return err
	}
	return u.orders.Ready(ctx)
}

// Close detaches both mirrors and discards their lists.
func (u *UserStores) Close() {
	u.cart.Close()
	u.orders.Close()
}

// LockCart holds the cart until the returned func is called.
func (u *UserStores) LockCart() func() {
	u.cartMu.Lock()
	return u.cartMu.Unlock
}

func (u *UserStores) Cart() *mirror.Store[models.CartItem] { return u.cart }
func (u *UserStores) Orders() *mirror.Store[models.Order]  { return u.orders }

func (u *UserStores) AddCartItem(ctx context.Context, it models.CartItem) *mirror.Op[models.CartItem] {
	return u.cart.Add(ctx, it)
}

func (u *UserStores) UpdateCartItem(ctx context.Context, it models.CartItem) *mirror.Op[models.CartItem] {
	return u.cart.Update(ctx, it)
}

func (u *UserStores) RemoveCartItem(ctx context.Context, key string) *mirror.Op[models.CartItem] {
	return u.cart.Remove(ctx, key)
}

func (u *UserStores) AddOrder(ctx context.Context, o models.Order) *mirror.Op[models.Order] {
	return u.orders.Add(ctx, o)
}

func (u *UserStores) UpdateOrder(ctx context.Context, o models.Order) *mirror.Op[models.Order] {
	return u.orders.Update(ctx, o)
}

func (u *UserStores) RemoveOrder(ctx context.Context, id string) *mirror.Op[models.Order] {
	return u.orders.Remove(ctx, id)
}
