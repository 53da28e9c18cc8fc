package core

import (
	"context"
	"fmt"

	"github.com/example/storefront/internal/models"
)

// cartService implements the CartService interface on the session's cart
// mirror. Read-modify-write sequences hold the session's cart lock so two
// concurrent adds of one product merge into a single line.
type cartService struct {
	sessions SessionSource
	catalog  CatalogService
}

// NewCartService creates a new CartService instance.
func NewCartService(sessions SessionSource, catalog CatalogService) CartService {
	return &cartService{sessions: sessions, catalog: catalog}
}

func (s *cartService) Items(uid string) ([]models.CartItem, error) {
	us, err := s.sessions.Get(uid)
	if err != nil {
		return nil, err
	}
	return us.cart.Items(), nil
}

// AddProduct puts a product in the cart. A line already holding the product
// grows by the requested quantity instead of a second line being created.
func (s *cartService) AddProduct(ctx context.Context, uid string, req models.AddToCartRequest) (models.CartItem, error) {
	us, err := s.sessions.Get(uid)
	if err != nil {
		return models.CartItem{}, err
	}
	product, err := s.catalog.ProductByKey(req.ProductKey)
	if err != nil {
		return models.CartItem{}, err
	}
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}

	defer us.LockCart()()

	items := us.cart.Items()
	nextID := 1
	for _, it := range items {
		if it.ID >= nextID {
			nextID = it.ID + 1
		}
		if it.ProductKey != product.Key {
			continue
		}
		merged := it
		merged.Quantity += qty
		if req.MaxStock > 0 {
			merged.MaxStock = req.MaxStock
		}
		if !merged.Fits(merged.Quantity) {
			return models.CartItem{}, fmt.Errorf("%w: %d of '%s' requested, %d available", ErrExceedsStock, merged.Quantity, product.Title, merged.MaxStock)
		}
		updated, err := us.UpdateCartItem(ctx, merged).Wait(ctx)
		if err != nil {
			return models.CartItem{}, fmt.Errorf("failed to update cart line '%s': %w", it.Key, err)
		}
		return updated, nil
	}

	line := models.CartItem{
		ID:         nextID,
		ProductKey: product.Key,
		Title:      product.Title,
		Price:      product.Price,
		Image:      product.FirstPicture(),
		Quantity:   qty,
		Selected:   true,
		MaxStock:   req.MaxStock,
	}
	if !line.Fits(qty) {
		return models.CartItem{}, fmt.Errorf("%w: %d of '%s' requested, %d available", ErrExceedsStock, qty, product.Title, line.MaxStock)
	}
	added, err := us.AddCartItem(ctx, line).Wait(ctx)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("failed to add '%s' to cart: %w", product.Title, err)
	}
	return added, nil
}

// SetQuantity changes the quantity of a line. Zero removes the line and
// returns it as it was.
func (s *cartService) SetQuantity(ctx context.Context, uid, key string, qty int) (models.CartItem, error) {
	if qty < 0 {
		return models.CartItem{}, ErrInvalidQuantity
	}
	us, err := s.sessions.Get(uid)
	if err != nil {
		return models.CartItem{}, err
	}

	defer us.LockCart()()

	it, ok := us.cart.Find(key)
	if !ok {
		return models.CartItem{}, fmt.Errorf("%w: cart line '%s'", ErrNotFound, key)
	}
	if qty == 0 {
		if _, err := us.RemoveCartItem(ctx, key).Wait(ctx); err != nil {
			return models.CartItem{}, fmt.Errorf("failed to remove cart line '%s': %w", key, err)
		}
		return it, nil
	}
	if !it.Fits(qty) {
		return models.CartItem{}, fmt.Errorf("%w: %d requested, %d available", ErrExceedsStock, qty, it.MaxStock)
	}
	it.Quantity = qty
	updated, err := us.UpdateCartItem(ctx, it).Wait(ctx)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("failed to update cart line '%s': %w", key, err)
	}
	return updated, nil
}

func (s *cartService) SetSelected(ctx context.Context, uid, key string, selected bool) (models.CartItem, error) {
	us, err := s.sessions.Get(uid)
	if err != nil {
		return models.CartItem{}, err
	}

	defer us.LockCart()()

	it, ok := us.cart.Find(key)
	if !ok {
		return models.CartItem{}, fmt.Errorf("%w: cart line '%s'", ErrNotFound, key)
	}
	if it.Selected == selected {
		return it, nil
	}
	it.Selected = selected
	updated, err := us.UpdateCartItem(ctx, it).Wait(ctx)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("failed to update cart line '%s': %w", key, err)
	}
	return updated, nil
}

func (s *cartService) RemoveItem(ctx context.Context, uid, key string) error {
	us, err := s.sessions.Get(uid)
	if err != nil {
		return err
	}

	defer us.LockCart()()

	if _, ok := us.cart.Find(key); !ok {
		return fmt.Errorf("%w: cart line '%s'", ErrNotFound, key)
	}
	if _, err := us.RemoveCartItem(ctx, key).Wait(ctx); err != nil {
		return fmt.Errorf("failed to remove cart line '%s': %w", key, err)
	}
	return nil
}

func (s *cartService) Totals(uid string) (CartTotals, error) {
	us, err := s.sessions.Get(uid)
	if err != nil {
		return CartTotals{}, err
	}
	return totals(us.cart.Items()), nil
}

func totals(items []models.CartItem) CartTotals {
	t := CartTotals{Lines: len(items)}
	for _, it := range items {
		if !it.Selected {
			continue
		}
		t.SelectedItems += it.Quantity
		t.Subtotal += it.LineTotal()
	}
	return t
}
