package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/storefront/internal/models"
)

// catalogService implements the CatalogService interface over the catalog
// mirrors. Reads never touch the network.
type catalogService struct {
	stores *Stores
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(stores *Stores) CatalogService {
	return &catalogService{stores: stores}
}

func (s *catalogService) Categories() []models.Category {
	return s.stores.categories.Items()
}

func (s *catalogService) CategoryByID(id int) (models.Category, error) {
	for _, c := range s.stores.categories.Items() {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Category{}, fmt.Errorf("%w: category with id %d", ErrNotFound, id)
}

func (s *catalogService) Products() []models.Product {
	return s.stores.products.Items()
}

func (s *catalogService) ProductByKey(key string) (models.Product, error) {
	p, ok := s.stores.products.Find(key)
	if !ok {
		return models.Product{}, fmt.Errorf("%w: product '%s'", ErrNotFound, key)
	}
	return p, nil
}

func (s *catalogService) ProductsByCategory(categoryID int) []models.Product {
	return s.filter(func(p models.Product) bool { return p.CategoryID == categoryID })
}

func (s *catalogService) RecommendedProducts() []models.Product {
	return s.filter(func(p models.Product) bool { return p.Recommended })
}

// SearchProducts matches query against product titles, ignoring case. An
// empty query matches nothing.
func (s *catalogService) SearchProducts(query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.Product{}
	}
	return s.filter(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Title), q)
	})
}

func (s *catalogService) filter(keep func(models.Product) bool) []models.Product {
	out := []models.Product{}
	for _, p := range s.stores.products.Items() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *catalogService) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	c.Key = ""
	created, err := s.stores.AddCategory(ctx, c).Wait(ctx)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to create category %d: %w", c.ID, err)
	}
	return created, nil
}

func (s *catalogService) ReplaceCategory(ctx context.Context, key string, c models.Category) (models.Category, error) {
	if _, ok := s.stores.categories.Find(key); !ok {
		return models.Category{}, fmt.Errorf("%w: category '%s'", ErrNotFound, key)
	}
	updated, err := s.stores.UpdateCategory(ctx, c.WithRemoteKey(key)).Wait(ctx)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to update category '%s': %w", key, err)
	}
	return updated, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, key string) error {
	if _, ok := s.stores.categories.Find(key); !ok {
		return fmt.Errorf("%w: category '%s'", ErrNotFound, key)
	}
	if _, err := s.stores.RemoveCategory(ctx, key).Wait(ctx); err != nil {
		return fmt.Errorf("failed to delete category '%s': %w", key, err)
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.Key = ""
	created, err := s.stores.AddProduct(ctx, p).Wait(ctx)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to create product '%s': %w", p.Title, err)
	}
	return created, nil
}

func (s *catalogService) ReplaceProduct(ctx context.Context, key string, p models.Product) (models.Product, error) {
	if _, ok := s.stores.products.Find(key); !ok {
		return models.Product{}, fmt.Errorf("%w: product '%s'", ErrNotFound, key)
	}
	updated, err := s.stores.UpdateProduct(ctx, p.WithRemoteKey(key)).Wait(ctx)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to update product '%s': %w", key, err)
	}
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, key string) error {
	if _, ok := s.stores.products.Find(key); !ok {
		return fmt.Errorf("%w: product '%s'", ErrNotFound, key)
	}
	if _, err := s.stores.RemoveProduct(ctx, key).Wait(ctx); err != nil {
		return fmt.Errorf("failed to delete product '%s': %w", key, err)
	}
	return nil
}
