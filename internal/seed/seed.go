// Package seed fills an empty catalog from a YAML fixture.
package seed

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/models"
)

// Catalog is the fixture file layout.
type Catalog struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
}

type Category struct {
	ID      int    `yaml:"id"`
	Title   string `yaml:"title"`
	Picture string `yaml:"picture"`
}

type Product struct {
	Title       string   `yaml:"title"`
	Price       float64  `yaml:"price"`
	Description string   `yaml:"description"`
	Pictures    []string `yaml:"pictures"`
	CategoryID  int      `yaml:"category_id"`
	Rating      float64  `yaml:"rating"`
	Recommended bool     `yaml:"recommended"`
	Models      []string `yaml:"models"`
}

// Load reads a fixture file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file '%s': %w", path, err)
	}
	return Parse(data)
}

// Parse decodes fixture data.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	seen := make(map[int]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if seen[cat.ID] {
			return nil, fmt.Errorf("duplicate category id %d in seed data", cat.ID)
		}
		seen[cat.ID] = true
	}
	return &c, nil
}

// Apply adds the fixture through catalog when the catalog holds no
// categories and no products; otherwise it does nothing. It returns the
// number of entities written.
func Apply(ctx context.Context, catalog core.CatalogService, c *Catalog, logger *zap.Logger) (int, error) {
	if len(catalog.Categories()) > 0 || len(catalog.Products()) > 0 {
		logger.Info("Catalog already populated, skipping seed")
		return 0, nil
	}

	written := 0
	for _, cat := range c.Categories {
		if _, err := catalog.CreateCategory(ctx, models.Category{ID: cat.ID, Title: cat.Title, Picture: cat.Picture}); err != nil {
			return written, err
		}
		written++
	}
	for _, p := range c.Products {
		_, err := catalog.CreateProduct(ctx, models.Product{
			Title:       p.Title,
			Price:       p.Price,
			Description: p.Description,
			Pictures:    p.Pictures,
			CategoryID:  p.CategoryID,
			Rating:      p.Rating,
			Recommended: p.Recommended,
			Models:      p.Models,
		})
		if err != nil {
			return written, err
		}
		written++
	}
	logger.Info("Seeded catalog",
		zap.Int("categories", len(c.Categories)),
		zap.Int("products", len(c.Products)),
	)
	return written, nil
}
