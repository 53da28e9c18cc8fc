package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/core"
	"github.com/example/storefront/internal/db"
)

const fixture = `
categories:
  - id: 1
    title: Hats
  - id: 2
    title: Mugs
    picture: mugs.png
products:
  - title: Red Cap
    price: 10
    category_id: 1
    recommended: true
    pictures: [cap.png]
  - title: Blue Mug
    price: 4.5
    category_id: 2
    models: [small, large]
`

func newCatalog(t *testing.T, client *db.MemoryClient) core.CatalogService {
	t.Helper()
	stores := core.NewStores(client, zap.NewNop())
	require.NoError(t, stores.Start(context.Background()))
	require.NoError(t, stores.Ready(context.Background()))
	t.Cleanup(stores.Close)
	return core.NewCatalogService(stores)
}

func TestLoadAndApply(t *testing.T) {
	file := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte(fixture), 0o600))

	c, err := Load(file)
	require.NoError(t, err)
	require.Len(t, c.Categories, 2)
	require.Len(t, c.Products, 2)
	assert.Equal(t, []string{"small", "large"}, c.Products[1].Models)

	client := db.NewMemoryClient()
	catalog := newCatalog(t, client)

	n, err := Apply(context.Background(), catalog, c, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, client.Len(db.CategoriesPath))
	assert.Equal(t, 2, client.Len(db.ProductsPath))
}

func TestApply_SkipsPopulatedCatalog(t *testing.T) {
	client := db.NewMemoryClient()
	client.Put(db.CategoriesPath, "existing", map[string]interface{}{"id": 9, "title": "Existing"})
	catalog := newCatalog(t, client)

	c, err := Parse([]byte(fixture))
	require.NoError(t, err)

	n, err := Apply(context.Background(), catalog, c, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, client.Len(db.CategoriesPath))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("categories: [1, 2"))
	assert.Error(t, err)

	_, err = Parse([]byte("categories:\n  - id: 1\n  - id: 1\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ShippedCatalog(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "catalog.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.Categories, 3)
	assert.Len(t, c.Products, 3)
	assert.Equal(t, 1, c.Products[0].CategoryID)
}
