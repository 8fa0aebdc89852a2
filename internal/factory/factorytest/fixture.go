// Package factorytest writes a small catalog, inventory store, image set and
// index to a temporary directory for tests that need a full component set.
package factorytest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"github.com/0x5457/product-concierge/internal/indexer/pipeline"
	"github.com/0x5457/product-concierge/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const Dimension = 16

const Products = `[
  {"id": "CR123", "name": "Tank Must", "description": "rectangular steel dress watch",
   "attributes": {"brand": "Cartier", "case": "steel"}, "artifact_uri": "sub/CR123.png", "price": 3150},
  {"id": "OM1", "name": "Speedmaster", "description": "manual chronograph moonwatch",
   "attributes": {"brand": "Omega"}, "artifact_uri": "missing/x.png"},
  {"id": "RX9", "description": "diver with ceramic bezel", "attributes": {"brand": "Rolex"}}
]`

const Store = `{
  "shops": [
    {"shop_id": "S1", "name": "Zurich", "location": {"city": "Zurich", "country": "CH"},
     "inventory": [{"product_id": "CR123", "status": "in_stock", "quantity": 1}]},
    {"shop_id": "S2", "name": "Geneva", "location": {"city": "Geneva", "country": "CH"},
     "inventory": [{"product_id": "OM1", "status": "low_qty"}]}
  ],
  "status_legend": {"in_stock": "In Stock"}
}`

// Setup writes the fixture and returns a config pointing at it, using the
// local embedder and the flat index backend.
func Setup(t testing.TB) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Data.ProductsPath = filepath.Join(dir, "products.json")
	cfg.Data.StorePath = filepath.Join(dir, "store.json")
	cfg.Data.IndexPath = filepath.Join(dir, "products.index")
	cfg.Data.ImagesDir = filepath.Join(dir, "watches")
	cfg.Embedding.Provider = "local"
	cfg.Embedding.Dimensions = Dimension
	cfg.Images.BaseURL = "http://images.test"

	write(t, cfg.Data.ProductsPath, Products)
	write(t, cfg.Data.StorePath, Store)
	write(t, filepath.Join(cfg.Data.ImagesDir, "sub", "CR123.png"), "png")
	write(t, filepath.Join(cfg.Data.ImagesDir, "RX9.webp"), "webp")

	cat, err := catalog.Load(cfg.Data.ProductsPath)
	require.NoError(t, err)
	b := pipeline.New(embeddings.NewLocal(Dimension), memory.Writer{}, nil, pipeline.Options{})
	require.NoError(t, b.Build(context.Background(), cat, cfg.Data.IndexPath))
	return cfg
}

// Query returns the exact embed text of the product at row, which the local
// embedder maps to a distance of zero.
func Query(t testing.TB, cfg *config.Config, row int) string {
	t.Helper()
	cat, err := catalog.Load(cfg.Data.ProductsPath)
	require.NoError(t, err)
	return cat.Texts()[row]
}

// WriteConfig saves cfg as a YAML file next to the fixture and returns its path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(filepath.Dir(cfg.Data.ProductsPath), "concierge.yaml")
	write(t, path, string(data))
	return path
}

func write(t testing.TB, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
