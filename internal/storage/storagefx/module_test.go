package storagefx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func setup(t *testing.T, backend string, strict bool, rows int) (*config.Config, *catalog.Catalog) {
	t.Helper()
	cfg := config.Default()
	cfg.Index.Backend = backend
	cfg.Index.StrictCatalogMatch = &strict
	cfg.Embedding.Dimensions = 2
	cfg.Data.IndexPath = filepath.Join(t.TempDir(), "products.index")

	cat := catalog.New([]models.Product{{ID: "a"}, {ID: "b"}})
	vecs := make([][]float32, rows)
	for i := range vecs {
		vecs[i] = []float32{float32(i), 0}
	}
	w, err := NewIndexWriter(backend)
	require.NoError(t, err)
	m := storage.Manifest{Rows: rows, Dimension: 2, CatalogFingerprint: cat.Fingerprint()}
	require.NoError(t, w.Write(context.Background(), cfg.Data.IndexPath, m, vecs))
	return cfg, cat
}

func start(cfg *config.Config, cat *catalog.Catalog, idx *storage.VectorIndex) *fx.App {
	return fx.New(
		Module,
		fx.Supply(cfg, cat, zap.NewNop()),
		fx.Populate(idx),
		fx.NopLogger,
	)
}

func TestStorageModule(t *testing.T) {
	for _, backend := range []string{"flat", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg, cat := setup(t, backend, true, 2)
			var idx storage.VectorIndex
			app := start(cfg, cat, &idx)
			ctx := context.Background()
			require.NoError(t, app.Start(ctx))
			defer func() { require.NoError(t, app.Stop(ctx)) }()

			assert.Equal(t, 2, idx.Len())
			hits, err := idx.Search(ctx, []float32{1, 0}, 1)
			require.NoError(t, err)
			assert.Equal(t, []storage.Hit{{Row: 1, Distance: 0}}, hits)
		})
	}
}

func TestStorageModuleStrictMismatch(t *testing.T) {
	cfg, cat := setup(t, "flat", true, 3)
	var idx storage.VectorIndex
	app := start(cfg, cat, &idx)
	require.Error(t, app.Err())
	assert.ErrorIs(t, app.Err(), models.ErrStartup)
	assert.ErrorIs(t, app.Err(), models.ErrCatalogMismatch)
}

func TestStorageModuleLenientMismatch(t *testing.T) {
	cfg, cat := setup(t, "flat", false, 3)
	var idx storage.VectorIndex
	app := start(cfg, cat, &idx)
	require.NoError(t, app.Err())
	assert.Equal(t, 3, idx.Len())
}

func TestStorageModuleMissingIndex(t *testing.T) {
	cfg, cat := setup(t, "flat", true, 2)
	cfg.Data.IndexPath = filepath.Join(t.TempDir(), "absent.index")
	var idx storage.VectorIndex
	app := start(cfg, cat, &idx)
	assert.ErrorIs(t, app.Err(), models.ErrStartup)
}

func TestStorageModuleDimensionMismatch(t *testing.T) {
	cfg, cat := setup(t, "flat", false, 2)
	cfg.Embedding.Dimensions = 8
	var idx storage.VectorIndex
	app := start(cfg, cat, &idx)
	assert.ErrorIs(t, app.Err(), models.ErrDimensionMismatch)
}
