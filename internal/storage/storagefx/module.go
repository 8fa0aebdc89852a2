package storagefx

import (
	"context"
	"fmt"

	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/storage"
	"github.com/0x5457/product-concierge/internal/storage/memory"
	"github.com/0x5457/product-concierge/internal/storage/sqlvec"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Catalog   *catalog.Catalog
	Logger    *zap.Logger
}

// OpenIndex opens the index file for the given backend
func OpenIndex(backend, path string) (storage.VectorIndex, error) {
	var (
		idx storage.VectorIndex
		err error
	)
	switch backend {
	case "flat", "":
		idx, err = memory.Load(path)
	case "sqlite":
		idx, err = sqlvec.Open(path)
	default:
		err = fmt.Errorf("unknown index backend %q", backend)
	}
	if err != nil {
		return nil, models.NewStartupError("index", path, err)
	}
	return idx, nil
}

// NewIndexWriter returns the writer matching the backend
func NewIndexWriter(backend string) (storage.IndexWriter, error) {
	switch backend {
	case "flat", "":
		return memory.Writer{}, nil
	case "sqlite":
		return sqlvec.Writer{}, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
}

// NewVectorIndex opens the configured index and checks it against the catalog
func NewVectorIndex(params Params) (storage.VectorIndex, error) {
	cfg := params.Config
	idx, err := OpenIndex(cfg.Index.Backend, cfg.Data.IndexPath)
	if err != nil {
		return nil, err
	}
	want := storage.Expectation{
		Rows:        params.Catalog.Len(),
		Fingerprint: params.Catalog.Fingerprint(),
		Dimension:   cfg.Embedding.Dimensions,
		Strict:      cfg.Index.Strict(),
	}
	if err := storage.Check(idx, want, cfg.Data.IndexPath, params.Logger); err != nil {
		_ = idx.Close()
		return nil, err
	}
	params.Logger.Info("vector index loaded",
		zap.String("backend", cfg.Index.Backend),
		zap.Int("rows", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.String("model", idx.Manifest().Model),
	)
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return idx.Close() },
	})
	return idx, nil
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(NewVectorIndex),
)
