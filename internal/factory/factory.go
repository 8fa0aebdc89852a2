package factory

import (
	"fmt"

	"github.com/0x5457/product-concierge/internal/artifact"
	"github.com/0x5457/product-concierge/internal/availability"
	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"github.com/0x5457/product-concierge/internal/indexer/pipeline"
	"github.com/0x5457/product-concierge/internal/search"
	"github.com/0x5457/product-concierge/internal/storage"
	"github.com/0x5457/product-concierge/internal/storage/storagefx"
	"go.uber.org/zap"
)

// Components holds the read-only handles a serving process threads through
// to its request handlers.
type Components struct {
	Catalog      *catalog.Catalog
	Embedder     embeddings.Embedder
	Index        storage.VectorIndex
	Store        *availability.Store
	Resolver     *artifact.Resolver
	Searcher     *search.Service
	Availability *availability.Service
}

// ComponentFactory creates and manages component instances
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config, logger *zap.Logger) *ComponentFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComponentFactory{config: cfg, logger: logger}
}

// CreateComponents loads the catalog, index and store and wires the
// services. Any missing or inconsistent startup state is a StartupError.
func (f *ComponentFactory) CreateComponents() (*Components, error) {
	cat, err := f.CreateCatalog()
	if err != nil {
		return nil, err
	}

	embedder, err := f.CreateEmbedder()
	if err != nil {
		return nil, fmt.Errorf("create embedder failed: %w", err)
	}

	idx, err := f.CreateVectorIndex(cat)
	if err != nil {
		return nil, err
	}

	store, err := availability.LoadStore(f.config.Data.StorePath)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	resolver := f.CreateResolver()
	return &Components{
		Catalog:      cat,
		Embedder:     embedder,
		Index:        idx,
		Store:        store,
		Resolver:     resolver,
		Searcher:     f.CreateSearchService(embedder, idx, cat, resolver),
		Availability: &availability.Service{Store: store},
	}, nil
}

// CreateCatalog loads the product catalog
func (f *ComponentFactory) CreateCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(f.config.Data.ProductsPath)
	if err != nil {
		return nil, err
	}
	f.logger.Info("catalog loaded", zap.Int("products", cat.Len()))
	return cat, nil
}

// CreateEmbedder creates the configured embedder
func (f *ComponentFactory) CreateEmbedder() (embeddings.Embedder, error) {
	return embeddings.New(f.config.Embedding)
}

// CreateLocalEmbedder creates a local embedder for testing
func (f *ComponentFactory) CreateLocalEmbedder(dimension int) embeddings.Embedder {
	return embeddings.NewGuard(embeddings.NewLocal(dimension), dimension)
}

// CreateVectorIndex opens the configured index and checks it against cat
func (f *ComponentFactory) CreateVectorIndex(cat *catalog.Catalog) (storage.VectorIndex, error) {
	idx, err := storagefx.OpenIndex(f.config.Index.Backend, f.config.Data.IndexPath)
	if err != nil {
		return nil, err
	}
	want := storage.Expectation{
		Rows:        cat.Len(),
		Fingerprint: cat.Fingerprint(),
		Dimension:   f.config.Embedding.Dimensions,
		Strict:      f.config.Index.Strict(),
	}
	if err := storage.Check(idx, want, f.config.Data.IndexPath, f.logger); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// CreateResolver creates the artifact resolver
func (f *ComponentFactory) CreateResolver() *artifact.Resolver {
	return artifact.New(f.config.Data.ImagesDir, f.config.Images.BaseURL, f.logger.Named("artifact"))
}

// CreateSearchService creates a search service instance
func (f *ComponentFactory) CreateSearchService(
	embedder embeddings.Embedder,
	idx storage.VectorIndex,
	cat *catalog.Catalog,
	resolver *artifact.Resolver,
) *search.Service {
	return &search.Service{
		Embedder: embedder,
		Index:    idx,
		Catalog:  cat,
		Resolver: resolver,
		MaxK:     f.config.Search.MaxK,
	}
}

// CreateIndexer creates an index builder writing the configured backend
func (f *ComponentFactory) CreateIndexer(embedder embeddings.Embedder) (*pipeline.Builder, error) {
	w, err := storagefx.NewIndexWriter(f.config.Index.Backend)
	if err != nil {
		return nil, err
	}
	return pipeline.New(embedder, w, f.logger.Named("indexer"), pipeline.Options{
		EmbedBatchSize: f.config.Embedding.BatchSize,
		EmbedWorkers:   f.config.Embedding.Workers,
	}), nil
}

// Cleanup releases resources held by components
func (c *Components) Cleanup() error {
	if c.Index != nil {
		if err := c.Index.Close(); err != nil {
			return fmt.Errorf("close vector index failed: %w", err)
		}
	}
	return nil
}
