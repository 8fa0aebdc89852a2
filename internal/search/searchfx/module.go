package searchfx

import (
	"github.com/0x5457/product-concierge/internal/artifact"
	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"github.com/0x5457/product-concierge/internal/search"
	"github.com/0x5457/product-concierge/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for search service
type Params struct {
	fx.In

	Config   *config.Config
	Embedder embeddings.Embedder
	Index    storage.VectorIndex
	Catalog  *catalog.Catalog
	Resolver *artifact.Resolver
}

// NewResolver creates the artifact resolver for the configured images directory
func NewResolver(cfg *config.Config, logger *zap.Logger) *artifact.Resolver {
	return artifact.New(cfg.Data.ImagesDir, cfg.Images.BaseURL, logger.Named("artifact"))
}

// NewSearchService creates a new search service instance
func NewSearchService(params Params) *search.Service {
	return &search.Service{
		Embedder: params.Embedder,
		Index:    params.Index,
		Catalog:  params.Catalog,
		Resolver: params.Resolver,
		MaxK:     params.Config.Search.MaxK,
	}
}

// Module provides search components
var Module = fx.Module("search",
	fx.Provide(NewResolver, NewSearchService),
)
