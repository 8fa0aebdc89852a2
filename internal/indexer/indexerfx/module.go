package indexerfx

import (
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"github.com/0x5457/product-concierge/internal/indexer"
	"github.com/0x5457/product-concierge/internal/indexer/pipeline"
	"github.com/0x5457/product-concierge/internal/storage/storagefx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the index builder
type Params struct {
	fx.In

	Config   *config.Config
	Embedder embeddings.Embedder
	Logger   *zap.Logger
}

// NewIndexer creates a builder writing the configured index backend
func NewIndexer(params Params) (indexer.Indexer, error) {
	w, err := storagefx.NewIndexWriter(params.Config.Index.Backend)
	if err != nil {
		return nil, err
	}
	return pipeline.New(params.Embedder, w, params.Logger.Named("indexer"), pipeline.Options{
		EmbedBatchSize: params.Config.Embedding.BatchSize,
		EmbedWorkers:   params.Config.Embedding.Workers,
	}), nil
}

// Module provides the index builder
var Module = fx.Module("indexer",
	fx.Provide(NewIndexer),
)
