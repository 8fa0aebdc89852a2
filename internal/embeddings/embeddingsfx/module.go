package embeddingsfx

import (
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for embeddings components
type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// NewEmbedder creates the configured embedder
func NewEmbedder(params Params) (embeddings.Embedder, error) {
	e, err := embeddings.New(params.Config.Embedding)
	if err != nil {
		return nil, err
	}
	params.Logger.Info("embedder ready",
		zap.String("provider", params.Config.Embedding.Provider),
		zap.String("model", e.ModelName()),
	)
	return e, nil
}

// Module provides embeddings components
var Module = fx.Module("embeddings",
	fx.Provide(NewEmbedder),
)
