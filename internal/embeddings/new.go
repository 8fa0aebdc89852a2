package embeddings

import (
	"fmt"

	"github.com/0x5457/product-concierge/internal/config"
)

// New builds the configured embedder, wrapped in a Guard and, when
// cache_size is positive, a query cache.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var inner Embedder
	switch cfg.Provider {
	case "api", "":
		inner = NewApi(cfg.URL, cfg.Model)
	case "openai":
		inner = NewOpenAI(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case "local":
		inner = NewLocal(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	var e Embedder = NewGuard(inner, cfg.Dimensions)
	if cfg.CacheSize > 0 {
		cached, err := NewCached(e, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		e = cached
	}
	return e, nil
}
