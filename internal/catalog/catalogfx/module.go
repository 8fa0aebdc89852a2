package catalogfx

import (
	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the catalog
type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// NewCatalog loads the product catalog named in the configuration
func NewCatalog(params Params) (*catalog.Catalog, error) {
	c, err := catalog.Load(params.Config.Data.ProductsPath)
	if err != nil {
		return nil, err
	}
	params.Logger.Info("Loaded products",
		zap.Int("count", c.Len()),
		zap.String("path", params.Config.Data.ProductsPath),
	)
	return c, nil
}

// Module provides the product catalog
var Module = fx.Module("catalog",
	fx.Provide(NewCatalog),
)
