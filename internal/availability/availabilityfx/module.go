package availabilityfx

import (
	"github.com/0x5457/product-concierge/internal/availability"
	"github.com/0x5457/product-concierge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the availability service
type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// NewStore loads the inventory store
func NewStore(params Params) (*availability.Store, error) {
	store, err := availability.LoadStore(params.Config.Data.StorePath)
	if err != nil {
		return nil, err
	}
	params.Logger.Info("inventory store loaded",
		zap.Int("shops", len(store.Shops)),
		zap.Int("statuses", len(store.StatusLegend)),
	)
	return store, nil
}

// NewService creates the availability lookup service
func NewService(store *availability.Store) *availability.Service {
	return &availability.Service{Store: store}
}

// Module provides availability components
var Module = fx.Module("availability",
	fx.Provide(NewStore, NewService),
)
