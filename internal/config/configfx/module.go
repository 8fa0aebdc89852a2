package configfx

import (
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents the parameters needed to create configuration
type Params struct {
	fx.In

	ConfigPath string `name:"configPath" optional:"true"`
	LogLevel   string `name:"logLevel"   optional:"true"`
}

// NewConfig loads the configuration file, falling back to defaults
func NewConfig(params Params) (*config.Config, error) {
	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	if params.LogLevel != "" {
		cfg.Logging.Level = params.LogLevel
	}
	return cfg, nil
}

// NewLogger builds the process logger from the logging section
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
}

// Module provides configuration and logging for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig, NewLogger),
)
