package mcpfx

import (
	"context"

	"github.com/0x5457/product-concierge/internal/availability"
	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	appmcp "github.com/0x5457/product-concierge/internal/mcp"
	"github.com/0x5457/product-concierge/internal/search"
	"github.com/0x5457/product-concierge/internal/storage"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for MCP server
type Params struct {
	fx.In

	SearchService       *search.Service
	AvailabilityService *availability.Service
	Config              *config.Config
	Logger              *zap.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(params Params) *server.MCPServer {
	return appmcp.New(params.SearchService, params.AvailabilityService, appmcp.ServerOptions{
		DefaultK: params.Config.Search.DefaultK,
		Logger:   params.Logger,
	})
}

// Lifecycle reports what the MCP server is serving once the app has started
type Lifecycle struct {
	catalog *catalog.Catalog
	index   storage.VectorIndex
	config  *config.Config
	logger  *zap.Logger
}

// NewLifecycle creates a new MCP lifecycle manager
func NewLifecycle(
	cat *catalog.Catalog,
	index storage.VectorIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Lifecycle {
	return &Lifecycle{
		catalog: cat,
		index:   index,
		config:  cfg,
		logger:  logger,
	}
}

// Start logs the loaded state. All loading already happened in the providers.
func (m *Lifecycle) Start(ctx context.Context) error {
	manifest := m.index.Manifest()
	m.logger.Info("concierge ready",
		zap.Int("products", m.catalog.Len()),
		zap.Int("index_rows", m.index.Len()),
		zap.Int("dimension", m.index.Dimension()),
		zap.String("model", manifest.Model),
		zap.String("transport", m.config.Server.Transport),
		zap.String("image_base_url", m.config.Images.BaseURL),
	)
	return nil
}

// Stop handles graceful shutdown
func (m *Lifecycle) Stop(ctx context.Context) error {
	m.logger.Info("concierge stopping")
	return nil
}

// Module provides MCP server components
var Module = fx.Module("mcp",
	fx.Provide(
		NewMCPServer,
		NewLifecycle,
	),
	fx.Invoke(func(lc fx.Lifecycle, l *Lifecycle) {
		lc.Append(fx.Hook{OnStart: l.Start, OnStop: l.Stop})
	}),
)
