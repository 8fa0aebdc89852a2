package httpserverfx

import (
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/httpserver"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the HTTP server
type Params struct {
	fx.In

	Config    *config.Config
	MCPServer *server.MCPServer
	Logger    *zap.Logger
}

// NewServer creates the HTTP front for the configured transport
func NewServer(params Params) *httpserver.Server {
	return httpserver.New(params.MCPServer, httpserver.Options{
		Transport:   params.Config.Server.Transport,
		ImagesDir:   params.Config.Data.ImagesDir,
		ServeImages: params.Config.Images.Serve,
	}, params.Logger)
}

// Module provides the HTTP server
var Module = fx.Module("httpserver",
	fx.Provide(NewServer),
)
