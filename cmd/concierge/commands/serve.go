package commands

import (
	"context"

	"github.com/0x5457/product-concierge/cmd/cmdsfx"
	"github.com/0x5457/product-concierge/internal/app/appfx"
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// NewServeCommand runs the MCP server exposing product search and availability.
func NewServeCommand(g *GlobalOptions) *cobra.Command {
	var (
		transport   string
		address     string
		serveImages bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run MCP server",
		Long: `Run the MCP server with the search_products and check_product_availability tools.

Transports:
  stdio  MCP over stdin/stdout (default)
  http   streamable HTTP at <address>/mcp
  sse    SSE at <address>/mcp/sse, messages at <address>/mcp/message

HTTP transports also serve /healthz, /metrics and, with --serve-images, /images/*.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			override := fx.Decorate(func(cfg *config.Config) (*config.Config, error) {
				if cmd.Flags().Changed("transport") {
					cfg.Server.Transport = transport
				}
				if cmd.Flags().Changed("address") {
					cfg.Server.Address = address
				}
				if cmd.Flags().Changed("serve-images") {
					cfg.Images.Serve = serveImages
				}
				return cfg, cfg.Validate()
			})
			return runApp(cmd.Context(), g, appfx.Module,
				func(ctx context.Context, r *cmdsfx.CommandRunner) error {
					return r.RunServer(ctx)
				},
				override,
			)
		},
	}

	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&address, "address", "a", ":8080", "listen address for http modes")
	cmd.Flags().BoolVar(&serveImages, "serve-images", false, "serve the images directory at /images")

	return cmd
}
