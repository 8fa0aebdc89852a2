package cmdsfx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/0x5457/product-concierge/internal/availability"
	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/httpserver"
	"github.com/0x5457/product-concierge/internal/indexer"
	"github.com/0x5457/product-concierge/internal/search"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
)

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config       *config.Config
	catalog      *catalog.Catalog
	search       *search.Service
	availability *availability.Service
	indexer      indexer.Indexer
	mcpServer    *server.MCPServer
	httpServer   *httpserver.Server
	out          io.Writer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config       *config.Config
	Out          io.Writer             `name:"stdout"`
	Catalog      *catalog.Catalog      `optional:"true"`
	Search       *search.Service       `optional:"true"`
	Availability *availability.Service `optional:"true"`
	Indexer      indexer.Indexer       `optional:"true"`
	MCPServer    *server.MCPServer     `optional:"true"`
	HTTPServer   *httpserver.Server    `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	return &CommandRunner{
		config:       params.Config,
		catalog:      params.Catalog,
		search:       params.Search,
		availability: params.Availability,
		indexer:      params.Indexer,
		mcpServer:    params.MCPServer,
		httpServer:   params.HTTPServer,
		out:          params.Out,
	}
}

// RunIndex builds the vector index for the configured catalog
func (r *CommandRunner) RunIndex(ctx context.Context) error {
	if r.indexer == nil || r.catalog == nil {
		return fmt.Errorf("indexer not available")
	}

	progCh, errCh := r.indexer.BuildProgress(ctx, r.catalog, r.config.Data.IndexPath)
	for progCh != nil || errCh != nil {
		select {
		case p, ok := <-progCh:
			if !ok {
				progCh = nil
				continue
			}
			_, _ = fmt.Fprintf(r.out, "\r[%3.0f%%] stage=%s products:%d/%d %-40s",
				p.Percent*100,
				p.Stage,
				p.EmbeddedProducts, p.TotalProducts,
				p.Message,
			)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				_, _ = fmt.Fprintln(r.out)
				return err
			}
		case <-ctx.Done():
			_, _ = fmt.Fprintln(r.out)
			return ctx.Err()
		}
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "index written to %s\n", r.config.Data.IndexPath)
	return nil
}

// RunSearch prints the products closest to query as JSON
func (r *CommandRunner) RunSearch(ctx context.Context, query string, k int) error {
	if r.search == nil {
		return fmt.Errorf("search service not available")
	}
	if k < 0 {
		k = r.config.Search.DefaultK
	}

	results, err := r.search.Search(ctx, query, k)
	if err != nil {
		return err
	}
	return r.printJSON(map[string]any{"products": results})
}

// RunAvailability prints boutique availability for a product as JSON
func (r *CommandRunner) RunAvailability(ctx context.Context, productID, shopID string) error {
	if r.availability == nil {
		return fmt.Errorf("availability service not available")
	}
	entries := r.availability.CheckAvailability(ctx, productID, shopID)
	return r.printJSON(map[string]any{"availability": entries})
}

// RunServer serves MCP on the configured transport until ctx is done
func (r *CommandRunner) RunServer(ctx context.Context) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}

	switch r.config.Server.Transport {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http", "sse":
		if r.httpServer == nil {
			return fmt.Errorf("HTTP server not available")
		}
		return r.httpServer.Run(ctx, r.config.Server.Address)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			r.config.Server.Transport,
		)
	}
}

func (r *CommandRunner) printJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
