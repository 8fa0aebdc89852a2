package mcp

import (
	"context"
	"errors"

	"github.com/0x5457/product-concierge/internal/availability"
	"github.com/0x5457/product-concierge/internal/logging"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	ServerName    = "product-concierge"
	ServerVersion = "0.1.0"

	SearchToolName       = "search_products"
	AvailabilityToolName = "check_product_availability"
	ConciergePromptName  = "concierge"
)

// ConciergeInstruction is served as the concierge prompt for agents that
// drive the two tools.
const ConciergeInstruction = "Start by greeting the user and introducing yourself as a luxury watch and jewelry concierge. " +
	"Interpret the user's style preferences. Call search_products to curate one to three pieces, " +
	"then use check_product_availability when the user asks about stock levels or boutique pickup. " +
	"For each product, use the `image_markdown` field returned by the tool to present the image " +
	"(it already contains the formatted Markdown tag). " +
	"Follow with key specs, URLs, and availability summaries as needed. " +
	"Be polished, concise, and proactive about summarising availability options."

// ServerOptions contains configuration for the MCP server
type ServerOptions struct {
	DefaultK int
	Logger   *zap.Logger
}

// Server holds the services behind the MCP tools
type Server struct {
	opts         ServerOptions
	search       *search.Service
	availability *availability.Service
	logger       *zap.Logger
}

// New returns an MCP server exposing product search and availability tools.
// Nil services produce tool errors instead of panics.
func New(searchService *search.Service, availabilityService *availability.Service, opts ServerOptions) *server.MCPServer {
	if opts.DefaultK <= 0 {
		opts.DefaultK = search.DefaultK
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	srv := &Server{
		opts:         opts,
		search:       searchService,
		availability: availabilityService,
		logger:       opts.Logger.Named("mcp"),
	}

	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
	)
	s.AddTool(newSearchProductsTool(opts.DefaultK), srv.handleSearchProducts)
	s.AddTool(newCheckAvailabilityTool(), srv.handleCheckAvailability)
	s.AddPrompt(newConciergePrompt(), srv.handleConciergePrompt)
	return s
}

// Tool definitions
func newSearchProductsTool(defaultK int) mcp.Tool {
	return mcp.NewTool(
		SearchToolName,
		mcp.WithDescription(
			"Find catalog products matching a free-text style query, closest first. "+
				"Results carry image_url and image_markdown when a product image is available.",
		),
		mcp.WithString("query", mcp.Description("Style or product description"), mcp.Required()),
		mcp.WithNumber("k", mcp.Description("Maximum number of products"), mcp.DefaultNumber(float64(defaultK))),
	)
}

func newCheckAvailabilityTool() mcp.Tool {
	return mcp.NewTool(
		AvailabilityToolName,
		mcp.WithDescription("Return boutique availability for a product SKU, one entry per stocking boutique"),
		mcp.WithString("product_id", mcp.Description("Product SKU"), mcp.Required()),
		mcp.WithString("shop_id", mcp.Description("Optional boutique identifier to narrow the search")),
	)
}

func newConciergePrompt() mcp.Prompt {
	return mcp.NewPrompt(
		ConciergePromptName,
		mcp.WithPromptDescription("Instructions for a luxury watch and jewelry concierge agent"),
	)
}

// Handlers
func (srv *Server) handleSearchProducts(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	k := req.GetInt("k", srv.opts.DefaultK)

	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}

	ctx, logger := logging.WithRequest(ctx, srv.logger, SearchToolName)
	results, err := srv.search.Search(ctx, query, k)
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		if errors.Is(err, models.ErrEncoding) {
			return mcp.NewToolResultError("embedding backend unavailable"), nil
		}
		return mcp.NewToolResultError("search failed"), nil
	}
	logger.Info("search", zap.Int("k", k), zap.Int("results", len(results)))
	return mcp.NewToolResultStructuredOnly(map[string]any{"products": results}), nil
}

func (srv *Server) handleCheckAvailability(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	productID, err := req.RequireString("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	shopID := req.GetString("shop_id", "")

	if srv.availability == nil {
		return mcp.NewToolResultError("availability service not initialized"), nil
	}

	ctx, logger := logging.WithRequest(ctx, srv.logger, AvailabilityToolName)
	entries := srv.availability.CheckAvailability(ctx, productID, shopID)
	logger.Info("availability",
		zap.String("product_id", productID),
		zap.String("shop_id", shopID),
		zap.Int("entries", len(entries)),
	)
	return mcp.NewToolResultStructuredOnly(map[string]any{"availability": entries}), nil
}

func (srv *Server) handleConciergePrompt(
	_ context.Context,
	_ mcp.GetPromptRequest,
) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult(
		"Concierge instructions",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(ConciergeInstruction)),
		},
	), nil
}
