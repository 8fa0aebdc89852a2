package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/0x5457/product-concierge/internal/factory"
	"github.com/0x5457/product-concierge/internal/factory/factorytest"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func assertTools(t *testing.T, ctx context.Context, cli *Client) {
	t.Helper()
	tools, err := cli.ListTools(ctx)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	if !names[SearchToolName] || !names[AvailabilityToolName] {
		t.Fatalf("unexpected tools: %v", names)
	}
}

// TestStreamableHTTPTransport verifies initialize and list-tools via streamable-http
func TestStreamableHTTPTransport(t *testing.T) {
	s := New(nil, nil, ServerOptions{})
	ts := httptest.NewServer(server.NewStreamableHTTPServer(s))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	cli, err := NewHTTPClient(ctx, ts.URL)
	if err != nil {
		t.Fatalf("new http client: %v", err)
	}
	defer func() { _ = cli.Close() }()

	assertTools(t, ctx, cli)
}

const stdioServerEnv = "CONCIERGE_TEST_STDIO_SERVER"

// TestStdioServerProcess is not a test on its own: TestStdioTransport runs
// the test binary with it selected so the binary serves MCP over stdio.
func TestStdioServerProcess(t *testing.T) {
	if os.Getenv(stdioServerEnv) != "1" {
		t.Skip("only runs as a child of TestStdioTransport")
	}
	if err := server.ServeStdio(New(nil, nil, ServerOptions{})); err != nil {
		t.Fatalf("serve stdio: %v", err)
	}
}

// TestStdioTransport verifies the server process stays usable after the client is set up
func TestStdioTransport(t *testing.T) {
	t.Setenv(stdioServerEnv, "1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	cli, err := NewStdioClient(ctx, os.Args[0], "-test.run=^TestStdioServerProcess$")
	if err != nil {
		t.Fatalf("new stdio client: %v", err)
	}
	defer func() { _ = cli.Close() }()

	assertTools(t, ctx, cli)

	res, err := cli.Call(ctx, SearchToolName, map[string]any{"query": "anything"})
	if err != nil {
		t.Fatalf("call search: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected a tool error without a search service, got %+v", res.Content)
	}
}

// TestSSETransport verifies initialize and list-tools via SSE
func TestSSETransport(t *testing.T) {
	s := New(nil, nil, ServerOptions{})
	sse := server.NewSSEServer(s,
		server.WithStaticBasePath("/mcp"),
	)
	mux := http.NewServeMux()
	mux.Handle("/mcp/sse", sse.SSEHandler())
	mux.Handle("/mcp/message", sse.MessageHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	cli, err := NewSSEClient(ctx, ts.URL+"/mcp/sse")
	if err != nil {
		t.Fatalf("new sse client: %v", err)
	}
	defer func() { _ = cli.Close() }()

	assertTools(t, ctx, cli)
}

// TestInProcessRoundTrip calls both tools and the prompt against real services.
func TestInProcessRoundTrip(t *testing.T) {
	cfg := factorytest.Setup(t)
	comps, err := factory.NewComponentFactory(cfg, nil).CreateComponents()
	if err != nil {
		t.Fatalf("create components: %v", err)
	}
	t.Cleanup(func() { _ = comps.Cleanup() })

	s := New(comps.Searcher, comps.Availability, ServerOptions{DefaultK: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	cli, err := NewInProcessClient(ctx, s)
	if err != nil {
		t.Fatalf("new in-process client: %v", err)
	}
	defer func() { _ = cli.Close() }()

	res, err := cli.Call(ctx, SearchToolName, map[string]any{"query": factorytest.Query(t, cfg, 2)})
	if err != nil {
		t.Fatalf("call search: %v", err)
	}
	if res.IsError {
		t.Fatalf("search returned tool error: %+v", res.Content)
	}
	products := structured(t, res)["products"].([]any)
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	first := products[0].(map[string]any)
	if first["id"] != "RX9" || first["image_markdown"] != "RX9 ![RX9](http://images.test/RX9.webp)" {
		t.Fatalf("unexpected first product: %v", first)
	}

	res, err = cli.Call(ctx, AvailabilityToolName, map[string]any{"product_id": "OM1"})
	if err != nil {
		t.Fatalf("call availability: %v", err)
	}
	entries := structured(t, res)["availability"].([]any)
	if len(entries) != 1 || entries[0].(map[string]any)["status_label"] != "Low Qty" {
		t.Fatalf("unexpected availability: %v", entries)
	}

	prompt, err := cli.Prompt(ctx, ConciergePromptName)
	if err != nil {
		t.Fatalf("get prompt: %v", err)
	}
	if len(prompt.Messages) != 1 {
		t.Fatalf("expected one prompt message, got %d", len(prompt.Messages))
	}
	if _, ok := prompt.Messages[0].Content.(mcp.TextContent); !ok {
		t.Fatalf("expected text content, got %T", prompt.Messages[0].Content)
	}
}
