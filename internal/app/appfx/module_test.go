package appfx

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/0x5457/product-concierge/cmd/cmdsfx"
	"github.com/0x5457/product-concierge/internal/factory/factorytest"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestAppModule(t *testing.T) {
	cfg := factorytest.Setup(t)
	path := factorytest.WriteConfig(t, cfg)

	var runner *cmdsfx.CommandRunner
	var mcpServer *server.MCPServer
	var out bytes.Buffer
	app := NewAppWithConfig(Module, path, "error", &out, fx.Populate(&runner, &mcpServer))

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()
	assert.NotNil(t, mcpServer)

	require.NoError(t, runner.RunSearch(ctx, factorytest.Query(t, cfg, 0), 1))
	var got struct {
		Products []map[string]any `json:"products"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Products, 1)
	assert.Equal(t, "CR123", got.Products[0]["id"])

	out.Reset()
	require.NoError(t, runner.RunAvailability(ctx, "CR123", ""))
	assert.Contains(t, out.String(), `"shop_id": "S1"`)
}

func TestAppModuleMissingIndex(t *testing.T) {
	cfg := factorytest.Setup(t)
	require.NoError(t, os.Remove(cfg.Data.IndexPath))
	path := factorytest.WriteConfig(t, cfg)

	app := NewAppWithConfig(Module, path, "error", &bytes.Buffer{})
	require.Error(t, app.Err())
	assert.ErrorIs(t, app.Err(), models.ErrStartup)
}

func TestIndexModule(t *testing.T) {
	cfg := factorytest.Setup(t)
	require.NoError(t, os.Remove(cfg.Data.IndexPath))
	cfg.Index.Backend = "sqlite"
	path := factorytest.WriteConfig(t, cfg)

	var runner *cmdsfx.CommandRunner
	var out bytes.Buffer
	app := NewAppWithConfig(IndexModule, path, "error", &out, fx.Populate(&runner))
	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	require.NoError(t, runner.RunIndex(ctx))
	require.NoError(t, app.Stop(ctx))
	assert.Contains(t, out.String(), "index written to")

	// the freshly built index serves searches
	var served bytes.Buffer
	serve := NewAppWithConfig(Module, path, "error", &served, fx.Populate(&runner))
	require.NoError(t, serve.Start(ctx))
	defer func() { require.NoError(t, serve.Stop(ctx)) }()
	require.NoError(t, runner.RunSearch(ctx, factorytest.Query(t, cfg, 1), 1))
	assert.Contains(t, served.String(), `"id": "OM1"`)
}

func TestAvailabilityModule(t *testing.T) {
	cfg := factorytest.Setup(t)
	require.NoError(t, os.Remove(cfg.Data.IndexPath))
	path := factorytest.WriteConfig(t, cfg)

	var runner *cmdsfx.CommandRunner
	var out bytes.Buffer
	app := NewAppWithConfig(AvailabilityModule, path, "error", &out, fx.Populate(&runner))
	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() { require.NoError(t, app.Stop(ctx)) }()

	require.NoError(t, runner.RunAvailability(ctx, "OM1", "S2"))
	assert.Contains(t, out.String(), `"status_label": "Low Qty"`)
	assert.Error(t, runner.RunSearch(ctx, "anything", 3))
}
