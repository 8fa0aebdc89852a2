package commands

import (
	"context"
	"os"
	"testing"

	"github.com/0x5457/product-concierge/internal/factory/factorytest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(os.Stderr)
	return cmd.ExecuteContext(context.Background())
}

func TestParseToolArgs(t *testing.T) {
	args, err := parseToolArgs([]string{"query=steel watch", "k=2", "exact=true", "shop_id=S1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"query":   "steel watch",
		"k":       2,
		"exact":   true,
		"shop_id": "S1",
	}, args)

	_, err = parseToolArgs([]string{"query"})
	assert.Error(t, err)
}

func TestIndexThenSearch(t *testing.T) {
	cfg := factorytest.Setup(t)
	require.NoError(t, os.Remove(cfg.Data.IndexPath))
	g := &GlobalOptions{ConfigPath: factorytest.WriteConfig(t, cfg), LogLevel: "error"}

	require.NoError(t, execute(t, NewIndexCommand(g)))
	assert.FileExists(t, cfg.Data.IndexPath)

	require.NoError(t, execute(t, NewSearchCommand(g), "--k", "2", "steel dress watch"))
	require.NoError(t, execute(t, NewAvailabilityCommand(g), "CR123", "--shop", "S1"))
}

func TestSearchMissingIndex(t *testing.T) {
	cfg := factorytest.Setup(t)
	require.NoError(t, os.Remove(cfg.Data.IndexPath))
	g := &GlobalOptions{ConfigPath: factorytest.WriteConfig(t, cfg), LogLevel: "error"}

	assert.Error(t, execute(t, NewSearchCommand(g), "anything"))
}

func TestClientInProcess(t *testing.T) {
	cfg := factorytest.Setup(t)
	g := &GlobalOptions{ConfigPath: factorytest.WriteConfig(t, cfg), LogLevel: "error"}

	for _, args := range [][]string{
		{"--transport", "inproc", "list-tools"},
		{"--transport", "inproc", "search", "--k", "1", "steel"},
		{"--transport", "inproc", "call", "check_product_availability", "product_id=OM1"},
		{"--transport", "inproc", "prompt"},
	} {
		require.NoError(t, execute(t, NewClientCommand(g), args...), "%v", args)
	}

	assert.Error(t, execute(t, NewClientCommand(g), "--transport", "carrier-pigeon", "list-tools"))
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	cfg := factorytest.Setup(t)
	g := &GlobalOptions{ConfigPath: factorytest.WriteConfig(t, cfg), LogLevel: "error"}

	assert.Error(t, execute(t, NewServeCommand(g), "--transport", "carrier-pigeon"))
}
