package commands

import (
	"context"

	"github.com/0x5457/product-concierge/cmd/cmdsfx"
	"github.com/0x5457/product-concierge/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewSearchCommand(g *GlobalOptions) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog by style description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), g, appfx.Module,
				func(ctx context.Context, r *cmdsfx.CommandRunner) error {
					return r.RunSearch(ctx, args[0], k)
				},
			)
		},
	}

	cmd.Flags().IntVar(&k, "k", -1, "number of products (default search.default_k)")
	return cmd
}
