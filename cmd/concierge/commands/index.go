package commands

import (
	"context"

	"github.com/0x5457/product-concierge/cmd/cmdsfx"
	"github.com/0x5457/product-concierge/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewIndexCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the vector index from the product catalog",
		Long: `Embed every catalog product and write the vector index configured under
data.index_path, using the configured index backend. Row i of the index
belongs to product i of the catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), g, appfx.IndexModule,
				func(ctx context.Context, r *cmdsfx.CommandRunner) error {
					return r.RunIndex(ctx)
				},
			)
		},
	}
}
