package commands

import (
	"context"

	"github.com/0x5457/product-concierge/cmd/cmdsfx"
	"github.com/0x5457/product-concierge/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewAvailabilityCommand(g *GlobalOptions) *cobra.Command {
	var shopID string

	cmd := &cobra.Command{
		Use:   "availability <product_id>",
		Short: "Show boutique availability for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), g, appfx.AvailabilityModule,
				func(ctx context.Context, r *cmdsfx.CommandRunner) error {
					return r.RunAvailability(ctx, args[0], shopID)
				},
			)
		},
	}

	cmd.Flags().StringVarP(&shopID, "shop", "s", "", "limit to one boutique")
	return cmd
}
