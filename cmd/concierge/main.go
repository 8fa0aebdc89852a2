package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/0x5457/product-concierge/cmd/concierge/commands"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
)

func main() {
	// a missing .env is fine
	_ = gotenv.Load()

	opts := &commands.GlobalOptions{}
	rootCmd := &cobra.Command{
		Use:           "concierge",
		Short:         "Product concierge: semantic catalog search and boutique availability over MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().
		StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./concierge.yaml)")
	rootCmd.PersistentFlags().
		StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		commands.NewServeCommand(opts),
		commands.NewSearchCommand(opts),
		commands.NewAvailabilityCommand(opts),
		commands.NewIndexCommand(opts),
		commands.NewClientCommand(opts),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
