package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/0x5457/product-concierge/cmd/cmdsfx"
	"github.com/0x5457/product-concierge/internal/app/appfx"
	"go.uber.org/fx"
)

// GlobalOptions holds the persistent root flags.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
}

// runApp starts an fx app built from module, hands its CommandRunner to fn,
// then stops the app.
func runApp(
	ctx context.Context,
	g *GlobalOptions,
	module fx.Option,
	fn func(context.Context, *cmdsfx.CommandRunner) error,
	opts ...fx.Option,
) error {
	var runner *cmdsfx.CommandRunner
	opts = append(opts, fx.Populate(&runner))
	app := appfx.NewAppWithConfig(module, g.ConfigPath, g.LogLevel, os.Stdout, opts...)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	runErr := fn(ctx, runner)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}
