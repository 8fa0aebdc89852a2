package appfx

import (
	"io"

	"github.com/0x5457/product-concierge/cmd/cmdsfx"
	"github.com/0x5457/product-concierge/internal/availability/availabilityfx"
	"github.com/0x5457/product-concierge/internal/catalog/catalogfx"
	"github.com/0x5457/product-concierge/internal/config/configfx"
	"github.com/0x5457/product-concierge/internal/embeddings/embeddingsfx"
	"github.com/0x5457/product-concierge/internal/httpserver/httpserverfx"
	"github.com/0x5457/product-concierge/internal/indexer/indexerfx"
	"github.com/0x5457/product-concierge/internal/mcp/mcpfx"
	"github.com/0x5457/product-concierge/internal/search/searchfx"
	"github.com/0x5457/product-concierge/internal/storage/storagefx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module combines all modules a serving process needs
var Module = fx.Options(
	configfx.Module,
	catalogfx.Module,
	embeddingsfx.Module,
	storagefx.Module,
	searchfx.Module,
	availabilityfx.Module,
	mcpfx.Module,
	httpserverfx.Module,
	cmdsfx.Module,
)

// IndexModule builds the index; it does not open an existing one
var IndexModule = fx.Options(
	configfx.Module,
	catalogfx.Module,
	embeddingsfx.Module,
	indexerfx.Module,
	cmdsfx.Module,
)

// AvailabilityModule only loads the inventory store
var AvailabilityModule = fx.Options(
	configfx.Module,
	availabilityfx.Module,
	cmdsfx.Module,
)

// NewAppWithConfig creates an Fx app from module with the given flag values.
// Command output goes to out; logs go to stderr.
func NewAppWithConfig(module fx.Option, configPath, logLevel string, out io.Writer, opts ...fx.Option) *fx.App {
	return fx.New(
		module,
		fx.Supply(
			fx.Annotate(configPath, fx.ResultTags(`name:"configPath"`)),
			fx.Annotate(logLevel, fx.ResultTags(`name:"logLevel"`)),
		),
		fx.Provide(fx.Annotate(
			func() io.Writer { return out },
			fx.ResultTags(`name:"stdout"`),
		)),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Options(opts...),
	)
}

// NewApp creates the serving app with default configuration
func NewApp(out io.Writer, opts ...fx.Option) *fx.App {
	return NewAppWithConfig(Module, "", "", out, opts...)
}
