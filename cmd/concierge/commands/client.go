package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/0x5457/product-concierge/internal/config"
	"github.com/0x5457/product-concierge/internal/factory"
	"github.com/0x5457/product-concierge/internal/logging"
	appmcp "github.com/0x5457/product-concierge/internal/mcp"
	"github.com/spf13/cobra"
)

const (
	transportStdio  = "stdio"
	transportHTTP   = "http"
	transportSSE    = "sse"
	transportInproc = "inproc"
)

type clientOptions struct {
	transport string
	address   string
	timeout   time.Duration
}

// NewClientCommand creates commands for talking to a concierge MCP server
func NewClientCommand(g *GlobalOptions) *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "client",
		Short: "MCP client commands",
		Long:  "Commands for connecting to and interacting with a concierge MCP server",
	}

	cmd.AddCommand(
		newListToolsCommand(g, opts),
		newCallCommand(g, opts),
		newClientSearchCommand(g, opts),
		newPromptCommand(g, opts),
	)

	cmd.PersistentFlags().
		StringVarP(&opts.transport, "transport", "t", transportStdio, "transport (stdio, http, sse, inproc)")
	cmd.PersistentFlags().
		StringVarP(&opts.address, "address", "a", "", "server URL (http/sse), ignored for stdio/inproc")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	return cmd
}

func newListToolsCommand(g *GlobalOptions, opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List available MCP tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), g, opts, func(ctx context.Context, client *appmcp.Client) error {
				tools, err := client.ListTools(ctx)
				if err != nil {
					return fmt.Errorf("failed to list tools: %w", err)
				}
				if len(tools) == 0 {
					fmt.Println("No tools available")
					return nil
				}

				fmt.Printf("Available MCP tools (%d):\n\n", len(tools))
				for i, tool := range tools {
					fmt.Printf("%d. %s\n", i+1, tool.Name)
					if tool.Description != "" {
						fmt.Printf("   Description: %s\n", tool.Description)
					}
					if len(tool.InputSchema.Properties) > 0 {
						fmt.Printf("   Parameters:\n")
						names := make([]string, 0, len(tool.InputSchema.Properties))
						for name := range tool.InputSchema.Properties {
							names = append(names, name)
						}
						slices.Sort(names)
						for _, name := range names {
							required := ""
							if slices.Contains(tool.InputSchema.Required, name) {
								required = " (required)"
							}
							desc := ""
							if propMap, ok := tool.InputSchema.Properties[name].(map[string]any); ok {
								if d, ok := propMap["description"].(string); ok {
									desc = ": " + d
								}
							}
							fmt.Printf("     - %s%s%s\n", name, required, desc)
						}
					}
					fmt.Println()
				}
				return nil
			})
		},
	}
}

func newCallCommand(g *GlobalOptions, opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool_name> [key=value...]",
		Short: "Call a specific MCP tool",
		Long: `Call a specific MCP tool with arguments.
Arguments should be provided as key=value pairs.

Example:
  concierge client call search_products query="steel dress watch" k=2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), g, opts, func(ctx context.Context, client *appmcp.Client) error {
				result, err := client.Call(ctx, args[0], toolArgs)
				if err != nil {
					return fmt.Errorf("call tool failed: %w", err)
				}
				return printJSON(result)
			})
		},
	}
}

func newClientSearchCommand(g *GlobalOptions, opts *clientOptions) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search products through the MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := map[string]any{"query": args[0]}
			if cmd.Flags().Changed("k") {
				toolArgs["k"] = k
			}
			return withClient(cmd.Context(), g, opts, func(ctx context.Context, client *appmcp.Client) error {
				result, err := client.Call(ctx, appmcp.SearchToolName, toolArgs)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().IntVar(&k, "k", 3, "number of products")
	return cmd
}

func newPromptCommand(g *GlobalOptions, opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the concierge prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), g, opts, func(ctx context.Context, client *appmcp.Client) error {
				result, err := client.Prompt(ctx, appmcp.ConciergePromptName)
				if err != nil {
					return fmt.Errorf("get prompt failed: %w", err)
				}
				return printJSON(result)
			})
		},
	}
}

// parseToolArgs turns key=value pairs into tool arguments, parsing numbers
// and booleans.
func parseToolArgs(args []string) (map[string]any, error) {
	toolArgs := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument format: %s (expected key=value)", arg)
		}
		if val, err := strconv.Atoi(value); err == nil {
			toolArgs[key] = val
		} else if val, err := strconv.ParseBool(value); err == nil {
			toolArgs[key] = val
		} else {
			toolArgs[key] = value
		}
	}
	return toolArgs, nil
}

func withClient(
	ctx context.Context,
	g *GlobalOptions,
	opts *clientOptions,
	fn func(context.Context, *appmcp.Client) error,
) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	client, cleanup, err := createMCPClient(ctx, g, opts)
	if err != nil {
		return fmt.Errorf("create MCP client failed: %w", err)
	}
	defer cleanup()
	defer client.Close() //nolint:errcheck

	return fn(ctx, client)
}

func createMCPClient(
	ctx context.Context,
	g *GlobalOptions,
	opts *clientOptions,
) (*appmcp.Client, func(), error) {
	noop := func() {}
	switch opts.transport {
	case transportStdio:
		// launch this binary as the server
		self, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("locate executable: %w", err)
		}
		args := []string{"serve", "--transport", transportStdio}
		if g.ConfigPath != "" {
			args = append(args, "--config", g.ConfigPath)
		}
		if g.LogLevel != "" {
			args = append(args, "--log-level", g.LogLevel)
		}
		client, err := appmcp.NewStdioClient(ctx, self, args...)
		return client, noop, err
	case transportHTTP:
		address := opts.address
		if address == "" {
			address = "http://127.0.0.1:8080/mcp"
		}
		client, err := appmcp.NewHTTPClient(ctx, address)
		return client, noop, err
	case transportSSE:
		address := opts.address
		if address == "" {
			address = "http://127.0.0.1:8080/mcp/sse"
		}
		client, err := appmcp.NewSSEClient(ctx, address)
		return client, noop, err
	case transportInproc:
		return newInProcessClient(ctx, g)
	default:
		return nil, nil, fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse, inproc)",
			opts.transport,
		)
	}
}

// newInProcessClient loads every component in this process and talks to an
// MCP server built on them without any I/O.
func newInProcessClient(ctx context.Context, g *GlobalOptions) (*appmcp.Client, func(), error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	logger, err := logging.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	comps, err := factory.NewComponentFactory(cfg, logger).CreateComponents()
	if err != nil {
		return nil, nil, fmt.Errorf("initialize components failed: %w", err)
	}
	cleanup := func() {
		_ = comps.Cleanup()
		_ = logger.Sync()
	}

	s := appmcp.New(comps.Searcher, comps.Availability, appmcp.ServerOptions{
		DefaultK: cfg.Search.DefaultK,
		Logger:   logger,
	})
	client, err := appmcp.NewInProcessClient(ctx, s)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return client, cleanup, nil
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("format result failed: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
