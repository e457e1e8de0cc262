// Command llm-gm runs context-retrieval experiments for an LLM game
// master: seed a test world, compare retrieval strategies, sweep
// parameters, and write the results to CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yumozi/llm-gm/internal/config"
	"github.com/yumozi/llm-gm/internal/observe"
)

var version = "dev"

var (
	configPath   string
	cfg          *config.Config
	otelShutdown func(context.Context) error
)

func main() {
	root := &cobra.Command{
		Use:           "llm-gm",
		Short:         "Context-retrieval experiment harness for an LLM game master",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	root.PersistentPreRunE = setup
	root.PersistentPostRunE = teardown

	root.AddCommand(seedCmd())
	root.AddCommand(baselineCmd())
	root.AddCommand(ablateCmd())
	root.AddCommand(latencyCmd())
	root.AddCommand(inspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "llm-gm: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, installs the logger and initialises telemetry.
// A missing config file is not fatal: every setting has a default, though
// without a store DSN and API keys only dry runs work.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", configPath)
	}

	otelShutdown, err = observe.InitProvider(cmd.Context(), observe.ProviderConfig{
		ServiceName:    "llm-gm",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if otelShutdown == nil {
		return nil
	}
	return otelShutdown(cmd.Context())
}
