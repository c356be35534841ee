// Package main provides the entry point for tuplegen.
//
// tuplegen generates client/server flow tuples the way a stateless traffic
// generator does:
// - Validates and normalizes the configured address ranges
// - Splits the ranges across worker cores (optionally over two interfaces)
// - Runs the per-core generators in continuous, single burst or multi
//   burst mode
//
// Usage:
//
//	tuplegen [command] [flags]
//
// Commands:
//
//	validate   Normalize the ranges and report the adjusted server range
//	split      Print the portion served by every core
//	run        Generate tuples and print a summary
//	version    Print version information
//
// Flags:
//
//	--config string       Path to configuration file
//	--log-level string    Log level: debug, info, warn, error
//	--log-format string   Log format: json, text
//
// Environment Variables:
//
//	TUPLEGEN_CONFIG_FILE  Path to configuration file
//	TUPLEGEN_*            Per-setting overrides, see pkg/config
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jiayi-1994/tuplegen/pkg/config"
	"github.com/jiayi-1994/tuplegen/pkg/logging"
)

var (
	// Version information (set at build time)
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// rootOptions are the flags shared by every command
type rootOptions struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

// app is the state prepared for a subcommand
type app struct {
	cfg *config.Config
	log *logging.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, ctx.Err()) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:   "tuplegen",
		Short: "tuplegen generates client/server flow tuples across worker cores",

		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigFile, "config", "",
		"Path to configuration file (can also use TUPLEGEN_CONFIG_FILE env var)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides the configuration file)")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "",
		"Log format: json, text (overrides the configuration file)")

	// every command except version needs a configuration
	setup := func(cmd *cobra.Command, _ []string) error {
		return a.load(cmd, opts)
	}

	root.AddCommand(
		newValidateCommand(a, setup),
		newSplitCommand(a, setup),
		newRunCommand(a, setup),
		newVersionCommand(),
	)
	return root
}

// load reads the configuration and installs the global logger.
func (a *app) load(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}

	logOpts := logging.DefaultOptions()
	logOpts.Level = cfg.Logging.Level
	logOpts.Format = cfg.Logging.Format
	logOpts.OutputPath = cfg.Logging.File
	if logOpts.OutputPath == "" {
		logOpts.Output = cmd.ErrOrStderr()
	}
	if _, err := logging.InitGlobalLogger(logOpts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	a.cfg = cfg
	a.log = logging.LoggerForCommand(cmd.Name())
	cmd.SetContext(logging.IntoContext(cmd.Context(), a.log))
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tuplegen %s (commit: %s, built: %s)\n",
				version, gitCommit, buildDate)
		},
	}
}
