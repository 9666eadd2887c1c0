// Package cli implements the IdeaLink command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/config"
	"github.com/mrz1836/idealink/internal/output"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *zap.Logger
	closeLog  func()
	formatter *output.Formatter

	enrichOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "idealink",
	Short: "Settle idea purchases and investments on-chain",
	Long: `IdeaLink settles purchases of ideas and vesting investments in ideas
through the IdeaLink settlement contract on Avalanche C-Chain.

Prices are quoted in fiat and converted to AVAX at the configured exchange
rate. Every transaction is simulated before your wallet is asked to sign it.`,
	Example: `  idealink wallet connect
  idealink quote idea7 --price 20
  idealink purchase idea7 --price 20 --amount 1.0000
  idealink invest idea3 --price 100
  idealink vesting show idea3`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(); err != nil {
			return err
		}
		SetCmdContext(cmd, NewCommandContext(cfg, logger, formatter))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt by main.
func ExecuteContext(ctx context.Context) error {
	enrichOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if formatter != nil {
			_ = output.FormatError(os.Stderr, err, formatter.Format())
		} else {
			_ = output.FormatError(os.Stderr, err, output.FormatText)
		}
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return ilerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home = config.ExpandHome(home)

	var err error
	cfg, err = config.LoadOrDefault(config.Path(home))
	if err != nil {
		return err
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = config.ExpandHome(homeDir)
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, closeLog, err = config.NewLogger(cfg.Logging, cfg.Output.Verbose)
	if err != nil {
		// NewLogger always hands back a usable no-op logger.
		output.Warnf(os.Stderr, "logging disabled: %v", err)
	}

	explicitFormat := output.ParseFormat(cfg.Output.DefaultFormat)
	formatter = output.NewFormatter(output.DetectFormat(os.Stdout, explicitFormat), os.Stdout)
	return nil
}

// cleanup releases resources.
func cleanup() {
	if closeLog != nil {
		closeLog()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "idealink data directory (default: ~/.idealink)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output and debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "settle", Title: "Settlement Commands:"},
		&cobra.Group{ID: "wallet", Title: "Wallet Commands:"},
	)
}
