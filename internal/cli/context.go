package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/config"
	"github.com/mrz1836/idealink/internal/metrics"
	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/provider"
)

// ProviderFactory opens the wallet provider a command talks to.
type ProviderFactory func(ctx context.Context, cc *CommandContext) (provider.Provider, error)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Log     *zap.Logger
	Fmt     *output.Formatter
	Metrics *metrics.Metrics

	// Dial opens the provider. Tests replace it with a scripted provider.
	Dial ProviderFactory

	// Now is the clock used for vesting display.
	Now func() time.Time
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, logger *zap.Logger, formatter *output.Formatter) *CommandContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandContext{
		Cfg:     cfg,
		Log:     logger,
		Fmt:     formatter,
		Metrics: metrics.Global,
		Dial:    dialProvider,
		Now:     time.Now,
	}
}

// defaultRequestTimeout applies when provider.timeout_seconds is unset.
const defaultRequestTimeout = 5 * time.Minute

type cmdContextKey struct{}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the CommandContext attached to cmd, falling back to
// one built from the globals.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if ctx := cmd.Context(); ctx != nil {
		if cc, ok := ctx.Value(cmdContextKey{}).(*CommandContext); ok {
			return cc
		}
	}
	return NewCommandContext(cfg, logger, formatter)
}

// requestContext bounds a wallet interaction by the configured timeout.
func requestContext(cmd *cobra.Command, cc *CommandContext) (context.Context, context.CancelFunc) {
	timeout := cc.Cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return contextWithTimeout(cmd, timeout)
}
