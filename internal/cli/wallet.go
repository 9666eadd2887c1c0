package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/metrics"
	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/session"
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var watchFor time.Duration

// walletCmd is the parent command for wallet session operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Connect to a wallet and inspect the session",
	Long: `Connect to the configured wallet provider and inspect the session.

The provider is either an external wallet reachable over JSON-RPC
(provider.mode=rpc, provider.wallet_url) or the local development wallet
(provider.mode=devwallet) signing through network.rpc.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Request account access and show the connected account",
	Long: `Ask the wallet for account access and show the active account, network,
and native balance.

Disconnecting never revokes the permission you grant here; revoke it in the
wallet itself.`,
	Example: `  idealink wallet connect
  idealink wallet connect -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletConnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, provider and contract details",
	Long: `Show the wallet session together with the provider and contract settings.
With --verbose the provider and settlement counters of this run are shown too.`,
	Example: `  idealink wallet status
  idealink wallet status --verbose`,
	Args: cobra.NoArgs,
	RunE: runWalletStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow account and network changes",
	Long: `Connect and print every account or network change the wallet reports,
until interrupted. A wallet that reports no accounts ends the session.`,
	Example: `  idealink wallet watch
  idealink wallet watch --for 10m`,
	Args: cobra.NoArgs,
	RunE: runWalletWatch,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.GroupID = "wallet"
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletConnectCmd, walletStatusCmd, walletWatchCmd)

	walletWatchCmd.Flags().DurationVar(&watchFor, "for", 0, "stop watching after this long (default: until interrupted)")
}

type sessionView struct {
	Address       string `json:"address"`
	ChainID       uint64 `json:"chain_id"`
	Network       string `json:"network"`
	NativeBalance string `json:"native_balance,omitempty"`
	Symbol        string `json:"symbol"`
}

func newSessionView(s session.Session) sessionView {
	n := s.Network()
	return sessionView{
		Address:       s.Address,
		ChainID:       s.ChainID,
		Network:       n.Name,
		NativeBalance: s.NativeBalance,
		Symbol:        n.Symbol,
	}
}

func runWalletConnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctx, cancel := requestContext(cmd, cc)
	defer cancel()

	rt, err := newRuntime(ctx, cc, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := rt.connect(ctx, cc, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, newSessionView(s))
	}
	output.Successf(w, "Connected %s on %s", output.ShortenAddress(s.Address), s.Network())
	if s.NativeBalance != "" {
		out(w, "Balance: %s %s\n", s.NativeBalance, s.Network().Symbol)
	}
	return nil
}

type statusView struct {
	Session  sessionView       `json:"session"`
	Provider string            `json:"provider"`
	Contract string            `json:"contract"`
	Rate     string            `json:"exchange_rate"`
	Metrics  *metrics.Snapshot `json:"metrics,omitempty"`
}

func runWalletStatus(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctx, cancel := requestContext(cmd, cc)
	defer cancel()

	rt, err := newRuntime(ctx, cc, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := rt.connect(ctx, cc, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	view := statusView{
		Session:  newSessionView(s),
		Provider: cc.Cfg.Provider.Mode,
		Contract: rt.gateway.Address().Hex(),
		Rate:     rt.orch.ExchangeRate().String(),
	}
	if cc.Cfg.IsVerbose() {
		snap := cc.Metrics.Snapshot()
		view.Metrics = &snap
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, view)
	}

	t := output.NewTable("FIELD", "VALUE")
	t.SetNoHeader(true)
	t.AddRow("Address", s.Address)
	t.AddRow("Network", s.Network().String())
	if s.NativeBalance != "" {
		t.AddRow("Balance", s.NativeBalance+" "+s.Network().Symbol)
	}
	t.AddRow("Provider", view.Provider)
	t.AddRow("Contract", view.Contract)
	t.AddRow("Exchange rate", view.Rate+" per "+cc.Cfg.Network.NativeSymbol)
	if err := t.Render(w); err != nil {
		return err
	}

	if view.Metrics != nil {
		outln(w)
		return renderMetrics(w, *view.Metrics)
	}
	return nil
}

func renderMetrics(w io.Writer, m metrics.Snapshot) error {
	t := output.NewTable("METRIC", "VALUE")
	t.AlignRight(1)
	t.AddRow("RPC calls", strconv.FormatInt(m.RPCCallsTotal, 10))
	t.AddRow("RPC errors", strconv.FormatInt(m.RPCErrorsTotal, 10))
	t.AddRow("RPC latency (avg ms)", strconv.FormatFloat(m.RPCLatencyAvgMs, 'f', 1, 64))
	t.AddRow("Attempts", strconv.FormatInt(m.AttemptsTotal, 10))
	t.AddRow("Confirmed", strconv.FormatInt(m.ConfirmedTotal, 10))
	t.AddRow("Failed", strconv.FormatInt(m.FailedTotal, 10))
	t.AddRow("Gas fallbacks", strconv.FormatInt(m.GasFallbacks, 10))
	t.AddRow("Releases skipped", strconv.FormatInt(m.ReleaseSkipped, 10))
	for _, f := range m.Failures {
		t.AddRow("  "+f.Code, strconv.FormatInt(f.Count, 10))
	}
	return t.Render(w)
}

// watchable is implemented by providers that relay wallet events only
// while watched.
type watchable interface {
	Watch(ctx context.Context, interval time.Duration)
}

type watchEvent struct {
	Event    string   `json:"event"`
	Accounts []string `json:"accounts,omitempty"`
	ChainID  uint64   `json:"chain_id,omitempty"`
	At       string   `json:"at"`
}

func runWalletWatch(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	connectCtx, cancel := requestContext(cmd, cc)
	defer cancel()

	rt, err := newRuntime(connectCtx, cc, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := rt.connect(connectCtx, cc, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if watchFor > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, watchFor)
		defer stop()
	}

	w := cmd.OutOrStdout()
	events := make(chan watchEvent, 16)
	emit := func(e watchEvent) {
		e.At = cc.Now().UTC().Format(time.RFC3339)
		select {
		case events <- e:
		default:
		}
	}
	defer rt.session.OnAccountsChanged(func(accounts []string) {
		if len(accounts) == 0 {
			emit(watchEvent{Event: "disconnected"})
			return
		}
		emit(watchEvent{Event: "accountsChanged", Accounts: accounts})
	})()
	defer rt.session.OnChainChanged(func(chainID uint64) {
		emit(watchEvent{Event: "chainChanged", ChainID: chainID})
	})()

	if p, ok := rt.provider.(watchable); ok {
		p.Watch(ctx, cc.Cfg.PollInterval())
	}

	if !cc.Fmt.IsJSON() {
		output.Infof(cmd.ErrOrStderr(), "Watching %s on %s (Ctrl+C to stop)", output.ShortenAddress(s.Address), s.Network())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			printWatchEvent(w, cc, e)
		}
	}
}

func printWatchEvent(w io.Writer, cc *CommandContext, e watchEvent) {
	if cc.Fmt.IsJSON() {
		_ = output.WriteJSON(w, e)
		return
	}
	switch e.Event {
	case "disconnected":
		output.Warnf(w, "%s wallet disconnected", e.At)
	case "accountsChanged":
		output.Infof(w, "%s account changed to %s", e.At, e.Accounts[0])
	case "chainChanged":
		output.Infof(w, "%s network changed to %s", e.At, networkName(e.ChainID))
	}
}

func networkName(chainID uint64) string {
	return chain.LookupNetwork(chainID).String()
}
