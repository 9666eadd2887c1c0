package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/chain/eth"
	"github.com/mrz1836/idealink/internal/config"
	"github.com/mrz1836/idealink/internal/contract"
	"github.com/mrz1836/idealink/internal/journal"
	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/session"
	"github.com/mrz1836/idealink/internal/settlement"
	"github.com/mrz1836/idealink/internal/wallet"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// assumeYes skips confirmation prompts, including the development wallet's
// signing prompt.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var assumeYes bool

// runtime is the settlement stack for one command invocation.
type runtime struct {
	provider provider.Provider
	session  *session.Manager
	gateway  *contract.Gateway
	orch     *settlement.Orchestrator
	journal  *journal.Store
	network  chain.Network
}

// newRuntime validates the configuration, dials the provider and wires
// session, gateway and orchestrator together. Notifications go to w.
func newRuntime(ctx context.Context, cc *CommandContext, w io.Writer) (*runtime, error) {
	if err := cc.Cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := cc.Dial(ctx, cc)
	if err != nil {
		return nil, err
	}
	rt, err := buildRuntime(cc, w, p)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return rt, nil
}

// newOfflineRuntime wires the stack without a provider. It serves
// submissions already known to fail validation, which are journaled but
// must not unlock a keystore or open a connection.
func newOfflineRuntime(cc *CommandContext, w io.Writer) (*runtime, error) {
	if err := cc.Cfg.Validate(); err != nil {
		return nil, err
	}
	return buildRuntime(cc, w, nil)
}

func buildRuntime(cc *CommandContext, w io.Writer, p provider.Provider) (*runtime, error) {
	c := cc.Cfg
	rate, err := c.ExchangeRate()
	if err != nil {
		return nil, err
	}
	address, err := eth.ParseAddress(c.Network.Contract)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		provider: p,
		session:  session.NewManager(p, cc.Log),
		journal:  journal.New(c.JournalDir()),
		network:  chain.LookupNetwork(c.Network.ChainID),
	}
	rt.gateway = contract.NewGateway(rt.session, contract.Options{
		Address:          address,
		GasMarginPercent: c.Settlement.GasMarginPercent,
		FallbackGasLimit: c.Settlement.FallbackGasLimit,
		Confirmations:    c.Settlement.Confirmations,
		PollInterval:     c.PollInterval(),
		RewardRate:       c.Settlement.RewardRate,
		Logger:           cc.Log,
		Metrics:          cc.Metrics,
	})
	rt.orch, err = settlement.New(rt.gateway, rt.session, settlement.Options{
		ExchangeRate:   rate,
		DefaultVesting: c.DefaultVesting(),
		GuardInFlight:  c.Settlement.GuardInFlight,
		NativeSymbol:   c.Network.NativeSymbol,
		Notifier:       newNotifier(w, cc, rt.network),
		Journal:        rt.journal,
		Logger:         cc.Log,
		Metrics:        cc.Metrics,
	})
	if err != nil {
		rt.session.Close()
		return nil, err
	}
	return rt, nil
}

// connect opens the wallet session and warns when the wallet is on a
// different chain than the configured one.
func (rt *runtime) connect(ctx context.Context, cc *CommandContext, w io.Writer) (session.Session, error) {
	s, err := rt.session.Connect(ctx)
	if err != nil {
		return s, err
	}
	if want := cc.Cfg.Network.ChainID; want != 0 && s.ChainID != want {
		cc.Log.Warn("wallet is on an unexpected chain",
			zap.Uint64("chain_id", s.ChainID),
			zap.Uint64("expected", want))
		if !cc.Fmt.IsJSON() {
			output.Warnf(w, "Wallet is on %s, expected %s", s.Network(), chain.LookupNetwork(want))
		}
	}
	return s, nil
}

// Close releases the session and the provider.
func (rt *runtime) Close() {
	rt.session.Close()
	if rt.provider != nil {
		_ = rt.provider.Close()
	}
}

// dialProvider opens the provider selected by provider.mode.
func dialProvider(ctx context.Context, cc *CommandContext) (provider.Provider, error) {
	c := cc.Cfg
	if c.Provider.Mode == config.ProviderDevWallet {
		return openDevWallet(ctx, cc)
	}

	if c.Provider.WalletURL == "" {
		return nil, ilerr.ErrProviderUnavailable
	}
	return dialRPC(ctx, cc, c.Provider.WalletURL)
}

func dialRPC(ctx context.Context, cc *CommandContext, url string) (*provider.RPC, error) {
	p, err := provider.DialRPC(ctx, provider.RPCOptions{
		URL:       url,
		RateLimit: cc.Cfg.Provider.RequestsPerSecond,
		Burst:     cc.Cfg.Provider.Burst,
		Logger:    cc.Log,
	})
	if err != nil {
		return nil, ilerr.WithCause(ilerr.ErrProviderUnavailable, err)
	}
	return p, nil
}

// openDevWallet unlocks the keystore and puts a development wallet in front
// of the configured node.
func openDevWallet(ctx context.Context, cc *CommandContext) (provider.Provider, error) {
	c := cc.Cfg
	ks, err := wallet.LoadKeystore(c.KeystorePath())
	if err != nil {
		return nil, err
	}

	password, err := promptPasswordFn("Keystore password: ")
	if err != nil {
		return nil, err
	}
	keys, err := ks.Keys(string(password))
	wallet.ZeroBytes(password)
	if err != nil {
		return nil, err
	}

	upstream, err := dialRPC(ctx, cc, c.Network.RPC)
	if err != nil {
		return nil, err
	}

	dw, err := provider.NewDevWallet(upstream, keys,
		provider.WithApprover(approveTransaction(c.Network.NativeSymbol)),
		provider.WithDevWalletLogger(cc.Log))
	if err != nil {
		_ = upstream.Close()
		return nil, err
	}
	if c.DevWallet.AccountIndex > 0 {
		if err := dw.SwitchAccount(int(c.DevWallet.AccountIndex)); err != nil {
			_ = dw.Close()
			return nil, ilerr.WithCause(ilerr.ErrInvalidInput, err)
		}
	}
	return dw, nil
}

// approveTransaction is the development wallet's signing prompt.
func approveTransaction(symbol string) provider.Approver {
	return func(_ context.Context, req provider.SignRequest) (bool, error) {
		if assumeYes {
			return true, nil
		}
		to := "(contract creation)"
		if req.To != nil {
			to = output.ShortenAddress(req.To.Hex())
		}
		return promptConfirmFn(fmt.Sprintf("Sign transaction to %s sending %s %s (gas limit %d at %s, max fee %s %s)?",
			to, chain.FormatEther(req.Value), symbol, req.GasLimit, eth.FormatGasPrice(req.GasPrice),
			chain.FormatEther(eth.TxCost(req.GasPrice, req.GasLimit)), symbol)), nil
	}
}
