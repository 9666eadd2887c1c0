package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/metrics"
)

// DefaultWatchInterval is how often an RPC provider polls for account and
// chain changes when watching is enabled.
const DefaultWatchInterval = 2 * time.Second

// RPCOptions configures an RPC provider.
type RPCOptions struct {
	// URL of the wallet bridge or node (http, https, ws, wss).
	URL string

	// RateLimit is the number of requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int

	Logger *zap.Logger
}

// RPC is a Provider backed by a JSON-RPC endpoint. Nodes and wallet bridges
// that do not push events can be watched by polling with Watch.
type RPC struct {
	client  *rpc.Client
	url     string
	limiter *chain.RateLimiter
	logger  *zap.Logger
	emitter Emitter

	mu       sync.Mutex
	cancel   context.CancelFunc
	watching bool
	closed   bool
}

// DialRPC connects to a JSON-RPC endpoint.
func DialRPC(ctx context.Context, opts RPCOptions) (*RPC, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("dialing provider: url is required")
	}

	client, err := rpc.DialContext(ctx, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing provider %s: %w", opts.URL, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RPC{
		client:  client,
		url:     opts.URL,
		limiter: chain.NewRateLimiter(opts.RateLimit, opts.Burst),
		logger:  logger.Named("rpc"),
	}, nil
}

// URL returns the endpoint the provider is connected to.
func (p *RPC) URL() string {
	return p.url
}

// Request implements Provider.
//
// eth_requestAccounts falls back to eth_accounts on plain nodes, which do
// not implement it.
func (p *RPC) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	raw, err := p.call(ctx, method, params...)
	if err != nil && method == MethodRequestAccounts && HasCode(err, CodeMethodNotFound) {
		p.logger.Debug("eth_requestAccounts unsupported, using eth_accounts")
		return p.call(ctx, MethodAccounts)
	}
	return raw, err
}

func (p *RPC) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := p.limiter.Wait(ctx, p.url); err != nil {
		return nil, err
	}

	var result json.RawMessage
	start := time.Now()
	err := p.client.CallContext(ctx, &result, method, params...)
	metrics.Global.RecordRPCCall(time.Since(start), err)
	if err != nil {
		p.logger.Debug("rpc call failed",
			zap.String("method", method),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if re, ok := AsRPCError(err); ok {
			return nil, re
		}
		return nil, err
	}

	p.logger.Debug("rpc call",
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// On implements Provider.
func (p *RPC) On(event string, handler func(json.RawMessage)) func() {
	return p.emitter.On(event, handler)
}

// Watch starts relaying account and chain changes as provider events.
// Endpoints that support notifications are subscribed to with eth_subscribe;
// others are polled every interval with eth_accounts and eth_chainId, and an
// event fires when either differs from the previous poll. Watching stops when
// ctx is done or the provider is closed. Calling Watch while already
// watching is a no-op.
func (p *RPC) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	p.mu.Lock()
	if p.watching || p.closed {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.watching = true
	p.mu.Unlock()

	if p.subscribe(ctx) {
		return
	}
	p.poll(ctx, interval)
}

func (p *RPC) subscribe(ctx context.Context) bool {
	accountsCh := make(chan json.RawMessage, 8)
	accountsSub, err := p.client.Subscribe(ctx, "eth", accountsCh, EventAccountsChanged)
	if err != nil {
		p.logger.Debug("event subscription unavailable, polling instead", zap.Error(err))
		return false
	}
	chainCh := make(chan json.RawMessage, 8)
	chainSub, err := p.client.Subscribe(ctx, "eth", chainCh, EventChainChanged)
	if err != nil {
		accountsSub.Unsubscribe()
		p.logger.Debug("event subscription unavailable, polling instead", zap.Error(err))
		return false
	}

	go func() {
		defer p.stopWatching()
		defer accountsSub.Unsubscribe()
		defer chainSub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-accountsSub.Err():
				p.logger.Warn("accounts subscription ended", zap.Error(err))
				return
			case err := <-chainSub.Err():
				p.logger.Warn("chain subscription ended", zap.Error(err))
				return
			case raw := <-accountsCh:
				p.emitter.Emit(EventAccountsChanged, raw)
			case raw := <-chainCh:
				p.emitter.Emit(EventChainChanged, raw)
			}
		}
	}()
	return true
}

func (p *RPC) poll(ctx context.Context, interval time.Duration) {
	lastAccounts, _ := p.call(ctx, MethodAccounts)
	lastChain, _ := p.call(ctx, MethodChainID)

	go func() {
		defer p.stopWatching()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if accounts, err := p.call(ctx, MethodAccounts); err == nil && !sameJSON(accounts, lastAccounts) {
				lastAccounts = accounts
				p.logger.Debug("accounts changed")
				p.emitter.Emit(EventAccountsChanged, accounts)
			}
			if chainID, err := p.call(ctx, MethodChainID); err == nil && !sameJSON(chainID, lastChain) {
				lastChain = chainID
				p.logger.Debug("chain changed", zap.ByteString("chain_id", chainID))
				p.emitter.Emit(EventChainChanged, chainID)
			}
		}
	}()
}

func (p *RPC) stopWatching() {
	p.mu.Lock()
	p.watching = false
	p.mu.Unlock()
}

// Close implements Provider.
func (p *RPC) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	p.client.Close()
	return nil
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(bytes.ToLower(ca.Bytes()), bytes.ToLower(cb.Bytes()))
}
