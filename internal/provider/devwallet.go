package provider

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/chain/eth"
)

// SignRequest describes a transaction the development wallet is about to sign.
type SignRequest struct {
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	ChainID  uint64
}

// Approver decides whether the wallet user accepts a transaction.
// Returning false makes the wallet answer with a 4001 rejection.
type Approver func(ctx context.Context, req SignRequest) (bool, error)

// DevWalletOption configures a DevWallet.
type DevWalletOption func(*DevWallet)

// WithApprover sets the approval prompt. The default approves everything.
func WithApprover(a Approver) DevWalletOption {
	return func(w *DevWallet) { w.approve = a }
}

// WithDevWalletLogger sets the logger.
func WithDevWalletLogger(l *zap.Logger) DevWalletOption {
	return func(w *DevWallet) {
		if l != nil {
			w.logger = l
		}
	}
}

// DevWallet is a Provider that answers account and signing requests itself
// using in-memory keys and forwards everything else to an upstream node.
type DevWallet struct {
	upstream Provider
	keys     []*ecdsa.PrivateKey
	addrs    []common.Address
	approve  Approver
	nonces   *eth.NonceManager
	logger   *zap.Logger
	emitter  Emitter

	mu     sync.RWMutex
	active int
	locked bool
}

// NewDevWallet creates a development wallet over upstream.
// The first key is the active account.
func NewDevWallet(upstream Provider, keys []*ecdsa.PrivateKey, opts ...DevWalletOption) (*DevWallet, error) {
	if upstream == nil {
		return nil, fmt.Errorf("creating dev wallet: upstream provider is required")
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("creating dev wallet: at least one key is required")
	}

	w := &DevWallet{
		upstream: upstream,
		keys:     keys,
		addrs:    make([]common.Address, len(keys)),
		nonces:   eth.NewNonceManager(),
		logger:   zap.NewNop(),
		approve: func(context.Context, SignRequest) (bool, error) {
			return true, nil
		},
	}
	for i, k := range keys {
		w.addrs[i] = eth.AddressFromKey(k)
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("devwallet")
	return w, nil
}

// Addresses returns every address the wallet holds.
func (w *DevWallet) Addresses() []common.Address {
	out := make([]common.Address, len(w.addrs))
	copy(out, w.addrs)
	return out
}

// SwitchAccount makes the key at index active and emits accountsChanged.
func (w *DevWallet) SwitchAccount(index int) error {
	if index < 0 || index >= len(w.keys) {
		return fmt.Errorf("switching account: index %d out of range", index)
	}

	w.mu.Lock()
	w.active = index
	w.locked = false
	accounts := w.accountsLocked()
	w.mu.Unlock()

	w.emitter.Emit(EventAccountsChanged, EncodeAccounts(accounts))
	return nil
}

// Lock hides all accounts and emits an empty accountsChanged.
func (w *DevWallet) Lock() {
	w.mu.Lock()
	w.locked = true
	w.mu.Unlock()

	w.emitter.Emit(EventAccountsChanged, EncodeAccounts(nil))
}

// Request implements Provider.
func (w *DevWallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodRequestAccounts:
		w.mu.Lock()
		w.locked = false
		accounts := w.accountsLocked()
		w.mu.Unlock()
		return json.Marshal(accounts)

	case MethodAccounts:
		w.mu.RLock()
		accounts := w.accountsLocked()
		w.mu.RUnlock()
		return json.Marshal(accounts)

	case MethodSendTransaction:
		return w.sendTransaction(ctx, params)

	case "eth_sign", "personal_sign", "eth_signTypedData_v4":
		return nil, NewRPCError(CodeUnsupportedMethod, fmt.Sprintf("%s is not supported by the development wallet", method))

	default:
		return w.upstream.Request(ctx, method, params...)
	}
}

// On implements Provider. accountsChanged comes from the wallet itself;
// chainChanged is relayed from the upstream node.
func (w *DevWallet) On(event string, handler func(json.RawMessage)) func() {
	if event == EventChainChanged {
		return w.upstream.On(event, handler)
	}
	return w.emitter.On(event, handler)
}

// Close implements Provider.
func (w *DevWallet) Close() error {
	return w.upstream.Close()
}

func (w *DevWallet) accountsLocked() []string {
	if w.locked {
		return []string{}
	}
	return []string{eth.LowerAddress(w.addrs[w.active].Hex())}
}

//nolint:gocognit,gocyclo // Filling a transaction requires sequential upstream lookups
func (w *DevWallet) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	if len(params) == 0 {
		return nil, NewRPCError(CodeInvalidParams, "missing transaction object")
	}
	var args TxArgs
	if err := remarshal(params[0], &args); err != nil {
		return nil, NewRPCError(CodeInvalidParams, fmt.Sprintf("invalid transaction object: %v", err))
	}

	w.mu.RLock()
	locked := w.locked
	key := w.keys[w.active]
	from := w.addrs[w.active]
	w.mu.RUnlock()

	if locked {
		return nil, NewRPCError(CodeUnauthorized, "wallet is locked")
	}
	if args.From != nil && *args.From != from {
		return nil, NewRPCError(CodeUnauthorized, fmt.Sprintf("account %s is not the active account", args.From.Hex()))
	}
	args.From = &from

	chainID, err := w.upstreamUint64(ctx, MethodChainID)
	if err != nil {
		return nil, err
	}

	gasPrice := (*big.Int)(args.GasPrice)
	if gasPrice == nil {
		raw, gErr := w.upstream.Request(ctx, MethodGasPrice)
		if gErr != nil {
			return nil, gErr
		}
		if gasPrice, gErr = DecodeBig(raw); gErr != nil {
			return nil, gErr
		}
	}

	var gasLimit uint64
	if args.Gas != nil {
		gasLimit = uint64(*args.Gas)
	} else {
		raw, gErr := w.upstream.Request(ctx, MethodEstimateGas, args)
		if gErr != nil {
			return nil, gErr
		}
		if gasLimit, gErr = DecodeUint64(raw); gErr != nil {
			return nil, gErr
		}
	}

	value := (*big.Int)(args.Value)
	if value == nil {
		value = new(big.Int)
	}

	req := SignRequest{
		From:     from,
		To:       args.To,
		Value:    value,
		Data:     args.Data,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		ChainID:  chainID,
	}
	ok, err := w.approve(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		w.logger.Info("transaction rejected by user", zap.String("from", from.Hex()))
		return nil, UserRejected()
	}

	pending, err := w.upstream.Request(ctx, MethodGetTransactionCount, from, "pending")
	if err != nil {
		return nil, err
	}
	pendingNonce, err := DecodeUint64(pending)
	if err != nil {
		return nil, err
	}
	nonce := w.nonces.Next(from.Hex(), pendingNonce)
	if args.Nonce != nil {
		nonce = uint64(*args.Nonce)
	}

	tx, err := eth.SignTx(eth.TxParams{
		Nonce:    nonce,
		To:       args.To,
		Value:    value,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		Data:     args.Data,
		ChainID:  new(big.Int).SetUint64(chainID),
	}, key)
	if err != nil {
		w.nonces.Release(from.Hex(), nonce)
		return nil, err
	}
	raw, err := eth.EncodeTx(tx)
	if err != nil {
		w.nonces.Release(from.Hex(), nonce)
		return nil, err
	}

	result, err := w.upstream.Request(ctx, MethodSendRawTransaction, hexutil.Encode(raw))
	if err != nil {
		w.nonces.Release(from.Hex(), nonce)
		return nil, err
	}

	w.logger.Info("transaction sent",
		zap.String("hash", tx.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit))
	return result, nil
}

func (w *DevWallet) upstreamUint64(ctx context.Context, method string, params ...any) (uint64, error) {
	raw, err := w.upstream.Request(ctx, method, params...)
	if err != nil {
		return 0, err
	}
	return DecodeUint64(raw)
}

func remarshal(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
