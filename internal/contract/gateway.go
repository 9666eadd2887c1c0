package contract

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/chain/eth"
	"github.com/mrz1836/idealink/internal/metrics"
	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/session"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// Defaults for Options.
const (
	DefaultConfirmations = 1
	DefaultPollInterval  = 2 * time.Second
	DefaultRewardRate    = 100
)

// SignerSource hands out a signer for the active wallet session.
// *session.Manager implements it.
type SignerSource interface {
	Signer() (*session.Signer, error)
}

// Options configures a Gateway. Zero values select the defaults.
type Options struct {
	Address          common.Address
	GasMarginPercent uint64
	FallbackGasLimit uint64
	Confirmations    uint64
	PollInterval     time.Duration

	// RewardRate is the number of reward tokens minted per native unit,
	// used when the Deposited event cannot be read.
	RewardRate int64

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Address == (common.Address{}) {
		o.Address = DefaultAddress
	}
	if o.GasMarginPercent == 0 {
		o.GasMarginPercent = eth.DefaultGasMarginPercent
	}
	if o.FallbackGasLimit == 0 {
		o.FallbackGasLimit = eth.FallbackGasLimit
	}
	if o.Confirmations == 0 {
		o.Confirmations = DefaultConfirmations
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RewardRate <= 0 {
		o.RewardRate = DefaultRewardRate
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Global
	}
	return o
}

// Gateway performs typed calls against the settlement contract on behalf of
// the active wallet session.
type Gateway struct {
	signers SignerSource
	abi     abi.ABI
	opts    Options
	logger  *zap.Logger
}

// NewGateway creates a Gateway.
func NewGateway(signers SignerSource, opts Options) *Gateway {
	opts = opts.withDefaults()
	return &Gateway{
		signers: signers,
		abi:     settlementABI,
		opts:    opts,
		logger:  opts.Logger.Named("contract"),
	}
}

// Address returns the contract address.
func (g *Gateway) Address() common.Address {
	return g.opts.Address
}

// TxResult describes a confirmed transaction.
type TxResult struct {
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	GasUsed     uint64      `json:"gas_used"`
}

// InvestResult is the outcome of InvestWithVesting.
type InvestResult struct {
	TxResult

	RewardAmount Amount `json:"reward_amount"`

	// RewardEstimated is set when the Deposited event was not found and
	// RewardAmount was computed from the fixed reward rate.
	RewardEstimated bool `json:"reward_estimated"`
}

// ReleaseResult is the outcome of ReleaseVested.
type ReleaseResult struct {
	TxResult

	Released Amount `json:"released"`

	// Skipped is set when nothing was releasable and no transaction was sent.
	Skipped bool `json:"skipped"`
}

// Purchase buys outright ownership of ideaID for value wei.
func (g *Gateway) Purchase(ctx context.Context, ideaID uint64, value *big.Int, opts ...CallOption) (TxResult, error) {
	signer, err := g.signers.Signer()
	if err != nil {
		return TxResult{}, err
	}
	if err := validateIdeaID(ideaID); err != nil {
		return TxResult{}, err
	}
	if err := validateValue(value); err != nil {
		return TxResult{}, err
	}

	rcpt, err := g.transact(ctx, signer, txCall{
		method: MethodPurchaseIdea,
		args:   []any{new(big.Int).SetUint64(ideaID)},
		value:  value,
	}, newCallConfig(opts))
	if err != nil {
		return TxResult{}, err
	}
	return rcpt.result(), nil
}

// InvestWithVesting deposits value wei into ideaID, vesting linearly over
// vestingDuration. The reward amount is read from the Deposited event when
// the receipt carries one.
func (g *Gateway) InvestWithVesting(ctx context.Context, ideaID uint64, value *big.Int, vestingDuration time.Duration, opts ...CallOption) (InvestResult, error) {
	signer, err := g.signers.Signer()
	if err != nil {
		return InvestResult{}, err
	}
	if err := validateIdeaID(ideaID); err != nil {
		return InvestResult{}, err
	}
	if err := validateValue(value); err != nil {
		return InvestResult{}, err
	}
	seconds := int64(vestingDuration / time.Second)
	if seconds <= 0 {
		return InvestResult{}, ilerr.ErrInvalidVestingDuration
	}

	rcpt, err := g.transact(ctx, signer, txCall{
		method: MethodDeposit,
		args:   []any{new(big.Int).SetUint64(ideaID), big.NewInt(seconds)},
		value:  value,
	}, newCallConfig(opts))
	if err != nil {
		return InvestResult{}, err
	}

	res := InvestResult{TxResult: rcpt.result()}
	values, found, err := g.findEvent(rcpt, EventDeposited, ideaID, signer.Address())
	if err == nil && found && len(values) == 2 {
		if tokens, ok := values[1].(*big.Int); ok {
			res.RewardAmount = NewAmount(tokens)
			return res, nil
		}
	}
	if err != nil {
		g.logger.Warn("decoding Deposited event failed", zap.String("tx_hash", rcpt.TxHash.Hex()), zap.Error(err))
	}

	res.RewardAmount = NewAmount(new(big.Int).Mul(value, big.NewInt(g.opts.RewardRate)))
	res.RewardEstimated = true
	g.logger.Info("reward amount estimated from fixed rate",
		zap.String("tx_hash", rcpt.TxHash.Hex()),
		zap.Int64("rate", g.opts.RewardRate))
	return res, nil
}

// ReleaseVested claims everything vested in ideaID since the last release.
// When nothing is releasable no transaction is sent and the result is
// marked Skipped. The released amount is read from the Released event; if
// the event is missing the result still carries the transaction hash and
// the error is ErrEventNotFound.
func (g *Gateway) ReleaseVested(ctx context.Context, ideaID uint64, opts ...CallOption) (ReleaseResult, error) {
	signer, err := g.signers.Signer()
	if err != nil {
		return ReleaseResult{}, err
	}
	if err := validateIdeaID(ideaID); err != nil {
		return ReleaseResult{}, err
	}

	investor := common.HexToAddress(signer.Address())
	releasable, err := g.viewAmount(ctx, signer, MethodReleasableAmount, ideaID, investor)
	if err != nil {
		return ReleaseResult{}, err
	}
	if releasable.IsZero() {
		g.opts.Metrics.RecordReleaseSkipped()
		g.logger.Info("nothing to release",
			zap.Uint64("idea_id", ideaID),
			zap.String("investor", signer.Address()))
		return ReleaseResult{Skipped: true}, nil
	}

	rcpt, err := g.transact(ctx, signer, txCall{
		method: MethodRelease,
		args:   []any{new(big.Int).SetUint64(ideaID)},
	}, newCallConfig(opts))
	if err != nil {
		return ReleaseResult{}, err
	}

	res := ReleaseResult{TxResult: rcpt.result()}
	values, found, err := g.findEvent(rcpt, EventReleased, ideaID, signer.Address())
	if err != nil {
		return res, ilerr.WithDetails(ilerr.WithCause(ilerr.ErrEventNotFound, err), map[string]string{
			ilerr.DetailTxHash: rcpt.TxHash.Hex(),
		})
	}
	if !found || len(values) != 1 {
		return res, ilerr.WithDetails(ilerr.ErrEventNotFound, map[string]string{
			ilerr.DetailTxHash: rcpt.TxHash.Hex(),
			"event":            EventReleased,
		})
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return res, ilerr.WithDetails(ilerr.ErrEventNotFound, map[string]string{
			ilerr.DetailTxHash: rcpt.TxHash.Hex(),
			"event":            EventReleased,
		})
	}
	res.Released = NewAmount(amount)
	return res, nil
}

func validateIdeaID(ideaID uint64) error {
	if ideaID == 0 {
		return ilerr.WithDetails(ilerr.ErrInvalidIdeaID, map[string]string{
			ilerr.DetailReason: "idea id must be a positive integer",
		})
	}
	return nil
}

func validateValue(value *big.Int) error {
	if value == nil || value.Sign() <= 0 {
		return ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			ilerr.DetailReason: "amount must be greater than zero",
		})
	}
	return nil
}

// txCall is one state-changing contract call.
type txCall struct {
	method string
	args   []any
	value  *big.Int
}

// transact runs the simulate, estimate, send and confirm pipeline.
func (g *Gateway) transact(ctx context.Context, signer *session.Signer, c txCall, cfg callConfig) (*Receipt, error) {
	data, err := g.abi.Pack(c.method, c.args...)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.WithCause(ilerr.ErrInvalidInput, err), "encoding %s", c.method)
	}

	from := common.HexToAddress(signer.Address())
	to := g.opts.Address
	args := provider.TxArgs{From: &from, To: &to, Data: data}
	if c.value != nil && c.value.Sign() > 0 {
		args.Value = (*hexutil.Big)(new(big.Int).Set(c.value))
	}

	log := g.logger.With(zap.String("method", c.method), zap.String("from", signer.Address()))

	cfg.stage(StageSimulating, common.Hash{})
	if _, err := signer.Request(ctx, provider.MethodCall, args, "latest"); err != nil {
		simErr := g.callError(ilerr.ErrSimulationReverted, err)
		log.Info("simulation failed", zap.Error(simErr))
		return nil, simErr
	}

	gas, err := g.estimateGas(ctx, signer, args, log)
	if err != nil {
		return nil, err
	}
	args.Gas = &gas

	cfg.stage(StageAwaitingSignature, common.Hash{})
	hash, err := signer.SendTransaction(ctx, args)
	if err != nil {
		sendErr := sendError(err)
		log.Info("transaction not sent", zap.Error(sendErr))
		return nil, sendErr
	}

	log.Info("transaction submitted", zap.String("tx_hash", hash.Hex()), zap.Uint64("gas", uint64(gas)))
	cfg.stage(StageSubmitted, hash)

	rcpt, err := g.waitForReceipt(ctx, signer, hash)
	if err != nil {
		return nil, err
	}
	if !rcpt.Succeeded() {
		revErr := g.minedRevertError(ctx, signer, args, rcpt)
		log.Warn("transaction reverted", zap.String("tx_hash", hash.Hex()), zap.Error(revErr))
		return nil, revErr
	}

	log.Info("transaction confirmed",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("block", rcpt.Block()))
	cfg.stage(StageConfirmed, hash)
	return rcpt, nil
}

// estimateGas estimates the gas for args and applies the safety margin.
// A failed estimate is logged and replaced with the fallback limit; the
// preceding simulation already guards the send.
func (g *Gateway) estimateGas(ctx context.Context, signer *session.Signer, args provider.TxArgs, log *zap.Logger) (hexutil.Uint64, error) {
	raw, err := signer.Request(ctx, provider.MethodEstimateGas, args)
	if err == nil {
		var estimate uint64
		if estimate, err = provider.DecodeUint64(raw); err == nil && estimate > 0 {
			return hexutil.Uint64(eth.ApplyGasMargin(estimate, g.opts.GasMarginPercent)), nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ilerr.WithCause(ilerr.ErrTimeout, ctxErr)
	}

	g.opts.Metrics.RecordGasFallback()
	log.Warn("gas estimation failed, using fallback limit",
		zap.Uint64("gas", g.opts.FallbackGasLimit),
		zap.Error(ilerr.WithCause(ilerr.ErrEstimationFailed, err)))
	return hexutil.Uint64(g.opts.FallbackGasLimit), nil
}
