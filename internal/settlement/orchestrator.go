// Package settlement turns purchase, investment and release intents into
// validated contract calls and reports their outcome.
//
// Input is validated before anything reaches the network: idea identifiers
// are parsed, fiat prices are quoted into native amounts, and a confirmed
// amount must match its quote exactly. Each submission is tracked by a fresh
// Attempt whose state only moves forward, and every outcome produces a
// notification and a journal entry.
package settlement

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/contract"
	"github.com/mrz1836/idealink/internal/metrics"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// Gateway is the contract surface the orchestrator settles through.
// *contract.Gateway implements it.
type Gateway interface {
	Purchase(ctx context.Context, ideaID uint64, value *big.Int, opts ...contract.CallOption) (contract.TxResult, error)
	InvestWithVesting(ctx context.Context, ideaID uint64, value *big.Int, vestingDuration time.Duration, opts ...contract.CallOption) (contract.InvestResult, error)
	ReleaseVested(ctx context.Context, ideaID uint64, opts ...contract.CallOption) (contract.ReleaseResult, error)
}

// AddressSource reports the connected account. *session.Manager
// implements it.
type AddressSource interface {
	CurrentAddress() (string, bool)
}

// Journal stores finished attempts.
type Journal interface {
	Record(a Attempt) error
}

// Options configures an Orchestrator.
type Options struct {
	// ExchangeRate is fiat units per native unit. Required.
	ExchangeRate decimal.Decimal

	// DefaultVesting applies to investments in ideas that are not
	// tokenized. Zero selects DefaultVestingDuration.
	DefaultVesting time.Duration

	// GuardInFlight rejects a concurrent submission of the same operation
	// on the same idea by the same investor.
	GuardInFlight bool

	// NativeSymbol names the native currency in notifications.
	NativeSymbol string

	Notifier Notifier
	Journal  Journal
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Orchestrator validates settlement intents and runs them through the
// Gateway.
type Orchestrator struct {
	gateway Gateway
	wallet  AddressSource
	opts    Options
	guard   *inFlight
	logger  *zap.Logger
}

// New creates an Orchestrator.
func New(gateway Gateway, wallet AddressSource, opts Options) (*Orchestrator, error) {
	if !opts.ExchangeRate.IsPositive() {
		return nil, ilerr.WithDetails(ilerr.ErrConfigInvalid, map[string]string{
			"exchange_rate":    opts.ExchangeRate.String(),
			ilerr.DetailReason: "exchange rate must be positive",
		})
	}
	if opts.DefaultVesting <= 0 {
		opts.DefaultVesting = DefaultVestingDuration
	}
	if opts.NativeSymbol == "" {
		opts.NativeSymbol = "AVAX"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: opts.Logger}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}

	o := &Orchestrator{
		gateway: gateway,
		wallet:  wallet,
		opts:    opts,
		logger:  opts.Logger.Named("settlement"),
	}
	if opts.GuardInFlight {
		o.guard = newInFlight()
	}
	return o, nil
}

// ExchangeRate returns the configured fiat units per native unit.
func (o *Orchestrator) ExchangeRate() decimal.Decimal {
	return o.opts.ExchangeRate
}

// QuoteNativeAmount converts a fiat price to the native amount to send,
// rounded to QuoteDecimals digits.
func (o *Orchestrator) QuoteNativeAmount(fiatPrice decimal.Decimal) (decimal.Decimal, error) {
	return Quote(fiatPrice, o.opts.ExchangeRate)
}

// Outcome is the result of a submission. Attempt is always populated, also
// when an error is returned.
type Outcome struct {
	Attempt Attempt `json:"attempt"`

	TxHash       string `json:"tx_hash,omitempty"`
	NativeAmount string `json:"native_amount,omitempty"`

	RewardAmount    *contract.Amount `json:"reward_amount,omitempty"`
	RewardEstimated bool             `json:"reward_estimated,omitempty"`
	VestingDuration time.Duration    `json:"vesting_duration,omitempty"`

	Released *contract.Amount `json:"released,omitempty"`
	Skipped  bool             `json:"skipped,omitempty"`
}

// SubmitOption configures a submission.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	confirmed *string
	onChange  func(Attempt)
}

// WithConfirmedAmount requires the native amount the user confirmed to
// equal the quote. A mismatch fails with ErrAmountMismatch before any
// network call.
func WithConfirmedAmount(amount string) SubmitOption {
	return func(c *submitConfig) {
		c.confirmed = &amount
	}
}

// WithProgress calls fn with a snapshot of the attempt after every state
// change.
func WithProgress(fn func(Attempt)) SubmitOption {
	return func(c *submitConfig) {
		c.onChange = fn
	}
}

// SubmitPurchase buys ideaRef at fiatPrice.
func (o *Orchestrator) SubmitPurchase(ctx context.Context, ideaRef string, fiatPrice decimal.Decimal, opts ...SubmitOption) (Outcome, error) {
	return o.run(ctx, OperationPurchase, ideaRef, opts,
		func() (Request, error) {
			return NewPurchaseRequest(ideaRef, fiatPrice, o.opts.ExchangeRate)
		},
		func(ctx context.Context, req Request, hook contract.CallOption, out *Outcome) error {
			res, err := o.gateway.Purchase(ctx, req.IdeaID(), req.Value(), hook)
			if err != nil {
				return err
			}
			out.TxHash = res.TxHash.Hex()
			return nil
		})
}

// SubmitInvestment invests fiatPrice worth in ideaRef. Tokenized ideas vest
// over vestingSeconds, which must be positive; other ideas use the default
// vesting period.
func (o *Orchestrator) SubmitInvestment(ctx context.Context, ideaRef string, fiatPrice decimal.Decimal, vestingSeconds int64, tokenized bool, opts ...SubmitOption) (Outcome, error) {
	return o.run(ctx, OperationInvest, ideaRef, opts,
		func() (Request, error) {
			req, err := NewInvestmentRequest(ideaRef, fiatPrice, o.opts.ExchangeRate, vestingSeconds, tokenized)
			if err == nil && !tokenized {
				req.vestingDuration = o.opts.DefaultVesting
			}
			return req, err
		},
		func(ctx context.Context, req Request, hook contract.CallOption, out *Outcome) error {
			out.VestingDuration = req.VestingDuration()
			res, err := o.gateway.InvestWithVesting(ctx, req.IdeaID(), req.Value(), req.VestingDuration(), hook)
			if err != nil {
				return err
			}
			reward := res.RewardAmount
			out.TxHash = res.TxHash.Hex()
			out.RewardAmount = &reward
			out.RewardEstimated = res.RewardEstimated
			return nil
		})
}

// SubmitRelease claims the vested tokens of ideaRef. When nothing is
// releasable the outcome is marked Skipped and no error is returned.
func (o *Orchestrator) SubmitRelease(ctx context.Context, ideaRef string, opts ...SubmitOption) (Outcome, error) {
	return o.run(ctx, OperationRelease, ideaRef, opts,
		func() (Request, error) {
			return NewReleaseRequest(ideaRef)
		},
		func(ctx context.Context, req Request, hook contract.CallOption, out *Outcome) error {
			res, err := o.gateway.ReleaseVested(ctx, req.IdeaID(), hook)
			if res.TxHash != (common.Hash{}) {
				out.TxHash = res.TxHash.Hex()
			}
			if err != nil {
				return err
			}
			released := res.Released
			out.Released = &released
			out.Skipped = res.Skipped
			return nil
		})
}

type execFunc func(ctx context.Context, req Request, hook contract.CallOption, out *Outcome) error

func (o *Orchestrator) run(ctx context.Context, op Operation, ideaRef string, opts []SubmitOption, build func() (Request, error), exec execFunc) (Outcome, error) {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	o.opts.Metrics.RecordAttempt()
	att := NewAttempt(op, ideaRef)
	t := &tracker{attempt: att, onChange: cfg.onChange, logger: o.logger}
	var out Outcome

	t.advance(StateValidating)
	req, err := build()
	if err == nil && cfg.confirmed != nil && op != OperationRelease {
		err = ConfirmAmount(req.NativeAmount(), *cfg.confirmed)
	}
	if err != nil {
		return o.finish(t, req, &out, err)
	}

	att.IdeaID = req.IdeaID()
	if op != OperationRelease {
		att.NativeAmount = FormatQuote(req.NativeAmount())
		out.NativeAmount = att.NativeAmount
	}
	if investor, ok := o.wallet.CurrentAddress(); ok {
		att.Investor = investor
	}

	if o.guard != nil && att.Investor != "" {
		release, gErr := o.guard.acquire(op, req.IdeaID(), att.Investor)
		if gErr != nil {
			return o.finish(t, req, &out, gErr)
		}
		defer release()
	}

	o.logger.Debug("submitting settlement",
		zap.String("attempt", att.ID),
		zap.String("operation", string(op)),
		zap.Uint64("idea_id", req.IdeaID()),
		zap.String("amount", att.NativeAmount))

	hook := contract.WithStageHook(func(s contract.Stage, hash common.Hash) {
		switch s {
		case contract.StageSimulating:
			t.advance(StateSimulating)
		case contract.StageAwaitingSignature:
			t.advance(StateAwaitingSignature)
		case contract.StageSubmitted:
			att.TxHash = hash.Hex()
			t.advance(StateSubmitted)
		case contract.StageConfirmed:
			t.advance(StateConfirmed)
		}
	})

	err = exec(ctx, req, hook, &out)
	if out.TxHash != "" && att.TxHash == "" {
		att.TxHash = out.TxHash
	}
	return o.finish(t, req, &out, err)
}

// finish settles the attempt, then notifies, counts and journals it.
func (o *Orchestrator) finish(t *tracker, req Request, out *Outcome, err error) (Outcome, error) {
	att := t.attempt

	if err != nil {
		t.fail(err)
		o.opts.Metrics.RecordFailure(ilerr.Code(err))
		o.logger.Info("settlement failed",
			zap.String("attempt", att.ID),
			zap.String("operation", string(att.Operation)),
			zap.String("code", att.FailureKind),
			zap.Error(err))
	} else {
		if !att.State.Terminal() {
			t.advance(StateConfirmed)
		}
		att.Result = o.describe(req, out)
		o.opts.Metrics.RecordConfirmed()
	}

	o.opts.Notifier.Notify(o.notification(att, err))

	if o.opts.Journal != nil {
		if jErr := o.opts.Journal.Record(att.Snapshot()); jErr != nil {
			o.logger.Warn("recording attempt failed", zap.String("attempt", att.ID), zap.Error(jErr))
		}
	}

	out.Attempt = att.Snapshot()
	return *out, err
}

func (o *Orchestrator) notification(att *Attempt, err error) Notification {
	n := Notification{
		AttemptID: att.ID,
		Operation: att.Operation,
		TxHash:    att.TxHash,
	}
	title := operationTitle(att.Operation)

	if err != nil {
		n.Level = LevelError
		n.Title = title + " failed"
		n.Code = att.FailureKind
		n.Message = err.Error()
		if att.Reason != "" {
			n.Message = att.Reason
		}
		return n
	}

	n.Level = LevelSuccess
	n.Title = title + " confirmed"
	n.Message = att.Result
	if att.Operation == OperationRelease && att.TxHash == "" {
		n.Level = LevelInfo
		n.Title = "Nothing to release"
	}
	return n
}

func (o *Orchestrator) describe(req Request, out *Outcome) string {
	switch req.Operation() {
	case OperationPurchase:
		return fmt.Sprintf("Purchased %s for %s %s", req.IdeaRef(), out.NativeAmount, o.opts.NativeSymbol)
	case OperationInvest:
		reward := "reward tokens"
		if out.RewardAmount != nil {
			reward = out.RewardAmount.String() + " reward tokens"
			if out.RewardEstimated {
				reward = "about " + reward
			}
		}
		return fmt.Sprintf("Invested %s %s in %s; %s vest over %s",
			out.NativeAmount, o.opts.NativeSymbol, req.IdeaRef(), reward, FormatDuration(out.VestingDuration))
	case OperationRelease:
		if out.Skipped || out.Released == nil {
			return "No vested tokens to release for " + req.IdeaRef()
		}
		return fmt.Sprintf("Released %s tokens from %s", out.Released.String(), req.IdeaRef())
	default:
		return ""
	}
}

func operationTitle(op Operation) string {
	switch op {
	case OperationPurchase:
		return "Purchase"
	case OperationInvest:
		return "Investment"
	case OperationRelease:
		return "Release"
	default:
		return string(op)
	}
}

// FormatDuration renders whole days as "30 days" and anything else as a
// Go duration.
func FormatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d == day:
		return "1 day"
	case d > 0 && d%day == 0:
		return fmt.Sprintf("%d days", d/day)
	default:
		return d.String()
	}
}

// tracker applies state changes to an attempt and reports them.
type tracker struct {
	attempt  *Attempt
	onChange func(Attempt)
	logger   *zap.Logger
}

func (t *tracker) advance(s State) {
	if err := t.attempt.Advance(s); err != nil {
		t.logger.Debug("ignoring state change", zap.Error(err))
		return
	}
	t.changed()
}

func (t *tracker) fail(err error) {
	terminal := t.attempt.State.Terminal()
	t.attempt.Fail(err)
	if !terminal {
		t.changed()
	}
}

func (t *tracker) changed() {
	if t.onChange != nil {
		t.onChange(t.attempt.Snapshot())
	}
}
