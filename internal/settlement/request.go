package settlement

import (
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/idealink/internal/chain"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// DefaultVestingDuration applies to investments in ideas that are not
// tokenized.
const DefaultVestingDuration = 30 * 24 * time.Hour

// MaxVestingSeconds is the longest vesting period a time.Duration can carry.
const MaxVestingSeconds = math.MaxInt64 / int64(time.Second)

// Operation is the kind of settlement.
type Operation string

// Operations.
const (
	OperationPurchase Operation = "purchase"
	OperationInvest   Operation = "invest"
	OperationRelease  Operation = "release"
)

// Request is a validated settlement request. The zero value is not valid;
// build one with NewPurchaseRequest, NewInvestmentRequest or
// NewReleaseRequest.
type Request struct {
	op              Operation
	ideaRef         string
	ideaID          uint64
	fiatPrice       decimal.Decimal
	nativeAmount    decimal.Decimal
	value           *big.Int
	vestingDuration time.Duration
}

// Operation returns the kind of settlement.
func (r Request) Operation() Operation { return r.op }

// IdeaRef returns the idea identifier as given, e.g. "idea6".
func (r Request) IdeaRef() string { return r.ideaRef }

// IdeaID returns the on-chain idea id.
func (r Request) IdeaID() uint64 { return r.ideaID }

// FiatPrice returns the price the quote was computed from.
func (r Request) FiatPrice() decimal.Decimal { return r.fiatPrice }

// NativeAmount returns the quoted native amount.
func (r Request) NativeAmount() decimal.Decimal { return r.nativeAmount }

// VestingDuration returns the vesting period of an investment.
func (r Request) VestingDuration() time.Duration { return r.vestingDuration }

// Value returns the native amount in wei.
func (r Request) Value() *big.Int {
	if r.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.value)
}

// NewPurchaseRequest validates a purchase of ideaRef at fiatPrice.
func NewPurchaseRequest(ideaRef string, fiatPrice, exchangeRate decimal.Decimal) (Request, error) {
	return newPaidRequest(OperationPurchase, ideaRef, fiatPrice, exchangeRate)
}

// NewInvestmentRequest validates an investment in ideaRef. Tokenized ideas
// require a positive vesting period in seconds; other ideas vest over
// DefaultVestingDuration and vestingSeconds is ignored.
func NewInvestmentRequest(ideaRef string, fiatPrice, exchangeRate decimal.Decimal, vestingSeconds int64, tokenized bool) (Request, error) {
	r, err := newPaidRequest(OperationInvest, ideaRef, fiatPrice, exchangeRate)
	if err != nil {
		return Request{}, err
	}

	r.vestingDuration = DefaultVestingDuration
	if tokenized {
		if vestingSeconds <= 0 || vestingSeconds > MaxVestingSeconds {
			return Request{}, ilerr.WithDetails(ilerr.ErrInvalidVestingDuration, map[string]string{
				"vesting_seconds": decimal.NewFromInt(vestingSeconds).String(),
				"max_seconds":     decimal.NewFromInt(MaxVestingSeconds).String(),
			})
		}
		r.vestingDuration = time.Duration(vestingSeconds) * time.Second
	}
	return r, nil
}

// NewReleaseRequest validates a release of vested tokens for ideaRef.
func NewReleaseRequest(ideaRef string) (Request, error) {
	id, err := ParseIdeaID(ideaRef)
	if err != nil {
		return Request{}, err
	}
	return Request{op: OperationRelease, ideaRef: ideaRef, ideaID: id}, nil
}

func newPaidRequest(op Operation, ideaRef string, fiatPrice, exchangeRate decimal.Decimal) (Request, error) {
	id, err := ParseIdeaID(ideaRef)
	if err != nil {
		return Request{}, err
	}

	amount, err := Quote(fiatPrice, exchangeRate)
	if err != nil {
		return Request{}, err
	}
	if !amount.IsPositive() {
		return Request{}, ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			"fiat_price":       fiatPrice.String(),
			ilerr.DetailReason: "quoted amount rounds to zero",
		})
	}
	wei, err := chain.ToWei(amount)
	if err != nil {
		return Request{}, ilerr.WithCause(ilerr.ErrInvalidAmount, err)
	}

	return Request{
		op:           op,
		ideaRef:      ideaRef,
		ideaID:       id,
		fiatPrice:    fiatPrice,
		nativeAmount: amount,
		value:        wei,
	}, nil
}
