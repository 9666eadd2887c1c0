package contract

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/idealink/internal/chain/eth"
	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/session"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// Read-only queries. They need a connected session like every other gateway
// call but never estimate gas or send anything, so they are safe to poll.
// An empty investor means the session's own address.

// VestedAmount returns the reward tokens vested so far for investor in ideaID.
func (g *Gateway) VestedAmount(ctx context.Context, ideaID uint64, investor string) (Amount, error) {
	return g.investorAmount(ctx, MethodVestedAmount, ideaID, investor)
}

// ReleasableAmount returns the vested reward tokens not yet released.
func (g *Gateway) ReleasableAmount(ctx context.Context, ideaID uint64, investor string) (Amount, error) {
	return g.investorAmount(ctx, MethodReleasableAmount, ideaID, investor)
}

// InvestedAmount returns the native amount investor deposited in ideaID.
func (g *Gateway) InvestedAmount(ctx context.Context, ideaID uint64, investor string) (Amount, error) {
	return g.investorAmount(ctx, MethodInvestedAmount, ideaID, investor)
}

// ReleasedAmount returns the reward tokens already released.
func (g *Gateway) ReleasedAmount(ctx context.Context, ideaID uint64, investor string) (Amount, error) {
	return g.investorAmount(ctx, MethodReleasedAmount, ideaID, investor)
}

// VestingSchedule reads investor's vesting position in ideaID.
func (g *Gateway) VestingSchedule(ctx context.Context, ideaID uint64, investor string) (InvestmentRecord, error) {
	signer, addr, err := g.viewTarget(ideaID, investor)
	if err != nil {
		return InvestmentRecord{}, err
	}

	values, err := g.view(ctx, signer, MethodVestings, new(big.Int).SetUint64(ideaID), addr)
	if err != nil {
		return InvestmentRecord{}, err
	}
	nums, err := bigValues(MethodVestings, values, 4)
	if err != nil {
		return InvestmentRecord{}, err
	}

	return InvestmentRecord{
		IdeaID:            ideaID,
		Investor:          eth.LowerAddress(addr.Hex()),
		TotalVestedAmount: NewAmount(nums[0]),
		ReleasedAmount:    NewAmount(nums[1]),
		VestingStart:      time.Unix(nums[2].Int64(), 0).UTC(),
		VestingDuration:   DurationFromSeconds(nums[3]),
	}, nil
}

// RewardRate returns the contract's reward tokens per native unit.
func (g *Gateway) RewardRate(ctx context.Context) (*big.Int, error) {
	signer, err := g.signers.Signer()
	if err != nil {
		return nil, err
	}
	values, err := g.view(ctx, signer, MethodRate)
	if err != nil {
		return nil, err
	}
	nums, err := bigValues(MethodRate, values, 1)
	if err != nil {
		return nil, err
	}
	return nums[0], nil
}

// RewardToken returns the address of the reward token contract.
func (g *Gateway) RewardToken(ctx context.Context) (common.Address, error) {
	signer, err := g.signers.Signer()
	if err != nil {
		return common.Address{}, err
	}
	values, err := g.view(ctx, signer, MethodToken)
	if err != nil {
		return common.Address{}, err
	}
	if len(values) != 1 {
		return common.Address{}, unexpectedOutput(MethodToken)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, unexpectedOutput(MethodToken)
	}
	return addr, nil
}

func (g *Gateway) investorAmount(ctx context.Context, method string, ideaID uint64, investor string) (Amount, error) {
	signer, addr, err := g.viewTarget(ideaID, investor)
	if err != nil {
		return Amount{}, err
	}
	return g.viewAmount(ctx, signer, method, ideaID, addr)
}

func (g *Gateway) viewTarget(ideaID uint64, investor string) (*session.Signer, common.Address, error) {
	signer, err := g.signers.Signer()
	if err != nil {
		return nil, common.Address{}, err
	}
	if err := validateIdeaID(ideaID); err != nil {
		return nil, common.Address{}, err
	}
	if investor == "" {
		return signer, common.HexToAddress(signer.Address()), nil
	}
	addr, err := eth.ParseAddress(investor)
	if err != nil {
		return nil, common.Address{}, err
	}
	return signer, addr, nil
}

func (g *Gateway) viewAmount(ctx context.Context, signer *session.Signer, method string, ideaID uint64, investor common.Address) (Amount, error) {
	values, err := g.view(ctx, signer, method, new(big.Int).SetUint64(ideaID), investor)
	if err != nil {
		return Amount{}, err
	}
	nums, err := bigValues(method, values, 1)
	if err != nil {
		return Amount{}, err
	}
	return NewAmount(nums[0]), nil
}

// view runs a read-only call against the latest block.
func (g *Gateway) view(ctx context.Context, signer *session.Signer, method string, args ...any) ([]any, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.WithCause(ilerr.ErrInvalidInput, err), "encoding %s", method)
	}

	to := g.opts.Address
	raw, err := signer.Request(ctx, provider.MethodCall, provider.TxArgs{To: &to, Data: data}, "latest")
	if err != nil {
		return nil, ilerr.Wrap(g.callError(ilerr.ErrCallFailed, err), "calling %s", method)
	}

	out, err := provider.DecodeBytes(raw)
	if err != nil {
		return nil, ilerr.WithCause(ilerr.ErrCallFailed, err)
	}
	if len(out) == 0 {
		return nil, ilerr.WithSuggestion(
			ilerr.WithDetails(ilerr.ErrCallFailed, map[string]string{
				ilerr.DetailReason: "empty result from " + method,
			}),
			"Check that the settlement contract is deployed on the connected network",
		)
	}

	values, err := g.abi.Unpack(method, out)
	if err != nil {
		return nil, ilerr.WithCause(ilerr.ErrCallFailed, err)
	}
	return values, nil
}

func bigValues(method string, values []any, n int) ([]*big.Int, error) {
	if len(values) != n {
		return nil, unexpectedOutput(method)
	}
	out := make([]*big.Int, n)
	for i, v := range values {
		b, ok := v.(*big.Int)
		if !ok || b == nil {
			return nil, unexpectedOutput(method)
		}
		out[i] = b
	}
	return out, nil
}

func unexpectedOutput(method string) error {
	return ilerr.WithDetails(ilerr.ErrCallFailed, map[string]string{
		ilerr.DetailReason: "unexpected output from " + method,
	})
}
