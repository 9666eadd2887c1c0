package contract_test

import (
	"context"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/contract"
	"github.com/mrz1836/idealink/internal/provider"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

func TestInvestorAmountViews(t *testing.T) {
	t.Parallel()

	views := map[string]func(g *contract.Gateway, investor string) (contract.Amount, error){
		contract.MethodVestedAmount: func(g *contract.Gateway, investor string) (contract.Amount, error) {
			return g.VestedAmount(context.Background(), 7, investor)
		},
		contract.MethodReleasableAmount: func(g *contract.Gateway, investor string) (contract.Amount, error) {
			return g.ReleasableAmount(context.Background(), 7, investor)
		},
		contract.MethodInvestedAmount: func(g *contract.Gateway, investor string) (contract.Amount, error) {
			return g.InvestedAmount(context.Background(), 7, investor)
		},
		contract.MethodReleasedAmount: func(g *contract.Gateway, investor string) (contract.Amount, error) {
			return g.ReleasedAmount(context.Background(), 7, investor)
		},
	}

	for method, call := range views {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, contract.Options{})
			f.viewReturns(method, new(big.Int).Add(tokens(1), new(big.Int).Div(oneNative, big.NewInt(2))))

			amount, err := call(f.g, otherAddr)
			require.NoError(t, err)
			assert.Equal(t, "1.5", amount.String())

			calls := f.p.Calls(provider.MethodCall)
			require.Len(t, calls, 1)
			args, ok := calls[0].Params[0].(provider.TxArgs)
			require.True(t, ok)
			assert.Nil(t, args.From)
			assert.Nil(t, args.Value)
			assert.Equal(t, contract.DefaultAddress, *args.To)

			decoded, err := contract.ABI().Methods[method].Inputs.Unpack(args.Data[4:])
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(7), decoded[0])
			assert.Equal(t, common.HexToAddress(otherAddr), decoded[1])

			assert.Equal(t, 0, f.p.CallCount(provider.MethodEstimateGas))
			assert.Equal(t, 0, f.p.CallCount(provider.MethodSendTransaction))
		})
	}
}

func TestViewDefaultsToSessionAddress(t *testing.T) {
	t.Parallel()
	f := newFixture(t, contract.Options{})
	f.viewReturns(contract.MethodVestedAmount, big.NewInt(0))

	amount, err := f.g.VestedAmount(context.Background(), 7, "")
	require.NoError(t, err)
	assert.True(t, amount.IsZero())

	args, ok := f.p.Calls(provider.MethodCall)[0].Params[0].(provider.TxArgs)
	require.True(t, ok)
	decoded, err := contract.ABI().Methods[contract.MethodVestedAmount].Inputs.Unpack(args.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(investorAddr), decoded[1])
}

func TestViewValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, contract.Options{})

	_, err := f.g.VestedAmount(context.Background(), 7, "0x1234")
	require.ErrorIs(t, err, ilerr.ErrInvalidAddress)

	_, err = f.g.VestedAmount(context.Background(), 0, "")
	require.ErrorIs(t, err, ilerr.ErrInvalidIdeaID)

	assert.Empty(t, f.p.Calls(""))
}

func TestViewEmptyResult(t *testing.T) {
	t.Parallel()
	f := newFixture(t, contract.Options{})

	_, err := f.g.InvestedAmount(context.Background(), 7, "")
	require.ErrorIs(t, err, ilerr.ErrCallFailed)
}

func TestViewRevert(t *testing.T) {
	t.Parallel()
	f := newFixture(t, contract.Options{})
	f.view(contract.MethodVestedAmount, func(context.Context, []any) (any, error) {
		return nil, revertWith("execution reverted: No vesting", "")
	})

	_, err := f.g.VestedAmount(context.Background(), 7, "")
	require.ErrorIs(t, err, ilerr.ErrCallFailed)
	assert.Equal(t, "No vesting", ilerr.Reason(err))
}

func TestVestingSchedule(t *testing.T) {
	t.Parallel()
	f := newFixture(t, contract.Options{})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.viewReturns(contract.MethodVestings, tokens(100), tokens(25), big.NewInt(start.Unix()), big.NewInt(2_592_000))

	rec, err := f.g.VestingSchedule(context.Background(), 7, "")
	require.NoError(t, err)

	assert.Equal(t, uint64(7), rec.IdeaID)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", rec.Investor)
	assert.Equal(t, "100.0", rec.TotalVestedAmount.String())
	assert.Equal(t, "25.0", rec.ReleasedAmount.String())
	assert.True(t, start.Equal(rec.VestingStart))
	assert.Equal(t, 30*24*time.Hour, rec.VestingDuration)
	assert.True(t, rec.Exists())
}

func TestVestingScheduleOverlongDurationSaturates(t *testing.T) {
	t.Parallel()
	f := newFixture(t, contract.Options{})
	f.viewReturns(contract.MethodVestings, tokens(100), tokens(0), big.NewInt(1_700_000_000), big.NewInt(18_446_744_173))

	rec, err := f.g.VestingSchedule(context.Background(), 7, "")
	require.NoError(t, err)

	assert.Equal(t, contract.DurationFromSeconds(big.NewInt(math.MaxInt64)), rec.VestingDuration)
	assert.Greater(t, rec.VestingDuration, 100*365*24*time.Hour)
}

func TestRewardRateAndToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t, contract.Options{})
	token := common.HexToAddress(otherAddr)
	f.viewReturns(contract.MethodRate, big.NewInt(100))
	f.viewReturns(contract.MethodToken, token)

	rate, err := f.g.RewardRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), rate.Int64())

	got, err := f.g.RewardToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
}
