package contract

import (
	"math"
	"math/big"
	"time"
)

// maxDurationSeconds is the longest period, in whole seconds, a
// time.Duration can hold.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// InvestmentRecord is an investor's vesting position in one idea, as stored
// by the contract.
type InvestmentRecord struct {
	IdeaID            uint64        `json:"idea_id"`
	Investor          string        `json:"investor"`
	TotalVestedAmount Amount        `json:"total_vested_amount"`
	ReleasedAmount    Amount        `json:"released_amount"`
	VestingStart      time.Time     `json:"vesting_start"`
	VestingDuration   time.Duration `json:"vesting_duration"`
}

// Exists reports whether the investor has a position in the idea.
func (r InvestmentRecord) Exists() bool {
	return !r.TotalVestedAmount.IsZero()
}

// VestingEnd returns the time at which everything has vested.
func (r InvestmentRecord) VestingEnd() time.Time {
	return r.VestingStart.Add(r.VestingDuration)
}

// VestedAt returns the amount vested at t. Vesting is linear in whole
// seconds from VestingStart and saturates at TotalVestedAmount.
func (r InvestmentRecord) VestedAt(t time.Time) Amount {
	total := r.TotalVestedAmount.Wei()
	start := r.VestingStart.Unix()
	now := t.Unix()
	if now < start {
		return Amount{}
	}

	duration := int64(r.VestingDuration / time.Second)
	elapsed := now - start
	if duration <= 0 || elapsed >= duration {
		return NewAmount(total)
	}

	vested := new(big.Int).Mul(total, big.NewInt(elapsed))
	vested.Quo(vested, big.NewInt(duration))
	return NewAmount(vested)
}

// ReleasableAt returns the amount vested at t that has not been released.
func (r InvestmentRecord) ReleasableAt(t time.Time) Amount {
	releasable := new(big.Int).Sub(r.VestedAt(t).Wei(), r.ReleasedAmount.Wei())
	if releasable.Sign() < 0 {
		return Amount{}
	}
	return NewAmount(releasable)
}

// DurationFromSeconds converts an on-chain period in seconds to a
// time.Duration. Periods too long for a Duration saturate at its maximum
// whole second; negative or nil periods are zero.
func DurationFromSeconds(secs *big.Int) time.Duration {
	if secs == nil || secs.Sign() <= 0 {
		return 0
	}
	if !secs.IsInt64() || secs.Int64() > maxDurationSeconds {
		return time.Duration(maxDurationSeconds) * time.Second
	}
	return time.Duration(secs.Int64()) * time.Second
}
