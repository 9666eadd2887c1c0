package contract_test

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/contract"
)

func record(total int64, released int64, duration time.Duration) contract.InvestmentRecord {
	return contract.InvestmentRecord{
		IdeaID:            7,
		TotalVestedAmount: contract.NewAmount(big.NewInt(total)),
		ReleasedAmount:    contract.NewAmount(big.NewInt(released)),
		VestingStart:      time.Unix(1_700_000_000, 0),
		VestingDuration:   duration,
	}
}

func TestVestedAtMonotonic(t *testing.T) {
	t.Parallel()
	r := record(1_000_003, 0, 30*24*time.Hour)

	prev := big.NewInt(-1)
	for ts := r.VestingStart.Add(-time.Hour); ts.Before(r.VestingEnd().Add(48 * time.Hour)); ts = ts.Add(37 * time.Minute) {
		vested := r.VestedAt(ts).Wei()
		require.GreaterOrEqual(t, vested.Cmp(prev), 0, "vested amount decreased at %s", ts)
		prev = vested
	}
}

func TestVestedAtSaturates(t *testing.T) {
	t.Parallel()
	r := record(1_000_003, 0, 30*24*time.Hour)

	for _, ts := range []time.Time{r.VestingEnd(), r.VestingEnd().Add(time.Second), r.VestingEnd().Add(365 * 24 * time.Hour)} {
		assert.Equal(t, 0, r.VestedAt(ts).Wei().Cmp(big.NewInt(1_000_003)))
	}
}

func TestVestedAtLinear(t *testing.T) {
	t.Parallel()
	r := record(1000, 0, 1000*time.Second)

	assert.True(t, r.VestedAt(r.VestingStart.Add(-time.Second)).IsZero())
	assert.True(t, r.VestedAt(r.VestingStart).IsZero())
	assert.Equal(t, int64(250), r.VestedAt(r.VestingStart.Add(250*time.Second)).Wei().Int64())
	assert.Equal(t, int64(999), r.VestedAt(r.VestingStart.Add(999*time.Second)).Wei().Int64())
}

func TestVestedAtZeroDuration(t *testing.T) {
	t.Parallel()
	r := record(500, 0, 0)
	assert.Equal(t, int64(500), r.VestedAt(r.VestingStart).Wei().Int64())
}

func TestReleasableAt(t *testing.T) {
	t.Parallel()
	r := record(1000, 300, 1000*time.Second)

	assert.True(t, r.ReleasableAt(r.VestingStart.Add(100*time.Second)).IsZero(), "never negative")
	assert.Equal(t, int64(200), r.ReleasableAt(r.VestingStart.Add(500*time.Second)).Wei().Int64())
	assert.Equal(t, int64(700), r.ReleasableAt(r.VestingEnd()).Wei().Int64())
}

func TestAmount(t *testing.T) {
	t.Parallel()

	var zero contract.Amount
	assert.True(t, zero.IsZero())
	assert.Equal(t, "0.0", zero.String())
	assert.Equal(t, int64(0), zero.Wei().Int64())

	src := big.NewInt(1_500_000_000_000_000_000)
	a := contract.NewAmount(src)
	src.SetInt64(0)
	assert.Equal(t, "1.5", a.String(), "NewAmount copies its input")
	assert.Equal(t, "1.5", a.Decimal().String())

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `"1.5"`, string(raw))

	a.Wei().SetInt64(0)
	assert.False(t, a.IsZero(), "Wei returns a copy")
}

func TestDurationFromSeconds(t *testing.T) {
	t.Parallel()

	longest := time.Duration(math.MaxInt64/int64(time.Second)) * time.Second
	huge, ok := new(big.Int).SetString("18446744073709551616000", 10)
	require.True(t, ok)

	tests := []struct {
		name string
		secs *big.Int
		want time.Duration
	}{
		{"nil", nil, 0},
		{"negative", big.NewInt(-5), 0},
		{"thirty days", big.NewInt(2_592_000), 30 * 24 * time.Hour},
		{"longest", big.NewInt(math.MaxInt64 / int64(time.Second)), longest},
		{"just past longest", big.NewInt(18_446_744_173), longest},
		{"beyond int64", huge, longest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, contract.DurationFromSeconds(tt.secs))
		})
	}
}
