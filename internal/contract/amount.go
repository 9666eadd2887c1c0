package contract

import (
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/idealink/internal/chain"
)

// Amount is a native or reward-token amount in base units. Both use 18
// decimals. The zero value is zero.
type Amount struct {
	wei *big.Int
}

// NewAmount returns an Amount holding a copy of wei.
func NewAmount(wei *big.Int) Amount {
	if wei == nil {
		return Amount{}
	}
	return Amount{wei: new(big.Int).Set(wei)}
}

// Wei returns the amount in base units.
func (a Amount) Wei() *big.Int {
	if a.wei == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.wei)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.wei == nil || a.wei.Sign() == 0
}

// Decimal returns the amount in whole units.
func (a Amount) Decimal() decimal.Decimal {
	return chain.FromWei(a.Wei())
}

// String formats the amount in whole units, e.g. "1.5".
func (a Amount) String() string {
	return chain.FormatEther(a.Wei())
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}
