package chain

import (
	"math/big"

	"github.com/shopspring/decimal"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// ToWei converts a native amount to its smallest unit.
// Amounts that are negative or more precise than 18 decimals are rejected.
func ToWei(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			"amount": amount.String(),
			"reason": "amount cannot be negative",
		})
	}
	shifted := amount.Shift(NativeDecimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			"amount": amount.String(),
			"reason": "too many decimal places",
		})
	}
	return shifted.BigInt(), nil
}

// FromWei converts a smallest-unit amount to a native decimal.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -NativeDecimals)
}

// ParseEther parses a human-readable native amount such as "1.5" into wei.
func ParseEther(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			"amount": amount,
		})
	}
	return ToWei(d)
}

// FormatEther renders wei as a native amount, keeping at least one
// fractional digit: 1e18 is "1.0" and 15e17 is "1.5".
func FormatEther(wei *big.Int) string {
	return FormatDecimalAmount(wei, NativeDecimals)
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros after the decimal point are removed.
// For example, 1500000000000000000 with 18 decimals returns "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0.0"
	}
	if amount.Sign() < 0 {
		return "-" + FormatDecimalAmount(new(big.Int).Abs(amount), decimalPlaces)
	}

	str := amount.String()
	if decimalPlaces == 0 {
		return str
	}

	// Pad with leading zeros if necessary
	for len(str) <= decimalPlaces {
		str = "0" + str
	}

	decimalPos := len(str) - decimalPlaces
	result := str[:decimalPos] + "." + str[decimalPos:]

	// Remove unnecessary trailing zeros
	for len(result) > 1 && result[len(result)-1] == '0' && result[len(result)-2] != '.' {
		result = result[:len(result)-1]
	}

	return result
}
