package eth

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// DefaultGasMarginPercent is added on top of a node's gas estimate.
	DefaultGasMarginPercent uint64 = 20

	// FallbackGasLimit is used when estimation fails.
	FallbackGasLimit uint64 = 500_000

	// GasLimitTransfer is the gas limit for a plain native transfer.
	GasLimitTransfer uint64 = 21_000
)

// ApplyGasMargin returns estimate * (100 + percent) / 100 using integer math.
// The result saturates at math.MaxUint64.
func ApplyGasMargin(estimate, percent uint64) uint64 {
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(estimate),
		new(big.Int).SetUint64(100+percent),
	)
	product.Div(product, big.NewInt(100))
	if !product.IsUint64() {
		return math.MaxUint64
	}
	return product.Uint64()
}

// TxCost returns gasPrice * gasLimit.
func TxCost(gasPrice *big.Int, gasLimit uint64) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
}

// FormatGasPrice formats a gas price in wei as Gwei with two decimals.
func FormatGasPrice(weiPrice *big.Int) string {
	if weiPrice == nil {
		return "0.00 Gwei"
	}
	return decimal.NewFromBigInt(weiPrice, -9).StringFixed(2) + " Gwei"
}
