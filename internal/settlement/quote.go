package settlement

import (
	"github.com/shopspring/decimal"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// QuoteDecimals is the number of fractional digits in a native amount quote.
const QuoteDecimals = 4

// Quote converts a fiat price to a native amount at exchangeRate fiat units
// per native unit, rounded half away from zero to QuoteDecimals digits.
func Quote(fiatPrice, exchangeRate decimal.Decimal) (decimal.Decimal, error) {
	if fiatPrice.IsNegative() {
		return decimal.Zero, ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			"fiat_price":       fiatPrice.String(),
			ilerr.DetailReason: "price must not be negative",
		})
	}
	if !exchangeRate.IsPositive() {
		return decimal.Zero, ilerr.WithDetails(ilerr.ErrConfigInvalid, map[string]string{
			"exchange_rate":    exchangeRate.String(),
			ilerr.DetailReason: "exchange rate must be positive",
		})
	}
	return fiatPrice.DivRound(exchangeRate, QuoteDecimals), nil
}

// FormatQuote renders a quote with exactly QuoteDecimals digits, e.g. "1.0000".
func FormatQuote(amount decimal.Decimal) string {
	return amount.StringFixed(QuoteDecimals)
}

// ConfirmAmount checks that the amount a user confirmed is the quoted
// amount. The confirmed value is compared as a number, so "1" matches
// "1.0000", but no rounding is applied: "1.00001" does not.
func ConfirmAmount(quoted decimal.Decimal, confirmed string) error {
	c, err := decimal.NewFromString(confirmed)
	if err != nil {
		return ilerr.WithDetails(ilerr.ErrInvalidAmount, map[string]string{
			"amount": confirmed,
		})
	}
	if !c.Equal(quoted) {
		return ilerr.WithSuggestion(
			ilerr.WithDetails(ilerr.ErrAmountMismatch, map[string]string{
				"quoted":    FormatQuote(quoted),
				"confirmed": confirmed,
			}),
			"Submit exactly "+FormatQuote(quoted),
		)
	}
	return nil
}
