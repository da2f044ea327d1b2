package types

import (
	"github.com/shopspring/decimal"
)

// RoundMoney rounds a monetary amount to 2 decimal places, half up.
// Applied once per output line item, never mid-calculation.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
