package payer

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultMaxPaymentAmount is 0.1 USDC in atomic units.
var DefaultMaxPaymentAmount = big.NewInt(100_000)

// ParseAmount parses a base-10 integer string in the asset's atomic units.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}

	return amount, nil
}

// FormatAmount renders an atomic amount as a decimal string in whole
// token units, e.g. 100000 with 6 decimals is "0.1".
func FormatAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}

	return decimal.NewFromBigInt(amount, -decimals).String()
}
