package util

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// TokenDecimals is the precision of CELO and cUSD
	TokenDecimals int32 = 18
	// GweiDecimals converts wei per gas to gwei per gas
	GweiDecimals int32 = 9
)

// FormatUnits renders base units as a decimal number with decimals places shifted, without trailing zeros
func FormatUnits(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}

	return decimal.NewFromBigInt(v, -decimals).String()
}

// ParseUnits parses a non-negative decimal amount such as "1.5" into base units.
// Amounts with more than decimals fractional digits are rejected.
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount %q", s)
	}

	if d.IsNegative() {
		return nil, errors.Errorf("amount %q must not be negative", s)
	}

	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, errors.Errorf("amount %q has more than %d decimal places", s, decimals)
	}

	return shifted.BigInt(), nil
}
