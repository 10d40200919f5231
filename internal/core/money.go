package core

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ParseAmountToCents converts a decimal currency string to integer cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, takes the
// absolute value of the parsed amount, and rounds half-up to the nearest
// cent: round(|parsed| * 100). A negative input is therefore normalized to
// positive, not rejected. Returns ErrInvalidAmount for empty, unparsable or
// zero amounts.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Abs().Mul(decimal.NewFromInt(100)).Round(0)
	if cents.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrInvalidAmount
	}
	if !cents.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Format renders the amount as a Brazilian real display string.
// Accumulation always happens in cents; division by 100 only happens here.
func (m Money) Format() string {
	return money.New(m.Cents, money.BRL).Display()
}
