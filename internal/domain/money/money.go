// Package money implements fixed-point currency amounts stored as integer minor units.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of fractional digits held in minor units (cents).
const MinorUnitExponent = 2

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidCurrency  = errors.New("currency must be a 3-letter code")
)

// Money is an amount of minor units tagged with an ISO-4217 style currency code.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// New returns a Money value after validating the currency code.
func New(amount int64, currency string) (Money, error) {
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: cur}, nil
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency)}
}

// NormalizeCurrency upper-cases and validates a 3-letter currency code.
func NormalizeCurrency(currency string) (string, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if len(cur) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range cur {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return cur, nil
}

// Parse converts a decimal string such as "12.345" into minor units, rounding half away
// from zero. Negative, non-finite and out of range values fail with ErrInvalidAmount.
func Parse(value, currency string) (Money, error) {
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}

	raw := strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimLeft(raw, "+-")) {
	case "", "nan", "inf", "infinity":
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, value)
	}

	minor := d.Shift(MinorUnitExponent).Round(0)
	if minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return Money{}, fmt.Errorf("%w: %q exceeds the representable range", ErrInvalidAmount, value)
	}

	return Money{Amount: minor.IntPart(), Currency: cur}, nil
}

// String renders the amount with exactly two fractional digits followed by the currency.
func (m Money) String() string {
	return m.Decimal() + " " + m.Currency
}

// Decimal renders the amount as a plain decimal string, e.g. "150.00".
func (m Money) Decimal() string {
	return decimal.New(m.Amount, -MinorUnitExponent).StringFixed(MinorUnitExponent)
}

func (m Money) IsPositive() bool { return m.Amount > 0 }

func (m Money) IsNegative() bool { return m.Amount < 0 }

func (m Money) IsZero() bool { return m.Amount == 0 }

// Add returns m+o. Both values must share a currency and the sum must fit in int64.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	if (o.Amount > 0 && m.Amount > math.MaxInt64-o.Amount) ||
		(o.Amount < 0 && m.Amount < math.MinInt64-o.Amount) {
		return Money{}, fmt.Errorf("%w: overflow", ErrInvalidAmount)
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

// Sub returns m-o with the same rules as Add.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	if (o.Amount < 0 && m.Amount > math.MaxInt64+o.Amount) ||
		(o.Amount > 0 && m.Amount < math.MinInt64+o.Amount) {
		return Money{}, fmt.Errorf("%w: overflow", ErrInvalidAmount)
	}
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

// Cmp returns -1, 0 or +1 depending on whether m is less than, equal to or greater than o.
func (m Money) Cmp(o Money) (int, error) {
	if m.Currency != o.Currency {
		return 0, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	switch {
	case m.Amount < o.Amount:
		return -1, nil
	case m.Amount > o.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}
