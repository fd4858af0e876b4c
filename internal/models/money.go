package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an amount arrives without a currency code.
const DefaultCurrency = "USD"

// zero-decimal currencies; everything else uses two minor digits
var currencyExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
}

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// Money is an amount in minor currency units (cents for USD) plus an ISO 4217 code.
// Amounts are only converted to or from major units at the display edge.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `gorm:"size:3" json:"currency"`
}

// NewMoney builds a Money value, defaulting and upper-casing the currency.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: normalizeCurrency(currency)}
}

// USD is shorthand for NewMoney(amount, "USD").
func USD(amount int64) Money {
	return NewMoney(amount, DefaultCurrency)
}

// FromMajorUnits parses a decimal string such as "1250.50" into minor units.
// Fractions finer than the currency's minor unit are rejected rather than rounded.
func FromMajorUnits(major string, currency string) (Money, error) {
	currency = normalizeCurrency(currency)
	d, err := decimal.NewFromString(strings.TrimSpace(major))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", major, err)
	}
	minor := d.Shift(exponent(currency))
	if !minor.IsInteger() {
		return Money{}, fmt.Errorf("amount %q has more than %d decimal places", major, exponent(currency))
	}
	return FromMinorDecimal(minor, currency)
}

// FromMinorDecimal converts a whole number of minor units held as a decimal,
// rejecting values that do not fit in an int64.
func FromMinorDecimal(minor decimal.Decimal, currency string) (Money, error) {
	if !minor.IsInteger() {
		return Money{}, fmt.Errorf("amount %s is not a whole number of minor units", minor)
	}
	if minor.GreaterThan(maxMinorUnits) || minor.LessThan(minMinorUnits) {
		return Money{}, fmt.Errorf("amount %s is out of range", minor)
	}
	return Money{Amount: minor.IntPart(), Currency: normalizeCurrency(currency)}, nil
}

// Cur returns the normalized currency code.
func (m Money) Cur() string {
	return normalizeCurrency(m.Currency)
}

// MajorUnits returns the amount as an exact decimal in major units.
func (m Money) MajorUnits() decimal.Decimal {
	return decimal.New(m.Amount, -exponent(m.Cur()))
}

// DisplayString renders the amount for people, e.g. "$1,234.56" or "1,234.56 EUR".
func (m Money) DisplayString() string {
	exp := exponent(m.Cur())
	raw := m.MajorUnits().Abs().StringFixed(exp)

	intPart, frac := raw, ""
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		intPart, frac = raw[:i], raw[i:]
	}
	grouped := groupThousands(intPart) + frac

	sign := ""
	if m.Amount < 0 {
		sign = "-"
	}
	if m.Cur() == DefaultCurrency {
		return sign + "$" + grouped
	}
	return sign + grouped + " " + m.Cur()
}

func (m Money) String() string {
	return m.DisplayString()
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// SameCurrency reports whether both amounts use the same currency.
func (m Money) SameCurrency(other Money) bool {
	return m.Cur() == other.Cur()
}

// Add returns m + other; both must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, currencyMismatch(m, other)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Cur()}, nil
}

// Sub returns m - other; both must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, currencyMismatch(m, other)
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Cur()}, nil
}

// MulRate multiplies by factor and rounds half away from zero to a whole minor unit.
func (m Money) MulRate(factor decimal.Decimal) (Money, error) {
	return FromMinorDecimal(decimal.NewFromInt(m.Amount).Mul(factor).Round(0), m.Cur())
}

// MoneyInput is the request-side shape of an amount: either minor units in "amount"
// or a decimal string in "amount_major".
type MoneyInput struct {
	Amount      *int64 `json:"amount,omitempty"`
	AmountMajor string `json:"amount_major,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// ToMoney converts the input exactly once into minor units.
func (in MoneyInput) ToMoney() (Money, error) {
	switch {
	case in.Amount != nil && in.AmountMajor != "":
		return Money{}, fmt.Errorf("send either amount or amount_major, not both")
	case in.Amount != nil:
		return NewMoney(*in.Amount, in.Currency), nil
	case in.AmountMajor != "":
		return FromMajorUnits(in.AmountMajor, in.Currency)
	default:
		return Money{}, fmt.Errorf("amount is required")
	}
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func exponent(currency string) int32 {
	if e, ok := currencyExponents[currency]; ok {
		return e
	}
	return 2
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func currencyMismatch(a, b Money) error {
	return NewValidationError(fmt.Sprintf("currency mismatch: %s vs %s", a.Cur(), b.Cur()))
}
