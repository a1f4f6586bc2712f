// Package types provides value types shared across the membership packages.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrOverflow is returned when an arithmetic result does not fit in int64.
var ErrOverflow = errors.New("money: amount overflow")

// Money is an amount in the smallest unit of its currency.
// Arithmetic is integer-only.
//
//   - USD(1000) = $10.00
//   - JPY(1000) = ¥1000
type Money struct {
	Amount   int64  `json:"amount"   bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// New creates a Money value with a normalized (lowercase) currency code.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// USD creates a Money value in US cents.
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in euro cents.
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money { return New(0, currency) }

// Add returns m + other. Panics if currencies differ.
func (m Money) Add(other Money) Money {
	m.mustMatch(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Plus returns m + other, reporting ErrOverflow instead of wrapping.
// Panics if currencies differ.
func (m Money) Plus(other Money) (Money, error) {
	m.mustMatch(other)
	if (other.Amount > 0 && m.Amount > math.MaxInt64-other.Amount) ||
		(other.Amount < 0 && m.Amount < math.MinInt64-other.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m - other. Panics if currencies differ.
func (m Money) Sub(other Money) Money {
	m.mustMatch(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Times multiplies the amount by n, reporting ErrOverflow instead of wrapping.
func (m Money) Times(n int64) (Money, error) {
	if m.Amount == 0 || n == 0 {
		return Money{Currency: m.Currency}, nil
	}
	if n < 0 || m.Amount < 0 {
		return Money{}, fmt.Errorf("money: negative multiplication %d x %d", m.Amount, n)
	}
	if m.Amount > math.MaxInt64/n {
		return Money{}, ErrOverflow
	}
	return Money{Amount: m.Amount * n, Currency: m.Currency}, nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// SameCurrency reports whether both values are in the same currency.
func (m Money) SameCurrency(other Money) bool { return m.Currency == other.Currency }

// Equal reports whether amount and currency both match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan reports m < other. Panics if currencies differ.
func (m Money) LessThan(other Money) bool {
	m.mustMatch(other)
	return m.Amount < other.Amount
}

// FormatMajor renders the amount in major units without a symbol,
// e.g. "10.00" for USD(1000) and "1000" for JPY(1000).
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return fmt.Sprintf("%d", m.Amount)
	}

	divisor := int64(1)
	for range decimals {
		divisor *= 10
	}

	sign := ""
	abs := m.Amount
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%0*d", sign, abs/divisor, decimals, abs%divisor)
}

// String renders the amount with its currency symbol, e.g. "$10.00".
// Negative amounts carry the sign before the symbol: "-$10.00".
func (m Money) String() string {
	major := m.FormatMajor()
	if rest, ok := strings.CutPrefix(major, "-"); ok {
		return "-" + currencySymbol(m.Currency) + rest
	}
	return currencySymbol(m.Currency) + major
}

// MarshalJSON adds a display field next to amount and currency.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

func (m Money) mustMatch(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

var symbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
	"cad": "C$",
	"aud": "A$",
}

func currencySymbol(currency string) string {
	if sym, ok := symbols[currency]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

var zeroDecimal = map[string]bool{
	"jpy":  true,
	"krw":  true,
	"vnd":  true,
	"clp":  true,
	"gwei": true,
	"wei":  true,
}

func currencyDecimals(currency string) int {
	if zeroDecimal[currency] {
		return 0
	}
	return 2
}
