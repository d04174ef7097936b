package omnikassa

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {},
	"KRW": {},
	"ISK": {},
	"CLP": {},
	"VND": {},
}

// Money is an amount in the minor unit of its currency.
type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// NewMoney returns a Money for an amount already expressed in minor units.
func NewMoney(currency string, minor int64) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, fieldError("Money.currency", ErrInvalidValue, "%q is not an ISO 4217 code", currency)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return Money{}, fieldError("Money.currency", ErrInvalidValue, "%q is not an ISO 4217 code", currency)
		}
	}
	if minor < 0 {
		return Money{}, fieldError("Money.amount", ErrInvalidValue, "amount may not be negative")
	}
	return Money{Currency: currency, Amount: minor}, nil
}

// MoneyFromDecimal converts a decimal major-unit amount such as "12.34" into
// minor units. Amounts with more precision than the currency allows are rejected.
func MoneyFromDecimal(currency, amount string) (Money, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fieldError("Money.amount", ErrInvalidValue, "%q is not a decimal", amount)
	}
	minor := parsed.Shift(int32(currencyScale(currency)))
	if !minor.Equal(minor.Truncate(0)) {
		return Money{}, fieldError("Money.amount", ErrInvalidValue, "%s has too many decimals for %s", amount, currency)
	}
	if minor.IsNegative() {
		return Money{}, fieldError("Money.amount", ErrInvalidValue, "amount may not be negative")
	}
	if minor.GreaterThan(maxMinor) {
		return Money{}, fieldError("Money.amount", ErrInvalidValue, "%s exceeds the largest representable amount", amount)
	}
	return NewMoney(currency, minor.IntPart())
}

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// Decimal formats the amount in major units.
func (m Money) Decimal() string {
	scale := int32(currencyScale(m.Currency))
	return decimal.NewFromInt(m.Amount).Shift(-scale).StringFixed(scale)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Decimal())
}

// IsZero reports whether m is the zero value.
func (m Money) IsZero() bool { return m.Currency == "" && m.Amount == 0 }

func (m Money) appendSignatureFields(fields []string) []string {
	return append(fields, m.Currency, strconv.FormatInt(m.Amount, 10))
}

func currencyScale(currency string) int {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return 0
	}
	return 2
}
