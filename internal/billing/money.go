package billing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents, paise).
type Money int64

const minorDigits = 2

var hundred = decimal.NewFromInt(100)

// MaxLineAmount caps one line's quantity times rate, in major units. Money is int64 minor
// units, so anything near 9.2e16 would wrap.
const MaxLineAmount = 10_000_000_000_000

var maxLineAmount = decimal.NewFromInt(MaxLineAmount)

// MoneyFromDecimal rounds d half away from zero to two places and converts it to minor units.
// |d| must stay below 9.2e16; ValidateItems keeps stored lines well under that.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(minorDigits).Shift(minorDigits).IntPart())
}

// MoneyFromFloat is the boundary conversion for amounts that arrive as JSON numbers or float8 columns.
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// ParseMoney parses "1234.5", "-0.01" and similar.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return MoneyFromDecimal(d), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorDigits)
}

// Float64 is for display only.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits)
}

func (m Money) IsNegative() bool {
	return m < 0
}

func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MarshalJSON writes a number with exactly two decimals, e.g. 220.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = 0
		return nil
	}
	var raw json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid money value %s", data)
		}
		raw = json.Number(s)
	}
	v, err := ParseMoney(raw.String())
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// lineAmount returns round2(quantity*rate) and round2(amount*taxRate/100).
func lineAmount(quantity, rate, taxRate float64) (Money, Money) {
	amount := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(rate)).Round(minorDigits)
	tax := amount.Mul(decimal.NewFromFloat(taxRate)).Div(hundred).Round(minorDigits)
	return MoneyFromDecimal(amount), MoneyFromDecimal(tax)
}
