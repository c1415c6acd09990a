package model

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Money is a decimal amount held in minor units (cents).
// JSON encodes it as a decimal number with two fractional digits.
type Money int64

// ParseCents converts decimal string amounts (dollars) to cents.
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0, "abc" → 0
func ParseCents(s string) int64 {
	cents, err := parseDecimal(s)
	if err != nil {
		return 0
	}
	return cents
}

// ParseMoney parses a decimal amount such as "19.99".
func ParseMoney(s string) (Money, error) {
	cents, err := parseDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("money: %w", err)
	}
	return Money(cents), nil
}

func parseDecimal(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	// Beyond 2^53 cents a float64 no longer holds every whole amount.
	cents := math.Round(f * 100)
	if math.IsNaN(cents) || math.Abs(cents) > maxCents {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return int64(cents), nil
}

const maxCents = 1 << 53

// Times multiplies a unit price by a quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// String formats the amount as "120.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if len(data) >= 2 && data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("money: %w", err)
		}
		data = []byte(unquoted)
	}
	cents, err := parseDecimal(string(data))
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = Money(cents)
	return nil
}
