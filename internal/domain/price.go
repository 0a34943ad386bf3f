package domain

import (
	"bytes"         // JSON null check
	"encoding/json" // JSON encoding
	"errors"        // Error values
	"fmt"           // Value formatting
	"strconv"       // Number parsing
	"strings"       // Decimal parsing
)

// MaxPrice is the largest price a recipe can carry (five digits, two decimal places)
const MaxPrice Price = 99999

// ErrInvalidPrice is returned for negative, malformed or out of range prices
var ErrInvalidPrice = errors.New("price must be a non-negative number with at most 3 integer digits and 2 decimal places")

// Price is an amount in cents. It is exchanged as a decimal string such as "5.00".
type Price int64

// ParsePrice parses a decimal amount like "5", "5.5" or "12.34"
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(whole) > 3 || !isDigits(whole) {
		return 0, ErrInvalidPrice
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2 || !isDigits(frac)) {
		return 0, ErrInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, _ := strconv.ParseInt(whole, 10, 64)
	cents, _ := strconv.ParseInt(frac, 10, 64)
	p := Price(units*100 + cents)
	if p > MaxPrice {
		return 0, ErrInvalidPrice
	}
	return p, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// MarshalJSON renders the price as a quoted decimal string
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts either a JSON number or a decimal string
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrInvalidPrice
		}
	}
	parsed, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
