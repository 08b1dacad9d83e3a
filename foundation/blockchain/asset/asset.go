// Package asset provides the fixed point representation of the gold backed
// unit that moves across the ledger.
package asset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Precision is the number of decimal places an asset carries.
const Precision = 5

// Symbol is the asset symbol shown in the text form.
const Symbol = "GOLD"

// scale is 10^Precision.
const scale int64 = 100_000

// Set of error variables for parsing and arithmetic.
var (
	ErrInvalidFormat = errors.New("invalid asset format")
	ErrOverflow      = errors.New("asset arithmetic overflow")
)

// =============================================================================

// Asset is an amount in the smallest unit, 10^-Precision of one unit.
type Asset int64

// New constructs an asset from an amount in the smallest unit.
func New(amount int64) Asset {
	return Asset(amount)
}

// Parse decodes the text form "1.00000 GOLD". The decimal part must have
// exactly Precision digits.
func Parse(s string) (Asset, error) {
	amount, symbol, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || symbol != Symbol {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	whole, frac, ok := strings.Cut(amount, ".")
	if !ok || len(frac) != Precision || whole == "" || whole == "-" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	if w > (math.MaxInt64-f)/scale {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}

	v := w*scale + f
	if neg {
		v = -v
	}

	return Asset(v), nil
}

// MustParse is Parse for constants and tests. It panics on error.
func MustParse(s string) Asset {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the text form of the asset.
func (a Asset) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
	}

	// The magnitude of MinInt64 does not fit in an int64.
	u := uint64(v)
	if v < 0 {
		u = uint64(-(v + 1)) + 1
	}

	return fmt.Sprintf("%s%d.%05d %s", sign, u/uint64(scale), u%uint64(scale), Symbol)
}

// MarshalText implements the TextMarshaler interface.
func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (a *Asset) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = v

	return nil
}

// Add returns a + b or ErrOverflow.
func (a Asset) Add(b Asset) (Asset, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a - b or ErrOverflow.
func (a Asset) Sub(b Asset) (Asset, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// Sum adds every value or returns ErrOverflow.
func Sum(values ...Asset) (Asset, error) {
	var total Asset
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return 0, err
		}
	}
	return total, nil
}
