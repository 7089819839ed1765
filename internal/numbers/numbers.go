package numbers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrTooPrecise is returned when a value has more fractional digits than the
// target unit can hold.
var ErrTooPrecise = errors.New("numbers: value exceeds unit precision")

// ErrMalformed is returned for text that is not a plain decimal number.
var ErrMalformed = errors.New("numbers: malformed decimal")

// plainDecimal admits an optional sign, digits and one optional point.
// Exponent notation is rejected so the scale is bounded by the input length.
var plainDecimal = regexp.MustCompile(`^-?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

// ExtractDecimal converts common scalar types into an exact decimal.
// Floats go through their shortest decimal representation.
func ExtractDecimal(val any) (decimal.Decimal, error) {
	switch v := val.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case json.Number:
		return parsePlain(v.String())
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return decimal.Zero, fmt.Errorf("empty string")
		}
		return parsePlain(v)
	default:
		return decimal.Zero, fmt.Errorf("unsupported decimal type %T", val)
	}
}

func parsePlain(s string) (decimal.Decimal, error) {
	if !plainDecimal.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return decimal.NewFromString(s)
}

// ToBaseUnits scales d by 10^decimals. Digits below the base unit are an error.
func ToBaseUnits(d decimal.Decimal, decimals int32) (*big.Int, error) {
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrTooPrecise, d.String(), decimals)
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}
