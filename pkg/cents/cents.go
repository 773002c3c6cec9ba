// Package cents converts decimal price strings to integer minor currency
// units without going through floating point.
package cents

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// maxWhole bounds the integer part so that whole*100+99 stays within int64.
const maxWhole = math.MaxInt64 / 100

// ErrUnparseable is returned for input that is not a plain decimal number.
var ErrUnparseable = errors.New("cents: unparseable price")

// Parse converts a decimal price string to cents (10^-2 units).
//
// Examples:
//
//	"95245.75" -> 9524575
//	"100"      -> 10000
//	"50.5"     -> 5050
//	"0.01"     -> 1
//
// Fractional digits beyond two are truncated, never rounded, so
// "95245.75000000" parses the same as "95245.75". The absence of a decimal
// point means whole currency units.
func Parse(s string) (int64, error) {
	if s == "" {
		return 0, ErrUnparseable
	}

	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		whole, err := strconv.ParseUint(s, 10, 63)
		if err != nil || whole > maxWhole {
			return 0, ErrUnparseable
		}
		return int64(whole) * 100, nil
	}

	whole, err := strconv.ParseUint(s[:dot], 10, 63)
	if err != nil || whole > maxWhole {
		return 0, ErrUnparseable
	}

	frac := s[dot+1:]
	var fracVal uint64
	switch len(frac) {
	case 0:
		fracVal = 0
	case 1:
		fracVal, err = strconv.ParseUint(frac, 10, 63)
		fracVal *= 10
	case 2:
		fracVal, err = strconv.ParseUint(frac, 10, 63)
	default:
		// Truncate extra precision; exchanges commonly send 8 decimals.
		fracVal, err = strconv.ParseUint(frac[:2], 10, 63)
	}
	if err != nil {
		return 0, ErrUnparseable
	}

	return int64(whole)*100 + int64(fracVal), nil
}
