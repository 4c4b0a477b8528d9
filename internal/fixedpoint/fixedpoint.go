// Package fixedpoint converts between decimal text with exactly one
// fractional digit and integers scaled by ten.
package fixedpoint

import (
	"math"

	"github.com/pkg/errors"
)

// ErrMalformed is returned when the input does not match -?[0-9]+\.[0-9].
var ErrMalformed = errors.New("malformed value")

// Parse reads a decimal number that matches "^-?[0-9]+[.][0-9]$",
// e.g.: -12.3, -3.4, 5.6, 78.9 and returns the value*10, i.e. -123, -34, 56, 789.
func Parse(data []byte) (int64, error) {
	negative := len(data) > 0 && data[0] == '-'
	if negative {
		data = data[1:]
	}

	// at least "d.d"
	if len(data) < 3 || data[len(data)-2] != '.' {
		return 0, errors.Wrapf(ErrMalformed, "%q", data)
	}

	var result int64
	intPart := data[:len(data)-2]
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return 0, errors.Wrapf(ErrMalformed, "%q", data)
		}
		d := int64(c - '0')
		if result > (math.MaxInt64-d)/10 {
			return 0, errors.Wrapf(ErrMalformed, "%q out of range", data)
		}
		result = result*10 + d
	}

	c := data[len(data)-1]
	if c < '0' || c > '9' {
		return 0, errors.Wrapf(ErrMalformed, "%q", data)
	}
	d := int64(c - '0')
	if result > (math.MaxInt64-d)/10 {
		return 0, errors.Wrapf(ErrMalformed, "%q out of range", data)
	}
	result = result*10 + d

	if negative {
		return -result, nil
	}
	return result, nil
}

// Append appends the one-decimal rendering of tempTimesTen to dst.
func Append(dst []byte, tempTimesTen int64) []byte {
	u := uint64(tempTimesTen)
	if tempTimesTen < 0 {
		dst = append(dst, '-')
		u = uint64(-tempTimesTen) // MinInt64 wraps to its own magnitude
	}
	var buf [24]byte
	i := len(buf) - 1
	buf[i] = byte('0' + u%10)
	u /= 10
	i--
	buf[i] = '.'
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 {
			break
		}
	}
	return append(dst, buf[i:]...)
}

// Format returns the one-decimal rendering of tempTimesTen, e.g. -15 as "-1.5".
func Format(tempTimesTen int64) string {
	return string(Append(make([]byte, 0, 8), tempTimesTen))
}

// RoundMode selects how Quo breaks ties.
type RoundMode int

const (
	// HalfEven rounds ties to the even neighbour.
	HalfEven RoundMode = iota
	// HalfUp rounds ties toward positive infinity, like Java's Math.round.
	HalfUp
)

// Quo returns x/n rounded to the nearest integer, ties broken by mode.
// The division is exact: a scaled sum divided by a count stays in tenths.
// n must be positive.
func Quo(x int64, n uint64, mode RoundMode) int64 {
	negative := x < 0
	a := uint64(x)
	if negative {
		a = uint64(-x) // MinInt64 wraps to its own magnitude
	}
	q, r := a/n, a%n

	// r and n-r are the distances to the two neighbours, so no 2*r overflow
	switch {
	case r > n-r:
		q++
	case r == n-r:
		if mode == HalfEven && q&1 == 1 || mode == HalfUp && !negative {
			q++
		}
	}

	if negative {
		return -int64(q)
	}
	return int64(q)
}
