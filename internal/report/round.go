package report

import (
	"github.com/pkg/errors"

	"xpug.it/stationagg/internal/fixedpoint"
)

// Rounding selects how the mean is brought to one fractional digit.
type Rounding string

const (
	// RoundHalfEven rounds the exact mean to one digit, ties to even.
	// A mean that rounds to zero prints as 0.0, never -0.0.
	RoundHalfEven Rounding = "half-even"
	// RoundHalfUp rounds ties toward positive infinity, like Java's Math.round.
	RoundHalfUp Rounding = "half-up"
)

// ParseRounding validates a rounding mode name.
func ParseRounding(s string) (Rounding, error) {
	switch r := Rounding(s); r {
	case RoundHalfEven, RoundHalfUp:
		return r, nil
	}
	return "", errors.Errorf("unknown rounding %q", s)
}

func (r Rounding) roundMode() fixedpoint.RoundMode {
	if r == RoundHalfUp {
		return fixedpoint.HalfUp
	}
	return fixedpoint.HalfEven
}
