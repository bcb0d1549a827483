package types

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalNumber matches plain decimal notation with an optional exponent.
// strconv.ParseFloat alone would also take hex floats and "inf".
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseEstimation converts user or CSV text into story points.
// Blank text means no estimation and returns nil. Thousands separators are
// ignored and integral decimals such as "5.0" are accepted. Fractions,
// negatives, and non-numeric text return ErrInvalidEstimation.
func ParseEstimation(text string) (*int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	text = strings.ReplaceAll(text, ",", "")

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		if n < 0 {
			return nil, ErrInvalidEstimation
		}
		return &n, nil
	}

	if !decimalNumber.MatchString(text) {
		return nil, ErrInvalidEstimation
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrInvalidEstimation
	}
	if f != math.Trunc(f) || f < 0 || f >= math.MaxInt64 {
		return nil, ErrInvalidEstimation
	}
	n := int64(f)
	return &n, nil
}
