package request

import (
	"fmt"
	"math"
	"strconv"
)

// ParseFloat parses a numeric upstream field. NaN and ±Inf are rejected,
// strconv accepts both spellings.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}
