package planner

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAllowance parses user input such as "12,5" or "30". Blank input
// returns nil, meaning "unset".
func ParseAllowance(input string) (*float64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(trimmed, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAllowance, input)
	}
	if err := validateAllowance(v); err != nil {
		return nil, err
	}
	return &v, nil
}

func validateAllowance(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v*2 != math.Trunc(v*2) {
		return fmt.Errorf("%w: %v", ErrInvalidAllowance, v)
	}
	return nil
}

// FormatCount renders a counter with a decimal comma. Zero renders blank.
func FormatCount(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}
