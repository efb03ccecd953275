package fitcommon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Clamp limits v to [lo, hi]. NaN is treated as silence.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	return math.Min(hi, math.Max(lo, v))
}

// ParseWorkers reads a -workers value: "auto" yields 0, which the scorer
// resolves to GOMAXPROCS, otherwise a count >= 1.
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return 0, fmt.Errorf("workers: empty value (want 'auto' or a count >= 1)")
	case "auto":
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("workers: %q (want 'auto' or a count >= 1)", raw)
	}
	return n, nil
}
