package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxSeconds is the largest whole second count a time.Duration holds.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// FormatError reports a clock string that is not HH:MM:SS, MM:SS or bare seconds.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("timecode %q: %s", e.Input, e.Reason)
}

// Parse converts "HH:MM:SS", "MM:SS" or a bare number of seconds into a duration.
// Components are non-negative decimals; the last one may carry a fraction.
func Parse(text string) (time.Duration, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, &FormatError{Input: text, Reason: "empty"}
	}
	parts := strings.Split(t, ":")
	if len(parts) > 3 {
		return 0, &FormatError{Input: text, Reason: "expected HH:MM:SS, MM:SS or seconds"}
	}

	var total float64
	for i, p := range parts {
		v, ok := parseComponent(p, i == len(parts)-1)
		if !ok {
			return 0, &FormatError{Input: text, Reason: fmt.Sprintf("component %q is not a non-negative number", p)}
		}
		total = total*60 + v
	}
	if total > maxSeconds {
		return 0, &FormatError{Input: text, Reason: "out of range"}
	}
	return time.Duration(total * float64(time.Second)), nil
}

// Format renders d as zero-padded HH:MM:SS, truncating fractional seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func parseComponent(s string, allowFraction bool) (float64, bool) {
	if s == "" {
		return 0, false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && allowFraction:
			dots++
		default:
			return 0, false
		}
	}
	if dots > 1 || s == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
