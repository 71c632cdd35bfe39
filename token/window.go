package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseWindow parses a validity window like "30s", "15m", "24h", "7d"
// or "2w". Days and weeks are not understood by time.ParseDuration, so
// the suffix is handled here.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := s[len(s)-1:]
	value := s[:len(s)-1]

	var mult time.Duration
	switch unit {
	case "s":
		mult = time.Second
	case "m":
		mult = time.Minute
	case "h":
		mult = time.Hour
	case "d":
		mult = 24 * time.Hour
	case "w":
		mult = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unrecognized duration unit %q (want s, m, h, d or w)", unit)
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration value %q", s)
	}

	return time.Duration(n) * mult, nil
}
