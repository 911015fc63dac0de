package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MaxMessageDelay caps the pause between two sends, in seconds.
const MaxMessageDelay = 3600

// ParseMessageDelay reads a delay value coming from a JSON body or a form
// field. Leading integer digits are honoured ("12s" is 12); anything that
// yields no positive integer falls back to fallback. Values above
// MaxMessageDelay are capped, fallback included.
func ParseMessageDelay(value any, fallback int) int {
	return min(parseDelay(value, fallback), MaxMessageDelay)
}

func parseDelay(value any, fallback int) int {
	var parsed int
	switch v := value.(type) {
	case nil:
		return fallback
	case int:
		parsed = v
	case int64:
		parsed = int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fallback
		}
		if v > MaxMessageDelay {
			return MaxMessageDelay
		}
		parsed = int(math.Trunc(v))
	case json.Number:
		return parseDelay(v.String(), fallback)
	case string:
		n, ok := leadingInt(v)
		if !ok {
			return fallback
		}
		parsed = n
	default:
		return fallback
	}
	if parsed <= 0 {
		return fallback
	}
	return parsed
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
