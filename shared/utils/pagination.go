package utils

import "strconv"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ParseLimitOffset parses list query parameters, clamping limit to (0, max] and offset to >= 0.
func ParseLimitOffset(limitStr, offsetStr string, def, max int) (int, int) {
	limit := def
	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
		limit = v
	}
	if limit > max {
		limit = max
	}
	offset := 0
	if v, err := strconv.Atoi(offsetStr); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
