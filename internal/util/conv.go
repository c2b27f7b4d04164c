package util

import (
	"strconv"
)

// ParseID parses a positive numeric path parameter.
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ParseLimit parses a page size, falling back to def and capping at maxLimit.
func ParseLimit(s string, def, maxLimit int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxLimit)
}
