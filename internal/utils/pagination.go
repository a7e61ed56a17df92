// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, returning def when s is blank or
// not a number.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// PageWindow clamps 1-based paging parameters: page to >= 1, size to def when
// non-positive and to max when too large. It returns the clamped pair and the
// row offset of the page.
func PageWindow(page, size, def, max int) (p, s, offset int) {
	p = page
	if p < 1 {
		p = 1
	}
	s = size
	if s <= 0 {
		s = def
	}
	s = min(s, max)
	return p, s, (p - 1) * s
}
