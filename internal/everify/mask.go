package everify

import "strings"

// Mask hides all but the last four characters of a secret. Short values are
// hidden entirely; empty stays empty so "not set" is still visible.
func Mask(s string) string {
	r := []rune(s)
	switch {
	case len(r) == 0:
		return ""
	case len(r) <= 4:
		return strings.Repeat("*", len(r))
	default:
		return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
	}
}
