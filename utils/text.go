package utils

import "unicode/utf8"

// Cut shortens s to at most limit characters.
func Cut(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:max(limit, 0)])
}

// Truncate shortens s to at most limit characters, marking the cut with
// "...". Discord counts message and embed limits in characters.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return Cut(s, limit)
	}
	return Cut(s, limit-3) + "..."
}
