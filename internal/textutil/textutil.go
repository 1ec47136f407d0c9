// Package textutil holds the small string helpers shared by extraction,
// summarization and question answering.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Normalize collapses every run of whitespace (newlines included) into a
// single space and trims the ends. Invalid UTF-8 is replaced first.
func Normalize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns at most n runes of s. It never splits a multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Len counts runes, not bytes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
