package core

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reHyphen   = regexp.MustCompile(`-+`)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanName trims s and collapses its inner whitespace runs into single spaces.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ASCIIFold strips diacritics from s (é -> e, ç -> c) and drops the remaining non-ASCII runes.
func ASCIIFold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) { // nonspacing mark
			continue
		}
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Slugify turns s into a lower-cased [a-z0-9] string joined by sep.
// fallback is returned when nothing is left.
func Slugify(s, sep, fallback string) string {
	s = strings.ToLower(ASCIIFold(strings.TrimSpace(s)))
	s = reNonAlnum.ReplaceAllString(s, "-")
	s = reHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fallback
	}
	return strings.ReplaceAll(s, "-", sep)
}
