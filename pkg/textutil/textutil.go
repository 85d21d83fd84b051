package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var parenthesizedRegex = regexp.MustCompile(`\((.*?)\)`)

// Parenthesized returns the contents of the first "(...)" group in s, or ""
// if there is none. It does not handle nesting.
func Parenthesized(s string) string {
	groups := parenthesizedRegex.FindStringSubmatch(s)
	if len(groups) < 2 {
		return ""
	}
	return groups[1]
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// RemoveParenthesized removes the first "(content)" from s and tidies up the
// whitespace left behind.
func RemoveParenthesized(s, content string) string {
	s = strings.Replace(s, "("+content+")", "", 1)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FirstListItem splits s on commas and returns the first trimmed item.
func FirstListItem(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(first)
}

// characters rejected by at least one of the filesystems output is written to,
// the windows set is a superset of the unix one.
const invalidPathChars = `<>:"/\|?*`

func isInvalidPathRune(r rune) bool {
	return r < 0x20 || r == 0x7f || strings.ContainsRune(invalidPathChars, r)
}

// SanitizeFilename removes every character that is not allowed in a file name
// on windows or unix. The result is NFC normalized so that visually identical
// names map to the same file.
//
// Distinct inputs may sanitize to the same name (ex. "a:b" and "ab").
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	return strings.Map(func(r rune) rune {
		if isInvalidPathRune(r) {
			return -1
		}
		return r
	}, name)
}
