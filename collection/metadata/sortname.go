package metadata

import (
	"regexp"
	"strings"
	"unicode"
)

var reTrailingYear = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)

// SortName derives the name items are ordered by: lowercased, without a
// leading article, leading punctuation or a trailing "(YYYY)" release year.
// Idempotent, so stored sort names can be fed through it again safely.
func SortName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = reTrailingYear.ReplaceAllString(s, "")

	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, article) {
			s = s[len(article):]
			break
		}
	}

	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (r < 0x80 && unicode.IsPunct(r))
	})
	return s
}
