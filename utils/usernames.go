// utils/usernames.go
package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeUsername trims and lower-cases a player handle. Upstream handles
// are case-insensitive, so this is the storage key.
func NormalizeUsername(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// NormalizeUsernames normalizes every entry, drops blanks and keeps the first
// occurrence of duplicates. The input order is preserved. Never returns nil.
func NormalizeUsernames(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		u := NormalizeUsername(raw)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
