// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// aliasEntry is one "alias <pattern> <module>" line from modules.alias or
// modules.symbols.
type aliasEntry struct {
	pattern string
	module  string
}

// NormalizeAlias folds '-' into '_' the way module names are folded, leaving
// bracket expressions alone so ranges such as "[a-z]" keep their meaning.
func NormalizeAlias(alias string) string {
	var b strings.Builder
	b.Grow(len(alias))
	inBracket := false
	for i := 0; i < len(alias); i++ {
		c := alias[i]
		switch {
		case c == '[' && !inBracket:
			inBracket = true
		case c == ']' && inBracket:
			inBracket = false
		case c == '-' && !inBracket:
			c = '_'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// matches reports whether the requested alias satisfies the entry's pattern.
// Patterns use shell glob syntax; a pattern that does not compile is compared
// literally.
func (a aliasEntry) matches(alias string) bool {
	ok, err := doublestar.Match(a.pattern, alias)
	if err != nil {
		return a.pattern == alias
	}
	return ok
}

// ResolveAlias returns the names of every module whose alias pattern matches
// alias, in index order and without duplicates. '-' and '_' are
// interchangeable outside bracket expressions. An empty result is not an error.
func (idx *Index) ResolveAlias(alias string) []string {
	alias = NormalizeAlias(alias)
	var names []string
	seen := make(map[string]bool)
	for _, entry := range idx.aliases {
		if seen[entry.module] || !entry.matches(alias) {
			continue
		}
		seen[entry.module] = true
		names = append(names, entry.module)
	}
	return names
}
