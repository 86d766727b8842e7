// Package nsmatch implements the single-segment wildcard matching rule
// shared by the state store's namespace queries and the event streamer's
// namespace filters.
package nsmatch

import "strings"

// Match reports whether namespace satisfies pattern.
//
// A pattern is a dot-separated sequence of literal segments and "*"
// wildcards. "*" matches exactly one segment — never zero, never many.
// Match succeeds iff both have the same number of segments and every
// literal segment agrees with its counterpart at the same position.
//
// An empty pattern or empty namespace never matches anything (namespaces
// are non-empty by construction; see backpack.Store.GetNamespaces).
func Match(pattern, namespace string) bool {
	if pattern == "" || namespace == "" {
		return false
	}
	pSegs := strings.Split(pattern, ".")
	nSegs := strings.Split(namespace, ".")
	if len(pSegs) != len(nSegs) {
		return false
	}
	for i, p := range pSegs {
		if p == "*" {
			continue
		}
		if p != nSegs[i] {
			return false
		}
	}
	return true
}
