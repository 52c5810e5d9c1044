package services

import (
	"slices"
	"strings"
)

// parseScopes splits a space separated scope string, dropping duplicates
// while keeping the first-seen order.
func parseScopes(scope string) []string {
	fields := strings.Fields(scope)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// scopesAreCovered reports whether every requested scope is in granted.
func scopesAreCovered(granted, requested []string) bool {
	for _, s := range requested {
		if !slices.Contains(granted, s) {
			return false
		}
	}
	return true
}

// unionScopes merges space separated scope strings.
func unionScopes(scopeStrings []string) []string {
	var out []string
	for _, s := range scopeStrings {
		for _, f := range strings.Fields(s) {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	return out
}
