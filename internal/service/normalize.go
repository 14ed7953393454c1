package service

import "strings"

// QueryKey is the exact-match lookup key for a question: the lowercased,
// trimmed query, plus "|" and the lowercased, trimmed context when there is
// one.
func QueryKey(query, context string) string {
	key := strings.ToLower(strings.TrimSpace(query))
	if ctx := strings.ToLower(strings.TrimSpace(context)); ctx != "" {
		key += "|" + ctx
	}
	return key
}
