package matching

import "strings"

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// tokensOverlap reports whether two tokens refer to the same concept using
// bidirectional case-insensitive substring containment, so "Machine Learning"
// matches "machine learning engineering" and vice versa.
func tokensOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// matchedTokens returns the catalog-side tokens matched by any user token,
// deduplicated, preserving catalog order and original casing.
func matchedTokens(userTokens, itemTokens []string) []string {
	var matched []string
	for _, itemToken := range itemTokens {
		for _, userToken := range userTokens {
			if tokensOverlap(userToken, itemToken) {
				matched = append(matched, itemToken)
				break
			}
		}
	}
	return matched
}

// countOverlap counts catalog-side tokens matched by any user token.
func countOverlap(userTokens, itemTokens []string) int {
	return len(matchedTokens(userTokens, itemTokens))
}

// anyOverlap reports whether a single value overlaps any token in the list.
func anyOverlap(value string, tokens []string) bool {
	for _, token := range tokens {
		if tokensOverlap(value, token) {
			return true
		}
	}
	return false
}
