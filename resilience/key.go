package resilience

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CacheKey canonicalizes a request into a deterministic key.
//
// Each part is trimmed, lowercased and has its whitespace collapsed, so
// "  Go  Generics" and "go generics" collide. The result is
// namespace + ":" + sha256(parts joined with "|").
func CacheKey(namespace string, parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = normalizeText(p)
	}
	h := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return namespace + ":" + hex.EncodeToString(h[:])
}

// KeywordSet canonicalizes an unordered keyword list into one key part.
// Order and duplicates do not change the result.
func KeywordSet(keywords []string) string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		n := normalizeText(k)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func normalizeText(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}
