// Package autotag suggests a tag for a new task from keyword rules.
package autotag

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"tasktree/backend"
)

// Normalize folds width and compatibility variants (NFKC) and case so that
// "ＧＯ", "Go" and "go" compare equal.
func Normalize(s string) string {
	// Casers carry state, so each call gets its own.
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Classify returns the tag of the first rule with a keyword contained in
// title. Rules are tried in order; empty keywords never match.
func Classify(title string, rules []backend.KeywordRule) (string, bool) {
	normalized := Normalize(title)
	if normalized == "" {
		return "", false
	}
	for _, rule := range rules {
		tag := strings.TrimSpace(rule.Tag)
		if tag == "" {
			continue
		}
		for _, kw := range rule.Keywords {
			k := Normalize(kw)
			if k != "" && strings.Contains(normalized, k) {
				return tag, true
			}
		}
	}
	return "", false
}

// ShouldClassify reports whether a caller-supplied tag is eligible for
// automatic classification: empty or the default tag.
func ShouldClassify(supplied, defaultTag string) bool {
	supplied = strings.TrimSpace(supplied)
	return supplied == "" || supplied == defaultTag
}
