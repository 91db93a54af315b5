package recognizers

import (
	"regexp"
	"sort"
	"strings"
)

// DenyListRecognizer reports whole-word, case-insensitive occurrences of a
// fixed list of terms.
type DenyListRecognizer struct {
	*PatternRecognizer
	Terms []string
}

// NewDenyList builds a deny-list recognizer. Longer terms win over their
// prefixes.
func NewDenyList(name, entity string, terms []string, score float64, context []string, languages ...string) *DenyListRecognizer {
	sorted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = regexp.QuoteMeta(t)
	}
	if score <= 0 {
		score = maxScore
	}
	p := NewPattern(name, entity, []Pattern{{Name: "deny_list", Regex: "(?:" + strings.Join(quoted, "|") + ")", Score: score}}, context, languages...)
	p.WholeWord = true
	return &DenyListRecognizer{PatternRecognizer: p, Terms: sorted}
}
