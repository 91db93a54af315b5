package engine

import (
	"sort"

	"github.com/redactyl/piiscan/internal/recognizers"
	"github.com/redactyl/piiscan/internal/types"
)

func filterByScore(fs []types.Finding, min float64) []types.Finding {
	out := make([]types.Finding, 0, len(fs))
	for _, f := range fs {
		if f.Score >= min {
			out = append(out, f)
		}
	}
	return out
}

// redactExplanations clears explanations in place.
func redactExplanations(fs []types.Finding) {
	for i := range fs {
		fs[i].Explanation = nil
	}
}

func entityUnion(recs []recognizers.Recognizer) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range recs {
		for _, e := range r.SupportedEntities() {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
