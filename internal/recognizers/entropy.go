package recognizers

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/types"
)

var reMaybeSecret = regexp.MustCompile(`[A-Za-z0-9+/=_-]{20,}`) // broad token-ish
var reSecretContext = regexp.MustCompile(`(?i)(secret|token|password|passwd|api[_-]?key|authorization|bearer|aws)`)

// EntropyRecognizer reports high-entropy tokens on lines that mention a
// secret-like keyword.
type EntropyRecognizer struct {
	Base
	MinEntropy float64
	MaxLen     int
	Score      float64
}

// NewEntropy returns the SECRET recognizer.
func NewEntropy(languages ...string) *EntropyRecognizer {
	return &EntropyRecognizer{
		Base:       Base{ID: "entropy_secret", Entities: []string{"SECRET"}, Languages: normalizeLanguages(languages)},
		MinEntropy: 4.0,
		MaxLen:     200,
		Score:      0.6,
	}
}

func (e *EntropyRecognizer) Load(context.Context) error { return nil }

// Analyze implements Recognizer.
func (e *EntropyRecognizer) Analyze(ctx context.Context, text string, entities []string, _ *nlp.Artifacts) ([]types.Finding, error) {
	if !wanted(entities, "SECRET") {
		return nil, nil
	}
	var out []types.Finding
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if reSecretContext.MatchString(line) {
			for _, m := range reMaybeSecret.FindAllStringIndex(line, -1) {
				tok := line[m[0]:m[1]]
				if h := entropy(tok); h >= e.MinEntropy && len(tok) <= e.MaxLen {
					out = append(out, types.Finding{
						EntityType: "SECRET", Start: offset + m[0], End: offset + m[1], Score: e.Score, Recognizer: e.ID,
						Explanation: &types.Explanation{
							Recognizer: e.ID, OriginalScore: e.Score, Score: e.Score,
							Textual: "High-entropy token near a secret keyword",
						},
					})
				}
			}
		}
		offset += len(line)
	}
	return out, nil
}

func entropy(s string) float64 {
	if s == "" {
		return 0
	}
	count := map[rune]int{}
	for _, r := range s {
		count[r]++
	}
	H := 0.0
	n := float64(len(s))
	for _, c := range count {
		p := float64(c) / n
		H += -p * math.Log2(p)
	}
	return H
}
