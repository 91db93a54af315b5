package recognizers

import (
	"context"
	"fmt"

	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/types"
)

// DefaultNERScore is assigned to engine entities that carry no score.
const DefaultNERScore = 0.85

// nerLabels maps engine labels to entity types.
var nerLabels = map[string]string{
	"PERSON":       "PERSON",
	"PER":          "PERSON",
	"LOCATION":     "LOCATION",
	"LOC":          "LOCATION",
	"GPE":          "LOCATION",
	"DATE_TIME":    "DATE_TIME",
	"DATE":         "DATE_TIME",
	"TIME":         "DATE_TIME",
	"NRP":          "NRP",
	"NORP":         "NRP",
	"ORGANIZATION": "ORGANIZATION",
	"ORG":          "ORGANIZATION",
}

// NERRecognizer turns the named entities already present in the artifacts
// into findings. It never runs a model of its own.
type NERRecognizer struct {
	Base
	Score float64
}

// NewNER returns the recognizer for PERSON, LOCATION, DATE_TIME, NRP and ORGANIZATION.
func NewNER(languages ...string) *NERRecognizer {
	return &NERRecognizer{
		Base: Base{
			ID:        "ner",
			Entities:  []string{"PERSON", "LOCATION", "DATE_TIME", "NRP", "ORGANIZATION"},
			Languages: normalizeLanguages(languages),
		},
		Score: DefaultNERScore,
	}
}

func (n *NERRecognizer) Load(context.Context) error { return nil }

// Analyze implements Recognizer.
func (n *NERRecognizer) Analyze(ctx context.Context, text string, entities []string, art *nlp.Artifacts) ([]types.Finding, error) {
	if art == nil {
		return nil, nil
	}
	var out []types.Finding
	for _, e := range art.Entities {
		entity, ok := nerLabels[e.Label]
		if !ok || !wanted(entities, entity) {
			continue
		}
		if e.Start < 0 || e.End > len(text) || e.Start >= e.End {
			return nil, fmt.Errorf("entity %s span [%d,%d) outside text", e.Label, e.Start, e.End)
		}
		score := n.Score
		if e.Score > 0 {
			score = e.Score
		}
		out = append(out, types.Finding{
			EntityType: entity, Start: e.Start, End: e.End, Score: score, Recognizer: n.ID,
			Explanation: &types.Explanation{
				Recognizer:    n.ID,
				OriginalScore: score,
				Score:         score,
				Textual:       fmt.Sprintf("Identified as %s by the %s NLP engine", entity, art.Engine),
			},
		})
	}
	return out, nil
}
