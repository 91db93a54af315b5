package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redactyl/piiscan/internal/types"
)

func f(entity string, start, end int, score float64, rec string) types.Finding {
	return types.Finding{EntityType: entity, Start: start, End: end, Score: score, Recognizer: rec}
}

func TestDuplicates(t *testing.T) {
	tests := []struct {
		name       string
		a, b       types.Finding
		minOverlap float64
		want       bool
	}{
		{"identical", f("X", 0, 5, 1, ""), f("X", 0, 5, 1, ""), 1, true},
		{"contained", f("X", 0, 10, 1, ""), f("X", 2, 4, 1, ""), 1, true},
		{"contains", f("X", 2, 4, 1, ""), f("X", 0, 10, 1, ""), 1, true},
		{"partial strict", f("X", 0, 6, 1, ""), f("X", 4, 10, 1, ""), 1, false},
		{"partial loose enough", f("X", 0, 6, 1, ""), f("X", 3, 9, 1, ""), 0.5, true},
		{"partial loose short", f("X", 0, 6, 1, ""), f("X", 5, 11, 1, ""), 0.5, false},
		{"adjacent", f("X", 0, 5, 1, ""), f("X", 5, 10, 1, ""), 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, duplicates(tt.a, tt.b, tt.minOverlap))
		})
	}
}

func TestDeduplicatePriority(t *testing.T) {
	rank := map[string]int{"a": 0, "b": 1}
	in := []types.Finding{
		f("X", 0, 5, 0.5, "b"),
		f("X", 0, 5, 0.5, "a"),  // same score, earlier recognizer
		f("X", 10, 20, 0.5, "a"),
		f("X", 10, 15, 0.5, "a"), // contained, shorter
		f("Y", 0, 5, 0.2, "b"),
		f("X", 30, 35, 0, "a"),
	}
	out := deduplicate(in, rank, 1)
	assert.Equal(t, []types.Finding{
		f("X", 0, 5, 0.5, "a"),
		f("X", 10, 20, 0.5, "a"),
		f("Y", 0, 5, 0.2, "b"),
	}, out)
}

func TestDeduplicateEmpty(t *testing.T) {
	out := deduplicate(nil, nil, 1)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
