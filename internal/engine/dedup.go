package engine

import (
	"sort"

	"github.com/redactyl/piiscan/internal/types"
)

type candidate struct {
	f    types.Finding
	rank int // catalog position of the producing recognizer
	idx  int // emission order
}

// deduplicate keeps one finding per group of same-type duplicates. Findings
// are visited from highest to lowest priority and dropped when they
// duplicate one already kept. Priority: score, then recognizer rank, then
// earlier start, then longer span, then emission order. Zero-score findings
// are dropped. The result is in priority order.
func deduplicate(fs []types.Finding, rank map[string]int, minOverlap float64) []types.Finding {
	cands := make([]candidate, 0, len(fs))
	for i, f := range fs {
		if f.Score <= 0 {
			continue
		}
		r, ok := rank[f.Recognizer]
		if !ok {
			r = len(rank)
		}
		cands = append(cands, candidate{f: f, rank: r, idx: i})
	}
	sort.SliceStable(cands, func(i, j int) bool { return higher(cands[i], cands[j]) })

	kept := make([]types.Finding, 0, len(cands))
	for _, c := range cands {
		dup := false
		for _, k := range kept {
			if k.EntityType == c.f.EntityType && duplicates(k, c.f, minOverlap) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c.f)
		}
	}
	return kept
}

func higher(a, b candidate) bool {
	switch {
	case a.f.Score != b.f.Score:
		return a.f.Score > b.f.Score
	case a.rank != b.rank:
		return a.rank < b.rank
	case a.f.Start != b.f.Start:
		return a.f.Start < b.f.Start
	case a.f.Len() != b.f.Len():
		return a.f.Len() > b.f.Len()
	}
	return a.idx < b.idx
}

// duplicates reports whether one span contains the other, or, with
// minOverlap < 1, whether they share at least that fraction of the shorter
// span.
func duplicates(a, b types.Finding, minOverlap float64) bool {
	if a.ContainedIn(b) || b.ContainedIn(a) {
		return true
	}
	if minOverlap >= 1 {
		return false
	}
	ov := a.Overlap(b)
	if ov == 0 {
		return false
	}
	shorter := a.Len()
	if b.Len() < shorter {
		shorter = b.Len()
	}
	return float64(ov) >= minOverlap*float64(shorter)
}
