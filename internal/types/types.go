package types

// Explanation records why a recognizer produced a finding. It is purely
// informational and never takes part in merging or filtering.
type Explanation struct {
	Recognizer              string  `json:"recognizer"`
	PatternName             string  `json:"pattern_name,omitempty"`
	Pattern                 string  `json:"pattern,omitempty"`
	OriginalScore           float64 `json:"original_score"`
	Score                   float64 `json:"score"`
	Textual                 string  `json:"textual_explanation,omitempty"`
	SupportiveContextWord   string  `json:"supportive_context_word,omitempty"`
	ScoreContextImprovement float64 `json:"score_context_improvement,omitempty"`
	ValidationResult        *bool   `json:"validation_result,omitempty"`
}

// Finding is one detected entity occurrence: the half-open byte span
// [Start, End) of the analyzed text, its entity type and a confidence in [0,1].
type Finding struct {
	EntityType  string       `json:"entity_type"`
	Start       int          `json:"start"`
	End         int          `json:"end"`
	Score       float64      `json:"score"`
	Recognizer  string       `json:"recognizer,omitempty"`
	Explanation *Explanation `json:"analysis_explanation,omitempty"`
}

// Len returns the span length in bytes.
func (f Finding) Len() int { return f.End - f.Start }

// SameSpan reports whether f and o cover exactly the same offsets.
func (f Finding) SameSpan(o Finding) bool {
	return f.Start == o.Start && f.End == o.End
}

// ContainedIn reports whether f lies entirely within o.
func (f Finding) ContainedIn(o Finding) bool {
	return o.Start <= f.Start && f.End <= o.End
}

// Overlap returns the number of bytes shared by f and o.
func (f Finding) Overlap(o Finding) int {
	lo, hi := f.Start, f.End
	if o.Start > lo {
		lo = o.Start
	}
	if o.End < hi {
		hi = o.End
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Text returns the matched substring of text, or "" if the span is out of range.
func (f Finding) Text(text string) string {
	if f.Start < 0 || f.End > len(text) || f.Start >= f.End {
		return ""
	}
	return text[f.Start:f.End]
}

// FileFinding locates a Finding inside a scanned file. Line and Column are
// 1-based; Column counts runes.
type FileFinding struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Match  string `json:"match,omitempty"`
	Finding
}

// Locate converts findings on text into FileFindings for path. Match holds
// the raw matched text; callers mask it before display.
func Locate(path, text string, fs []Finding) []FileFinding {
	out := make([]FileFinding, 0, len(fs))
	for _, f := range fs {
		line, col := position(text, f.Start)
		out = append(out, FileFinding{Path: path, Line: line, Column: col, Match: f.Text(text), Finding: f})
	}
	return out
}

func position(text string, offset int) (line, col int) {
	if offset > len(text) {
		offset = len(text)
	}
	line, col = 1, 1
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
