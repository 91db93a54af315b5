package recognizers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/types"
)

// Context enhancement parameters.
const (
	ContextWindow         = 5
	ContextBoost          = 0.35
	MinScoreWithContext   = 0.4
	defaultPatternFlags   = "(?i)"
	maxScore, minScore    = 1.0, 0.0
	textualPatternMessage = "Identified as %s by %s using pattern %s"
)

// Verdict is the outcome of a validator.
type Verdict int

const (
	// Unknown leaves the pattern score unchanged.
	Unknown Verdict = iota
	Valid
	Invalid
)

// Pattern is a named regular expression with a base score.
type Pattern struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// PatternRecognizer reports regex matches of one entity type. A Valid
// verdict raises the score to 1, Invalid or a true Invalidate drops it to 0
// and the match is discarded. Context words found near the match among the
// artifact lemmas raise the score.
type PatternRecognizer struct {
	Base
	Entity        string
	Patterns      []Pattern
	Context       []string
	Validate      func(match string) Verdict
	Invalidate    func(match string) bool
	CaseSensitive bool
	WholeWord     bool

	mu       sync.Mutex
	loaded   bool
	compiled []*regexp.Regexp
}

// NewPattern builds a PatternRecognizer for entity.
func NewPattern(name, entity string, patterns []Pattern, context []string, languages ...string) *PatternRecognizer {
	return &PatternRecognizer{
		Base:     Base{ID: name, Entities: []string{entity}, Languages: normalizeLanguages(languages)},
		Entity:   entity,
		Patterns: patterns,
		Context:  context,
	}
}

// Load compiles the patterns. A compile error is returned without keeping
// any state, so a later Load retries.
func (p *PatternRecognizer) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}
	flags := defaultPatternFlags
	if p.CaseSensitive {
		flags = ""
	}
	compiled := make([]*regexp.Regexp, 0, len(p.Patterns))
	for _, pat := range p.Patterns {
		re, err := regexp.Compile(flags + pat.Regex)
		if err != nil {
			return fmt.Errorf("pattern %s: %w", pat.Name, err)
		}
		compiled = append(compiled, re)
	}
	p.compiled = compiled
	p.loaded = true
	return nil
}

// Analyze implements Recognizer.
func (p *PatternRecognizer) Analyze(ctx context.Context, text string, entities []string, art *nlp.Artifacts) ([]types.Finding, error) {
	if !wanted(entities, p.Entity) {
		return nil, nil
	}
	if err := p.Load(ctx); err != nil {
		return nil, err
	}
	var out []types.Finding
	for i, re := range p.compiled {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pat := p.Patterns[i]
		for _, m := range re.FindAllStringIndex(text, -1) {
			if m[0] == m[1] || (p.WholeWord && !atWordBoundary(text, m[0], m[1])) {
				continue
			}
			if f, ok := p.score(text, m[0], m[1], pat, art); ok {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (p *PatternRecognizer) score(text string, start, end int, pat Pattern, art *nlp.Artifacts) (types.Finding, bool) {
	match := text[start:end]
	expl := &types.Explanation{
		Recognizer:    p.ID,
		PatternName:   pat.Name,
		Pattern:       pat.Regex,
		OriginalScore: pat.Score,
		Textual:       fmt.Sprintf(textualPatternMessage, p.Entity, p.ID, pat.Name),
	}
	score := pat.Score
	if p.Validate != nil {
		switch p.Validate(match) {
		case Valid:
			score = maxScore
			expl.ValidationResult = boolPtr(true)
		case Invalid:
			score = minScore
			expl.ValidationResult = boolPtr(false)
		}
	}
	if p.Invalidate != nil && p.Invalidate(match) {
		score = minScore
	}
	if score <= minScore {
		return types.Finding{}, false
	}
	if word := p.supportiveWord(art, start, end); word != "" && score < maxScore {
		boosted := score + ContextBoost
		if boosted < MinScoreWithContext {
			boosted = MinScoreWithContext
		}
		if boosted > maxScore {
			boosted = maxScore
		}
		expl.SupportiveContextWord = word
		expl.ScoreContextImprovement = boosted - score
		score = boosted
	}
	expl.Score = score
	return types.Finding{EntityType: p.Entity, Start: start, End: end, Score: score, Recognizer: p.ID, Explanation: expl}, true
}

// supportiveWord returns the first context word found among the lemmas of the
// tokens preceding or inside the match.
func (p *PatternRecognizer) supportiveWord(art *nlp.Artifacts, start, end int) string {
	if len(p.Context) == 0 || art == nil {
		return ""
	}
	toks := append(art.TokensBefore(start, ContextWindow), art.TokensWithin(start, end)...)
	for _, t := range toks {
		lemma, lower := t.Lemma, strings.ToLower(t.Text)
		for _, w := range p.Context {
			w = strings.ToLower(w)
			if w == lemma || w == lower {
				return w
			}
		}
	}
	return ""
}

func atWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func boolPtr(b bool) *bool { return &b }
