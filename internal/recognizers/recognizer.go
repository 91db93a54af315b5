package recognizers

import (
	"context"

	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/types"
)

// Recognizer is the capability every detector exposes to the analyzer.
// Load is idempotent and is called once before the first Analyze.
// Implementations must be safe for concurrent Analyze calls after Load.
type Recognizer interface {
	Name() string
	SupportedEntities() []string
	SupportedLanguages() []string
	Load(ctx context.Context) error
	Analyze(ctx context.Context, text string, entities []string, art *nlp.Artifacts) ([]types.Finding, error)
}

// Base carries the identity and declared capabilities shared by all variants.
type Base struct {
	ID        string
	Entities  []string
	Languages []string
}

func (b *Base) Name() string { return b.ID }

func (b *Base) SupportedEntities() []string { return append([]string(nil), b.Entities...) }

func (b *Base) SupportedLanguages() []string {
	if len(b.Languages) == 0 {
		return []string{"en"}
	}
	return append([]string(nil), b.Languages...)
}

// Supports reports whether r declares lang.
func Supports(r Recognizer, lang string) bool {
	return contains(r.SupportedLanguages(), lang)
}

// Serves reports whether r declares at least one of entities.
func Serves(r Recognizer, entities []string) bool {
	for _, e := range r.SupportedEntities() {
		if contains(entities, e) {
			return true
		}
	}
	return false
}

// wanted reports whether entity is requested. An empty request means all.
func wanted(entities []string, entity string) bool {
	return len(entities) == 0 || contains(entities, entity)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func normalizeLanguages(langs []string) []string {
	var out []string
	for _, l := range langs {
		if n := nlp.NormalizeLanguage(l); n != "" && !contains(out, n) {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		out = []string{"en"}
	}
	return out
}
