// Package nlp provides the linguistic analysis consumed by recognizers: a
// single pass over the text yields tokens, lemmas and named entities that all
// recognizers of one request share read-only.
package nlp

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/text/language"
)

// Token is one word or punctuation mark with byte offsets into the text.
type Token struct {
	Text    string `json:"text"`
	Lemma   string `json:"lemma"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	IsStop  bool   `json:"is_stop,omitempty"`
	IsPunct bool   `json:"is_punct,omitempty"`
}

// Entity is a named-entity span tagged by the engine.
type Entity struct {
	Label string  `json:"label"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

// Artifacts is the immutable result of one Process call.
type Artifacts struct {
	Language string   `json:"language"`
	Engine   string   `json:"engine"`
	Tokens   []Token  `json:"tokens"`
	Entities []Entity `json:"entities"`
}

// Engine turns raw text into Artifacts.
type Engine interface {
	Process(ctx context.Context, text, language string) (*Artifacts, error)
	SupportedLanguages() []string
}

// JSON serializes the artifacts for tracing.
func (a *Artifacts) JSON() string {
	if a == nil {
		return "null"
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// TokensBefore returns up to n non-punctuation tokens that end at or before offset.
func (a *Artifacts) TokensBefore(offset, n int) []Token {
	if a == nil || n <= 0 {
		return nil
	}
	var out []Token
	for i := len(a.Tokens) - 1; i >= 0 && len(out) < n; i-- {
		t := a.Tokens[i]
		if t.End > offset || t.IsPunct {
			continue
		}
		out = append(out, t)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// TokensWithin returns tokens overlapping [start, end).
func (a *Artifacts) TokensWithin(start, end int) []Token {
	if a == nil {
		return nil
	}
	var out []Token
	for _, t := range a.Tokens {
		if t.Start < end && t.End > start {
			out = append(out, t)
		}
	}
	return out
}

// EntitiesByLabel returns entities whose label is in labels.
func (a *Artifacts) EntitiesByLabel(labels ...string) []Entity {
	if a == nil {
		return nil
	}
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}
	var out []Entity
	for _, e := range a.Entities {
		if want[e.Label] {
			out = append(out, e)
		}
	}
	return out
}

// NormalizeLanguage maps a language tag such as "EN" or "en-US" to its base
// code ("en"). Unknown but well-formed codes are lowercased and returned as-is
// so the caller can report them as unsupported.
func NormalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	tag, err := language.Parse(s)
	if err != nil {
		return strings.ToLower(s)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return strings.ToLower(s)
	}
	return base.String()
}

func containsLanguage(langs []string, lang string) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}
