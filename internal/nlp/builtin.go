package nlp

import (
	"context"
	"regexp"
	"strings"

	"github.com/redactyl/piiscan/internal/errs"
)

// Builtin is a dependency-free engine: a whitespace/punctuation tokenizer
// plus a rule-based tagger for PERSON and DATE_TIME.
type Builtin struct {
	languages []string
}

// NewBuiltin returns an engine serving the given languages ("en" if none).
func NewBuiltin(languages ...string) *Builtin {
	var langs []string
	for _, l := range languages {
		if n := NormalizeLanguage(l); n != "" && !containsLanguage(langs, n) {
			langs = append(langs, n)
		}
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return &Builtin{languages: langs}
}

// SupportedLanguages implements Engine.
func (b *Builtin) SupportedLanguages() []string {
	return append([]string(nil), b.languages...)
}

// Process implements Engine.
func (b *Builtin) Process(ctx context.Context, text, language string) (*Artifacts, error) {
	lang := NormalizeLanguage(language)
	if !containsLanguage(b.languages, lang) {
		return nil, errs.Unsupported(language)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	toks := Tokenize(text)
	art := &Artifacts{Language: lang, Engine: "builtin", Tokens: toks}
	art.Entities = append(art.Entities, tagPersons(text, toks)...)
	art.Entities = append(art.Entities, tagDates(text)...)
	return art, nil
}

var honorifics = map[string]bool{"mr": true, "mrs": true, "ms": true, "miss": true, "dr": true, "prof": true, "sir": true}

var firstNames = func() map[string]bool {
	m := map[string]bool{}
	for _, n := range strings.Fields(`james john robert michael william david richard joseph thomas charles
		christopher daniel matthew anthony mark paul steven andrew joshua kevin brian george edward
		mary patricia jennifer linda elizabeth barbara susan jessica sarah karen nancy lisa betty
		margaret sandra ashley emily donna michelle carol amanda melissa deborah laura rebecca maria
		anna emma olivia sophia alice bob carlos juan ana luis pedro hans anna`) {
		m[n] = true
	}
	return m
}()

// tagPersons marks runs of title-case words that start with a known first
// name or follow an honorific.
func tagPersons(text string, toks []Token) []Entity {
	var out []Entity
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		start := -1
		switch {
		case honorifics[strings.TrimSuffix(strings.ToLower(t.Text), ".")] && i+1 < len(toks):
			j := i + 1
			if toks[j].Text == "." {
				j++
			}
			if j < len(toks) && isTitle(toks[j].Text) {
				start = j
			}
		case isTitle(t.Text) && firstNames[strings.ToLower(t.Text)]:
			start = i
		}
		if start < 0 {
			continue
		}
		end := start
		for end+1 < len(toks) && isTitle(toks[end+1].Text) && !toks[end+1].IsStop {
			end++
		}
		e := Entity{Label: "PERSON", Start: toks[start].Start, End: toks[end].End}
		e.Text = text[e.Start:e.End]
		out = append(out, e)
		i = end
	}
	return out
}

var dateRes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.? \d{1,2}(?:st|nd|rd|th)?(?:,? \d{4})?\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)? (?:of )?(?:january|february|march|april|may|june|july|august|september|october|november|december)(?:,? \d{4})?\b`),
}

func tagDates(text string) []Entity {
	var out []Entity
	for _, re := range dateRes {
		for _, m := range re.FindAllStringIndex(text, -1) {
			out = append(out, Entity{Label: "DATE_TIME", Start: m[0], End: m[1], Text: text[m[0]:m[1]]})
		}
	}
	return out
}
