package recognizers

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/redactyl/piiscan/internal/errs"
)

// Definition describes a user-supplied recognizer. Exactly one of Patterns or
// DenyList drives detection.
type Definition struct {
	Name          string    `yaml:"name" json:"name"`
	Entity        string    `yaml:"entity" json:"entity"`
	Languages     []string  `yaml:"languages,omitempty" json:"languages,omitempty"`
	Patterns      []Pattern `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Context       []string  `yaml:"context,omitempty" json:"context,omitempty"`
	DenyList      []string  `yaml:"deny_list,omitempty" json:"deny_list,omitempty"`
	Score         float64   `yaml:"score,omitempty" json:"score,omitempty"`
	CaseSensitive bool      `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

type definitionFile struct {
	Recognizers []Definition `yaml:"recognizers"`
}

// ParseDefinitions reads either a top-level `recognizers:` list or a bare
// YAML sequence of definitions.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var f definitionFile
	if err := yaml.Unmarshal(data, &f); err == nil && len(f.Recognizers) > 0 {
		return f.Recognizers, nil
	}
	var list []Definition
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse recognizer definitions: %w", err)
	}
	return list, nil
}

// Build validates d and returns the recognizer it describes.
func (d Definition) Build() (Recognizer, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, errs.Invalid("recognizers.name", "must not be empty")
	}
	entity := strings.TrimSpace(d.Entity)
	if entity == "" {
		return nil, errs.Invalid("recognizers."+name+".entity", "must not be empty")
	}
	switch {
	case len(d.Patterns) > 0 && len(d.DenyList) > 0:
		return nil, errs.Invalid("recognizers."+name, "patterns and deny_list are mutually exclusive")
	case len(d.DenyList) > 0:
		if d.Score < 0 || d.Score > 1 {
			return nil, errs.Invalid("recognizers."+name+".score", "%v outside [0,1]", d.Score)
		}
		return NewDenyList(name, entity, d.DenyList, d.Score, d.Context, d.Languages...), nil
	case len(d.Patterns) > 0:
		pats := append([]Pattern(nil), d.Patterns...)
		for i, p := range pats {
			if p.Name == "" {
				pats[i].Name = fmt.Sprintf("%s_%d", name, i+1)
			}
			if p.Score <= 0 || p.Score > 1 {
				return nil, errs.Invalid("recognizers."+name+".patterns.score", "%v outside (0,1]", p.Score)
			}
			if _, err := regexp.Compile(p.Regex); err != nil || p.Regex == "" {
				return nil, errs.Invalid("recognizers."+name+".patterns.regex", "%q does not compile", p.Regex)
			}
		}
		p := NewPattern(name, entity, pats, d.Context, d.Languages...)
		p.CaseSensitive = d.CaseSensitive
		return p, nil
	}
	return nil, errs.Invalid("recognizers."+name, "needs patterns or deny_list")
}

// BuildAll builds every definition, stopping at the first error.
func BuildAll(defs []Definition) ([]Recognizer, error) {
	out := make([]Recognizer, 0, len(defs))
	for _, d := range defs {
		r, err := d.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
