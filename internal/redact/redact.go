// Package redact anonymizes text using analyzer findings and rewrites files
// in place.
package redact

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	"github.com/redactyl/piiscan/internal/types"
)

// Operator selects how a span is anonymized.
type Operator string

const (
	OpReplace Operator = "replace"
	OpMask    Operator = "mask"
	OpHash    Operator = "hash"
	OpRemove  Operator = "remove"
)

// ParseOperator validates an operator name.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(strings.ToLower(strings.TrimSpace(s))); op {
	case OpReplace, OpMask, OpHash, OpRemove:
		return op, nil
	case "":
		return OpReplace, nil
	}
	return "", fmt.Errorf("unknown operator %q (want replace, mask, hash or remove)", s)
}

// Options configures Anonymize.
type Options struct {
	Operator Operator
	// NewValue replaces spans for OpReplace; empty means "<ENTITY_TYPE>".
	NewValue string
	// MaskChar and CharsToMask configure OpMask; CharsToMask <= 0 masks the
	// whole span. FromEnd masks the trailing characters instead.
	MaskChar    rune
	CharsToMask int
	FromEnd     bool
	// Salt is mixed into OpHash digests.
	Salt string
}

// Item describes one anonymized span in the output text.
type Item struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	EntityType string   `json:"entity_type"`
	Operator   Operator `json:"operator"`
	Text       string   `json:"text"`
}

// Anonymize replaces every finding span in text. Overlapping findings are
// resolved first by position: spans are ordered by start, then longer first,
// then higher score. A span contained in an earlier one is dropped, even when
// it scores higher, and a partial overlap is trimmed to start where the
// earlier span ends.
func Anonymize(text string, fs []types.Finding, opts Options) (string, []Item, error) {
	if opts.Operator == "" {
		opts.Operator = OpReplace
	}
	if opts.MaskChar == 0 {
		opts.MaskChar = '*'
	}
	spans := resolveConflicts(fs, len(text))

	var b strings.Builder
	items := make([]Item, 0, len(spans))
	last := 0
	for _, f := range spans {
		b.WriteString(text[last:f.Start])
		repl, err := apply(text[f.Start:f.End], f.EntityType, opts)
		if err != nil {
			return "", nil, err
		}
		start := b.Len()
		b.WriteString(repl)
		items = append(items, Item{Start: start, End: b.Len(), EntityType: f.EntityType, Operator: opts.Operator, Text: repl})
		last = f.End
	}
	b.WriteString(text[last:])
	return b.String(), items, nil
}

func apply(value, entity string, opts Options) (string, error) {
	switch opts.Operator {
	case OpReplace:
		if opts.NewValue != "" {
			return opts.NewValue, nil
		}
		return "<" + entity + ">", nil
	case OpMask:
		return Mask(value, opts.MaskChar, opts.CharsToMask, opts.FromEnd), nil
	case OpHash:
		return Hash(value, opts.Salt), nil
	case OpRemove:
		return "", nil
	}
	return "", fmt.Errorf("unknown operator %q", opts.Operator)
}

// Mask replaces n runes of s with c, from the start or the end. n <= 0 masks
// every rune.
func Mask(s string, c rune, n int, fromEnd bool) string {
	total := utf8.RuneCountInString(s)
	if n <= 0 || n > total {
		n = total
	}
	var b strings.Builder
	i := 0
	for _, r := range s {
		masked := i < n
		if fromEnd {
			masked = i >= total-n
		}
		if masked {
			b.WriteRune(c)
		} else {
			b.WriteRune(r)
		}
		i++
	}
	return b.String()
}

// Hash returns the hex BLAKE3-256 digest of salt+s.
func Hash(s, salt string) string {
	sum := blake3.Sum256([]byte(salt + s))
	return hex.EncodeToString(sum[:])
}

// MaskValue shortens s for display, keeping two runes on each side.
func MaskValue(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= 6 {
		return strings.Repeat("*", n)
	}
	return firstRunes(s, 2) + strings.Repeat("*", n-4) + lastRunes(s, 2)
}

func firstRunes(s string, n int) string {
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx]
		}
		i++
	}
	return s
}

func lastRunes(s string, n int) string {
	i := 0
	for idx := len(s); idx > 0; {
		_, size := utf8.DecodeLastRuneInString(s[:idx])
		idx -= size
		i++
		if i == n {
			return s[idx:]
		}
	}
	return s
}

// resolveConflicts returns non-overlapping spans sorted by start.
func resolveConflicts(fs []types.Finding, textLen int) []types.Finding {
	var valid []types.Finding
	for _, f := range fs {
		if f.Start >= 0 && f.End <= textLen && f.Start < f.End {
			valid = append(valid, f)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i], valid[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		return a.Score > b.Score
	})
	var out []types.Finding
	for _, f := range valid {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if f.End <= prev.End {
				continue
			}
			if f.Start < prev.End {
				f.Start = prev.End
			}
		}
		out = append(out, f)
	}
	return out
}
