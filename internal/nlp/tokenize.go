package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const edgePunct = `,.;:!?()[]{}"'<>`

// Tokenize splits text on whitespace, then peels leading and trailing
// punctuation and English possessives off each chunk. Offsets are bytes.
func Tokenize(text string) []Token {
	var out []Token
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		j := i
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if unicode.IsSpace(r2) {
				break
			}
			j += s2
		}
		out = appendChunk(out, text, i, j)
		i = j
	}
	return out
}

func appendChunk(out []Token, text string, start, end int) []Token {
	var trailing []Token
	for start < end && strings.IndexByte(edgePunct, text[start]) >= 0 {
		out = append(out, punctToken(text, start, start+1))
		start++
	}
	for end > start && strings.IndexByte(edgePunct, text[end-1]) >= 0 {
		// keep possessive apostrophes attached to the suffix below
		if text[end-1] == '\'' && end-start > 1 && (text[end-2] == 's' || text[end-2] == 'S') {
			break
		}
		trailing = append(trailing, punctToken(text, end-1, end))
		end--
	}
	if start < end {
		word := text[start:end]
		lower := strings.ToLower(word)
		switch {
		case len(word) > 2 && (strings.HasSuffix(lower, "'s") || strings.HasSuffix(lower, "’s")):
			cut := end - 2
			if strings.HasSuffix(lower, "’s") {
				cut = end - len("’s")
			}
			out = append(out, wordToken(text, start, cut), Token{Text: text[cut:end], Lemma: "'s", Start: cut, End: end, IsStop: true})
		default:
			out = append(out, wordToken(text, start, end))
		}
	}
	for k := len(trailing) - 1; k >= 0; k-- {
		out = append(out, trailing[k])
	}
	return out
}

func punctToken(text string, start, end int) Token {
	return Token{Text: text[start:end], Lemma: text[start:end], Start: start, End: end, IsPunct: true}
}

func wordToken(text string, start, end int) Token {
	w := text[start:end]
	if lower := strings.ToLower(w); englishStopWords[lower] {
		return Token{Text: w, Lemma: lower, Start: start, End: end, IsStop: true}
	}
	return Token{Text: w, Lemma: Lemmatize(w), Start: start, End: end}
}

// Lemmatize lowercases w and strips common English inflections.
func Lemmatize(w string) string {
	l := strings.ToLower(w)
	n := len(l)
	switch {
	case n > 4 && strings.HasSuffix(l, "ies"):
		return l[:n-3] + "y"
	case n > 3 && strings.HasSuffix(l, "s") && !strings.HasSuffix(l, "ss") && !strings.HasSuffix(l, "us") && isAlpha(l):
		return l[:n-1]
	}
	return l
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// isTitle reports whether w starts with an upper-case letter followed by
// lower-case letters only.
func isTitle(w string) bool {
	r, size := utf8.DecodeRuneInString(w)
	if !unicode.IsUpper(r) {
		return false
	}
	rest := w[size:]
	if rest == "" {
		return false
	}
	for _, c := range rest {
		if !unicode.IsLower(c) && c != '-' {
			return false
		}
	}
	return true
}

var englishStopWords = func() map[string]bool {
	m := map[string]bool{}
	for _, w := range strings.Fields(`a an and are as at be by for from has he her his i in is it its
		me my of on or our she that the their them they this to was we were will with you your 's`) {
		m[w] = true
	}
	return m
}()
