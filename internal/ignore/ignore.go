// Package ignore implements .piiscanignore matching: gitignore-like lines of
// doublestar globs, comments with '#', directory patterns with a trailing
// '/', anchoring with a leading '/' and negation with '!'.
package ignore

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the conventional ignore file at the scan root.
const FileName = ".piiscanignore"

type rule struct {
	glob     string
	negate   bool
	dirOnly  bool
	anchored bool
}

// Matcher reports whether a slash-separated relative path is ignored.
// The zero value ignores nothing.
type Matcher struct {
	rules []rule
}

// Load reads an ignore file. A missing file yields an empty matcher and the
// os error.
func Load(path string) (Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matcher{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ignore rules from r.
func Parse(r io.Reader) (Matcher, error) {
	var m Matcher
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ru rule
		if strings.HasPrefix(line, "!") {
			ru.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			ru.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			ru.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if strings.Contains(line, "/") {
			ru.anchored = true
		}
		if line == "" || !doublestar.ValidatePattern(line) {
			continue
		}
		ru.glob = line
		m.rules = append(m.rules, ru)
	}
	return m, sc.Err()
}

// Match applies the rules in order; the last matching rule wins.
func (m Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	parts := strings.Split(rel, "/")
	ignored := false
	for _, ru := range m.rules {
		if ru.matches(parts) {
			ignored = !ru.negate
		}
	}
	return ignored
}

func (ru rule) matches(parts []string) bool {
	// directories are every proper prefix; the full path may be a file
	last := len(parts)
	if ru.dirOnly {
		last--
	}
	for i := 1; i <= last; i++ {
		var candidate string
		if ru.anchored {
			candidate = strings.Join(parts[:i], "/")
		} else {
			candidate = parts[i-1]
		}
		if ok, _ := doublestar.Match(ru.glob, candidate); ok {
			return true
		}
	}
	return false
}
