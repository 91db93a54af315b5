// Package files edits the ignore files piiscan maintains in a repository.
package files

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// AppendIgnore ensures pattern is a line of the ignore file name (for
// example .gitignore) at root. It creates the file if missing and adds a
// separating newline when the file does not end with one. Idempotent.
func AppendIgnore(root, name, pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	path := filepath.Join(root, name)
	existing := map[string]bool{}
	needsNewline := false
	if b, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		needsNewline = len(b) > 0 && b[len(b)-1] != '\n'
	}
	if existing[pattern] {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if needsNewline {
		pattern = "\n" + pattern
	}
	_, err = f.WriteString(pattern + "\n")
	return err
}

// DefaultStateIgnores lists the files piiscan writes next to the scanned
// tree that should stay out of version control. The baseline is meant to be
// committed and is not included.
func DefaultStateIgnores() []string {
	return []string{
		".piiscancache.json",
		".piiscan_last_scan.json",
		".piiscan_audit.jsonl",
		".piiscan/",
	}
}
