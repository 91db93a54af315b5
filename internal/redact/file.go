package redact

import (
	"fmt"
	"os"
	"path/filepath"
)

// Rewriter maps file contents to their redacted form.
type Rewriter func(text string) (string, error)

// WouldChange reports whether rewrite would modify the file at path.
func WouldChange(path string, rewrite Rewriter) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	out, err := rewrite(string(b))
	if err != nil {
		return false, err
	}
	return out != string(b), nil
}

// Apply rewrites the file at path atomically, keeping its permissions.
// It returns false without touching the file when nothing changes.
func Apply(path string, rewrite Rewriter) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	out, err := rewrite(string(b))
	if err != nil {
		return false, err
	}
	if out == string(b) {
		return false, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".piiscan-redact-*")
	if err != nil {
		return false, fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(out); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("replace %s: %w", path, err)
	}
	return true, nil
}
