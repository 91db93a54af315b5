// Package cache persists per-file scan state between runs so unchanged files
// are not re-analyzed, plus the results of the most recent scan.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/redactyl/piiscan/internal/types"
)

// Entry is the cached state of one file.
type Entry struct {
	// Hash is the xxhash of the file content.
	Hash     string              `json:"hash"`
	Findings []types.FileFinding `json:"findings,omitempty"`
}

// DB maps repo-relative paths to cached entries. Entries are only valid for
// the analyzer settings that produced them, identified by Fingerprint.
type DB struct {
	Fingerprint string           `json:"fingerprint"`
	Entries     map[string]Entry `json:"entries"`
}

// Path returns where the cache for root lives. It prefers .git so the file
// is never committed by accident.
func Path(root string) string {
	return stateFile(root, "piiscan-cache.json", ".piiscancache.json")
}

func stateFile(root, inGit, inRoot string) string {
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, inGit)
	}
	return filepath.Join(root, inRoot)
}

// Load reads the cache for root. On any error an empty DB is returned
// together with the error.
func Load(root string) (DB, error) {
	db := DB{Entries: map[string]Entry{}}
	b, err := os.ReadFile(Path(root))
	if err != nil {
		return db, err
	}
	if err := json.Unmarshal(b, &db); err != nil {
		return DB{Entries: map[string]Entry{}}, err
	}
	if db.Entries == nil {
		db.Entries = map[string]Entry{}
	}
	return db, nil
}

// Save writes db for root.
func Save(root string, db DB) error {
	if db.Entries == nil {
		return errors.New("empty cache")
	}
	b, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(Path(root), b, 0644)
}

// Lookup returns the cached findings for path when its content hash and the
// settings fingerprint both match.
func (db DB) Lookup(fingerprint, path, hash string) ([]types.FileFinding, bool) {
	if db.Fingerprint != fingerprint {
		return nil, false
	}
	e, ok := db.Entries[path]
	if !ok || e.Hash != hash {
		return nil, false
	}
	return e.Findings, true
}

// HashContent returns the hex xxhash of b.
func HashContent(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	return strconv.FormatUint(xxhash.Sum64(b), 16)
}

// Fingerprint identifies the analyzer settings a cache was built with.
// Changing any part invalidates every entry.
func Fingerprint(parts ...string) string {
	return HashContent([]byte(strings.Join(parts, "\x00")))
}
