// Package batch runs the analyzer over many inputs: the files of a working
// tree, staged blobs, lines added since a base ref or recent commits. Work
// is spread over a bounded worker pool and unchanged files are served from
// the incremental cache.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/redactyl/piiscan/internal/cache"
	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/git"
	"github.com/redactyl/piiscan/internal/ignore"
	"github.com/redactyl/piiscan/internal/logging"
	"github.com/redactyl/piiscan/internal/types"
)

// Analyzer is the part of the orchestrator Scan needs.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.Request) ([]types.Finding, error)
}

// Config controls scope, performance and filters of a batch scan.
type Config struct {
	Root            string
	IncludeGlobs    string
	ExcludeGlobs    string
	MaxBytes        int64
	Workers         int
	DefaultExcludes bool
	NoCache         bool

	// Git sources replace the working tree walk when set.
	Staged         bool
	BaseBranch     string
	HistoryCommits int

	// Archives also scans text entries inside zip and tar archives.
	Archives      bool
	ArchiveLimits ArchiveLimits

	// Request is the template for every analysis call; Text is filled in
	// per file.
	Request engine.Request
	// Fingerprint identifies recognizer and engine settings for the cache.
	Fingerprint string

	Progress func()
}

func (c Config) fromGit() bool {
	return c.Staged || c.BaseBranch != "" || c.HistoryCommits > 0
}

// FileError records an input that could not be analyzed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Result contains findings and scan statistics.
type Result struct {
	Findings     []types.FileFinding
	FilesScanned int
	FilesCached  int
	Errors       []FileError
	Duration     time.Duration
}

type job struct {
	path string
	text string
	hash string
}

// Scan analyzes every eligible input under cfg. Per-file analysis failures
// are collected in Result.Errors; an unsupported language or a cancelled
// context aborts the scan.
func Scan(ctx context.Context, a Analyzer, cfg Config) (Result, error) {
	var res Result
	started := time.Now()
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	log := logging.FromContext(ctx).With("root", cfg.Root)

	fingerprint := cache.Fingerprint(cfg.Fingerprint, cfg.Request.Language,
		strings.Join(cfg.Request.Entities, ","), thresholdKey(cfg.Request.ScoreThreshold),
		strconv.FormatBool(cfg.Request.RedactExplanations))
	useCache := !cfg.NoCache && !cfg.fromGit()
	db := cache.DB{Entries: map[string]cache.Entry{}}
	if useCache {
		db, _ = cache.Load(cfg.Root)
	}
	updated := cache.DB{Fingerprint: fingerprint, Entries: map[string]cache.Entry{}}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	submit := func(j job) error {
		if useCache {
			if fs, ok := db.Lookup(fingerprint, j.path, j.hash); ok {
				mu.Lock()
				res.Findings = append(res.Findings, fs...)
				res.FilesCached++
				updated.Entries[j.path] = cache.Entry{Hash: j.hash, Findings: fs}
				mu.Unlock()
				return nil
			}
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			req := cfg.Request
			req.Text = j.text
			fs, err := a.Analyze(gctx, req)
			mu.Lock()
			defer mu.Unlock()
			res.FilesScanned++
			if cfg.Progress != nil {
				cfg.Progress()
			}
			if err != nil {
				if errors.Is(err, errs.ErrUnsupportedLanguage) || gctx.Err() != nil {
					return err
				}
				res.Errors = append(res.Errors, FileError{Path: j.path, Err: err})
				log.Warn("analysis failed", "path", j.path, "err", err)
				return nil
			}
			located := types.Locate(j.path, j.text, fs)
			res.Findings = append(res.Findings, located...)
			if useCache {
				updated.Entries[j.path] = cache.Entry{Hash: j.hash, Findings: located}
			}
			return nil
		})
		return nil
	}

	ign, _ := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	var produceErr error
	if cfg.fromGit() {
		produceErr = scanGit(gctx, cfg, ign, submit)
	} else {
		produceErr = Walk(gctx, cfg, ign, func(rel string, data []byte) error {
			return submit(job{path: rel, text: string(data), hash: cache.HashContent(data)})
		})
	}
	if produceErr == nil && cfg.Archives {
		produceErr = ScanArchives(gctx, cfg, ign, func(p string, data []byte) error {
			return submit(job{path: p, text: string(data), hash: cache.HashContent(data)})
		})
	}
	waitErr := g.Wait()
	if waitErr != nil {
		return res, waitErr
	}
	if produceErr != nil {
		return res, produceErr
	}

	sortFindings(res.Findings)
	res.Duration = time.Since(started)
	if useCache {
		if err := cache.Save(cfg.Root, updated); err != nil {
			log.Debug("cache not saved", "err", err)
		}
	}
	log.Debug("scan complete", "files", res.FilesScanned, "cached", res.FilesCached, "findings", len(res.Findings))
	return res, nil
}

func scanGit(ctx context.Context, cfg Config, ign ignore.Matcher, submit func(job) error) error {
	blobs, err := gitInputs(ctx, cfg)
	if err != nil {
		return err
	}
	for _, b := range blobs {
		if !eligible(b.Path, cfg, ign) || !withinLimit(cfg, len(b.Data)) || skipContent(b.Path, b.Data) {
			continue
		}
		p := b.Path
		if b.Commit != "" {
			p = fmt.Sprintf("%s@%.7s", b.Path, b.Commit)
		}
		if err := submit(job{path: p, text: string(b.Data)}); err != nil {
			return err
		}
	}
	return nil
}

func gitInputs(ctx context.Context, cfg Config) ([]git.Blob, error) {
	switch {
	case cfg.HistoryCommits > 0:
		return git.History(ctx, cfg.Root, cfg.HistoryCommits)
	case cfg.BaseBranch != "":
		return git.AddedSince(ctx, cfg.Root, cfg.BaseBranch)
	default:
		return git.Staged(ctx, cfg.Root)
	}
}

func thresholdKey(t *float64) string {
	if t == nil {
		return ""
	}
	return strconv.FormatFloat(*t, 'f', -1, 64)
}

func sortFindings(fs []types.FileFinding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.EntityType < b.EntityType
	})
}
