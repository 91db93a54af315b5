package batch

import (
	"bytes"
	"context"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/redactyl/piiscan/internal/ignore"
)

// IgnoreDirective in the first bytes of a file excludes it from scanning.
const IgnoreDirective = "piiscan:ignore-file"

const directiveWindow = 4096

// Walk traverses cfg.Root and calls handle for each eligible text file with
// its slash-separated relative path and content. It stops when ctx is done.
func Walk(ctx context.Context, cfg Config, ign ignore.Matcher, handle func(rel string, data []byte) error) error {
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
		}
		rel, rerr := filepath.Rel(cfg.Root, p)
		if rerr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !eligible(rel, cfg, ign) {
			return nil
		}
		if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if skipContent(rel, b) {
			return nil
		}
		return handle(rel, b)
	})
}

// eligible applies the path-only filters shared by every input source.
func eligible(rel string, cfg Config, ign ignore.Matcher) bool {
	if stateFiles[baseName(rel)] || !allowedByGlobs(rel, cfg) || ign.Match(rel) {
		return false
	}
	if cfg.DefaultExcludes && isDefaultFileExcluded(rel) {
		return false
	}
	return true
}

// skipContent reports whether data is empty, binary or opted out.
func skipContent(rel string, b []byte) bool {
	if len(bytes.TrimSpace(b)) == 0 {
		return true
	}
	head := b
	if len(head) > directiveWindow {
		head = head[:directiveWindow]
	}
	if bytes.Contains(head, []byte(IgnoreDirective)) {
		return true
	}
	return looksBinary(b) || looksNonTextMIME(rel, b)
}

func looksBinary(b []byte) bool {
	const sniff = 800
	n := sniff
	if len(b) < n {
		n = len(b)
	}
	return bytes.IndexByte(b[:n], 0) >= 0
}

// looksNonTextMIME skips clearly non-text content by extension and by a
// few well-known magic numbers.
func looksNonTextMIME(path string, b []byte) bool {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
			return true
		}
		if strings.Contains(ct, "zip") || strings.Contains(ct, "tar") || strings.Contains(ct, "gzip") {
			return true
		}
	}
	if len(b) >= 8 && string(b[:8]) == "\x89PNG\r\n\x1a\n" {
		return true
	}
	if len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4 {
		return true
	}
	return len(b) >= 4 && string(b[:4]) == "%PDF"
}

// CountTargets returns how many inputs Scan would analyze for cfg, without
// reading working-tree file contents.
func CountTargets(ctx context.Context, cfg Config) (int, error) {
	ign, _ := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	if cfg.fromGit() {
		blobs, err := gitInputs(ctx, cfg)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, b := range blobs {
			if eligible(b.Path, cfg, ign) && withinLimit(cfg, len(b.Data)) {
				n++
			}
		}
		return n, nil
	}
	count := 0
	err := filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, rerr := filepath.Rel(cfg.Root, p)
		if rerr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !eligible(rel, cfg, ign) {
			return nil
		}
		if info, _ := d.Info(); info != nil && !withinLimit(cfg, int(info.Size())) {
			return nil
		}
		count++
		return nil
	})
	return count, err
}

func withinLimit(cfg Config, n int) bool {
	return cfg.MaxBytes <= 0 || int64(n) <= cfg.MaxBytes
}
