package batch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redactyl/piiscan/internal/ignore"
)

// ArchiveLimits bounds the work spent inside one archive. Zero fields are
// unlimited.
type ArchiveLimits struct {
	MaxBytes   int64
	MaxEntries int
	MaxDepth   int
	TimeBudget time.Duration
}

// DefaultArchiveLimits are used by the CLI.
func DefaultArchiveLimits() ArchiveLimits {
	return ArchiveLimits{MaxBytes: 32 << 20, MaxEntries: 1000, MaxDepth: 2, TimeBudget: 10 * time.Second}
}

// EntrySeparator joins an archive path and the entry path inside it.
const EntrySeparator = "::"

var errBudget = errors.New("archive budget exceeded")

// archiveReader walks one top-level archive, including nested archives up
// to MaxDepth, and emits text entries. Budgets are shared across nesting.
type archiveReader struct {
	limits   ArchiveLimits
	deadline time.Time
	read     int64
	entries  int
	emit     func(path string, data []byte) error
}

// ScanArchives finds zip, tar, tar.gz and gz files under cfg.Root and emits
// the text entries they contain, without extracting to disk.
func ScanArchives(ctx context.Context, cfg Config, ign ignore.Matcher, emit func(path string, data []byte) error) error {
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
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
		if !isArchivePath(rel) || !allowedByGlobs(rel, cfg) || ign.Match(rel) {
			return nil
		}
		ar := &archiveReader{limits: cfg.ArchiveLimits, emit: emit}
		if cfg.ArchiveLimits.TimeBudget > 0 {
			ar.deadline = time.Now().Add(cfg.ArchiveLimits.TimeBudget)
		}
		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer f.Close()
		if err := ar.open(rel, rel, f, 0); err != nil && !errors.Is(err, errBudget) {
			return err
		}
		return nil
	})
}

func isArchivePath(p string) bool {
	lower := strings.ToLower(p)
	for _, s := range []string{".zip", ".tar", ".tgz", ".gz"} {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// open dispatches on name's extension. r must be an io.ReaderAt with a
// known size for zip; nested archives arrive as *bytes.Reader.
func (ar *archiveReader) open(chain, name string, r io.Reader, depth int) error {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		ra, size, ok := sizedReader(r)
		if !ok {
			return nil
		}
		zr, err := zip.NewReader(ra, size)
		if err != nil {
			return nil
		}
		return ar.zip(chain, zr, depth)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil
		}
		defer gz.Close()
		return ar.tar(chain, tar.NewReader(gz), depth)
	case strings.HasSuffix(lower, ".tar"):
		return ar.tar(chain, tar.NewReader(r), depth)
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil
		}
		defer gz.Close()
		inner := gz.Name
		if inner == "" {
			inner = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		}
		b, err := ar.readAll(gz)
		if err != nil {
			return err
		}
		return ar.entry(chain, inner, b, depth)
	}
	return nil
}

func sizedReader(r io.Reader) (io.ReaderAt, int64, bool) {
	switch v := r.(type) {
	case *os.File:
		fi, err := v.Stat()
		if err != nil {
			return nil, 0, false
		}
		return v, fi.Size(), true
	case *bytes.Reader:
		return v, v.Size(), true
	}
	return nil, 0, false
}

func (ar *archiveReader) zip(chain string, zr *zip.Reader, depth int) error {
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		b, err := ar.readAll(rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
		if err := ar.entry(chain, f.Name, b, depth); err != nil {
			return err
		}
	}
	return nil
}

func (ar *archiveReader) tar(chain string, tr *tar.Reader, depth int) error {
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) || hdr == nil {
			return nil
		}
		if err != nil {
			return nil
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		b, err := ar.readAll(tr)
		if err != nil {
			return err
		}
		if err := ar.entry(chain, hdr.Name, b, depth); err != nil {
			return err
		}
	}
}

// entry emits a text entry or descends into a nested archive.
func (ar *archiveReader) entry(chain, name string, b []byte, depth int) error {
	vp := chain + EntrySeparator + name
	if isArchivePath(name) {
		if ar.limits.MaxDepth > 0 && depth+1 > ar.limits.MaxDepth {
			return nil
		}
		return ar.open(vp, name, bytes.NewReader(b), depth+1)
	}
	if skipContent(name, b) {
		return nil
	}
	if ar.limits.MaxEntries > 0 && ar.entries >= ar.limits.MaxEntries {
		return errBudget
	}
	ar.entries++
	return ar.emit(vp, b)
}

// readAll reads r within the remaining byte and time budget. A truncated
// entry is an exhausted budget.
func (ar *archiveReader) readAll(r io.Reader) ([]byte, error) {
	if !ar.deadline.IsZero() && time.Now().After(ar.deadline) {
		return nil, errBudget
	}
	remain := int64(1 << 62)
	if ar.limits.MaxBytes > 0 {
		remain = ar.limits.MaxBytes - ar.read
		if remain <= 0 {
			return nil, errBudget
		}
	}
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, remain)
	ar.read += n
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	if err == nil && n == remain {
		return nil, errBudget
	}
	return buf.Bytes(), nil
}
