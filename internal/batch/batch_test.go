package batch

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/ignore"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/registry"
	"github.com/redactyl/piiscan/internal/types"
)

const marker = "jane@example.com"

// fakeAnalyzer reports every occurrence of marker as an EMAIL_ADDRESS.
type fakeAnalyzer struct {
	calls atomic.Int32
	fail  string
	lang  error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req engine.Request) ([]types.Finding, error) {
	f.calls.Add(1)
	if f.lang != nil {
		return nil, f.lang
	}
	if f.fail != "" && strings.Contains(req.Text, f.fail) {
		return nil, &errs.RecognizerError{Recognizer: "fake", Op: "analyze", Err: errors.New("boom")}
	}
	var out []types.Finding
	for off := 0; ; {
		i := strings.Index(req.Text[off:], marker)
		if i < 0 {
			return out, nil
		}
		start := off + i
		out = append(out, types.Finding{EntityType: "EMAIL_ADDRESS", Start: start, End: start + len(marker), Score: 1, Recognizer: "fake"})
		off = start + len(marker)
	}
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func TestWalk_WithIncludeExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.txt":      "hello",
		"pkg/b.go":   "package main\n",
		"docs/c.md":  "doc",
		"empty.txt":  "  \n",
		"skip.txt":   "# piiscan:ignore-file\n" + marker,
		"binary.dat": "ab\x00cd",
	})
	collect := func(cfg Config) []string {
		var got []string
		require.NoError(t, Walk(context.Background(), cfg, ignore.Matcher{}, func(p string, _ []byte) error {
			got = append(got, p)
			return nil
		}))
		return got
	}

	got := collect(Config{Root: dir, IncludeGlobs: "**/*.go", MaxBytes: 1 << 20})
	assert.Equal(t, []string{"pkg/b.go"}, got)

	got = collect(Config{Root: dir, ExcludeGlobs: "**/*.md", MaxBytes: 1 << 20})
	assert.ElementsMatch(t, []string{"a.txt", "pkg/b.go"}, got)

	got = collect(Config{Root: dir, MaxBytes: 2})
	assert.Empty(t, got)
}

func TestCountTargets_IgnoreFileAndMaxBytes(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.txt":                 "ok",
		"ignored.txt":           "secret",
		"node_modules/dep/x.js": "x",
		ignore.FileName:         "ignored.txt\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.bin"), make([]byte, 2048), 0644))

	n, err := CountTargets(context.Background(), Config{Root: dir, MaxBytes: 1024, DefaultExcludes: true})
	require.NoError(t, err)
	// a.txt and the ignore file itself
	assert.Equal(t, 2, n)
}

func TestScanLocatesFindingsAndUsesCache(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.txt":     "owner\nmail " + marker + "\n",
		"sub/b.txt": marker,
		"c.txt":     "nothing here",
	})
	fa := &fakeAnalyzer{}
	cfg := Config{Root: dir, Workers: 2, MaxBytes: 1 << 20}

	res, err := Scan(context.Background(), fa, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, res.FilesScanned)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, "a.txt", res.Findings[0].Path)
	assert.Equal(t, 2, res.Findings[0].Line)
	assert.Equal(t, 6, res.Findings[0].Column)
	assert.Equal(t, marker, res.Findings[0].Match)
	assert.Equal(t, "sub/b.txt", res.Findings[1].Path)

	// unchanged tree is served from the cache
	res2, err := Scan(context.Background(), fa, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res2.FilesScanned)
	assert.Equal(t, 3, res2.FilesCached)
	assert.Equal(t, res.Findings, res2.Findings)

	// content change re-analyzes only that file
	writeTree(t, dir, map[string]string{"c.txt": "now " + marker})
	res3, err := Scan(context.Background(), fa, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res3.FilesScanned)
	assert.Len(t, res3.Findings, 3)

	// different settings invalidate the cache
	cfg.Fingerprint = "other"
	res4, err := Scan(context.Background(), fa, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, res4.FilesScanned)
}

func TestScanCollectsFileErrors(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"ok.txt":  marker,
		"bad.txt": "FAIL " + marker,
	})
	res, err := Scan(context.Background(), &fakeAnalyzer{fail: "FAIL"}, Config{Root: dir, NoCache: true})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "bad.txt", res.Errors[0].Path)
	assert.ErrorIs(t, res.Errors[0], errs.ErrRecognizerFailure)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "ok.txt", res.Findings[0].Path)
}

func TestScanAbortsOnUnsupportedLanguage(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "x", "b.txt": "y"})
	_, err := Scan(context.Background(), &fakeAnalyzer{lang: errs.Unsupported("xx")}, Config{Root: dir, NoCache: true})
	assert.ErrorIs(t, err, errs.ErrUnsupportedLanguage)
}

func TestScanArchives(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "bundle.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("notes/contact.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("reach " + marker))
	require.NoError(t, err)
	w, err = zw.Create("logo.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("\x89PNG\r\n\x1a\nxxxx"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	res, err := Scan(context.Background(), &fakeAnalyzer{}, Config{Root: dir, NoCache: true, Archives: true, ArchiveLimits: DefaultArchiveLimits()})
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "bundle.zip"+EntrySeparator+"notes/contact.txt", res.Findings[0].Path)

	// an exhausted byte budget stops the archive without failing the scan
	res, err = Scan(context.Background(), &fakeAnalyzer{}, Config{Root: dir, NoCache: true, Archives: true, ArchiveLimits: ArchiveLimits{MaxBytes: 4}})
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
}

func TestScanWithAnalyzer(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"config.txt": "contact: jane.doe@example.com\n"})

	a, err := engine.New(engine.DefaultConfig(), nlp.NewBuiltin(), registry.NewDefault())
	require.NoError(t, err)
	res, err := Scan(context.Background(), a, Config{Root: dir, Workers: 2, MaxBytes: 1 << 20, NoCache: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Findings)
	assert.Equal(t, "EMAIL_ADDRESS", res.Findings[0].EntityType)
	assert.Equal(t, "config.txt", res.Findings[0].Path)
	assert.Equal(t, 10, res.Findings[0].Column)
}

func TestScanStaged(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, string(out))
		}
	}
	run("init", ".")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "tester")
	writeTree(t, dir, map[string]string{"keep.go": "// " + marker + "\n", "skip.txt": marker, "untracked.txt": marker})
	run("add", "keep.go", "skip.txt")

	cfg := Config{Root: dir, Staged: true, IncludeGlobs: "**/*.go", MaxBytes: 1 << 20}
	n, err := CountTargets(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := Scan(context.Background(), &fakeAnalyzer{}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "keep.go", res.Findings[0].Path)
}

func TestAllowedByGlobs(t *testing.T) {
	cfg := Config{IncludeGlobs: "src/**, *.env", ExcludeGlobs: "**/testdata/**"}
	assert.True(t, allowedByGlobs("src/a/b.txt", cfg))
	assert.True(t, allowedByGlobs("deploy/prod.env", cfg))
	assert.False(t, allowedByGlobs("docs/readme.md", cfg))
	assert.False(t, allowedByGlobs("src/testdata/x.txt", cfg))
}
