// Package git reads scan inputs out of a git repository: staged blobs, lines
// added since a base ref and recent commit contents come from the git
// binary; checkout metadata is read with go-git.
package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Blob is one file's content as seen by git. Commit is empty for staged
// content and for diffs.
type Blob struct {
	Path   string
	Data   []byte
	Commit string
}

// Metadata identifies the checkout a scan ran against.
type Metadata struct {
	Repo   string `json:"repo,omitempty"`
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// validateRoot returns the cleaned absolute path of a directory.
func validateRoot(root string) (string, error) {
	if strings.ContainsRune(root, 0) {
		return "", fmt.Errorf("invalid path: contains null byte")
	}
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", root)
	}
	return abs, nil
}

func run(ctx context.Context, root string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", root}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

func lines(b []byte) []string {
	var out []string
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// RepoMetadata returns the origin, HEAD commit and branch of root, best
// effort. Fields are empty when the repository cannot answer. root may be any
// directory inside the work tree.
func RepoMetadata(_ context.Context, root string) Metadata {
	var md Metadata
	validRoot, err := validateRoot(root)
	if err != nil {
		return md
	}
	repo, err := gogit.PlainOpenWithOptions(validRoot, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return md
	}
	if remote, err := repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		md.Repo = repoSlug(remote.Config().URLs[0])
	}
	if head, err := repo.Head(); err == nil {
		md.Commit = head.Hash().String()
		if head.Name().IsBranch() {
			md.Branch = head.Name().Short()
		}
	}
	return md
}

// repoSlug reduces a remote URL to owner/name for GitHub remotes and to the
// path otherwise.
func repoSlug(url string) string {
	s := strings.TrimSuffix(strings.TrimSpace(url), ".git")
	if i := strings.Index(s, "github.com/"); i >= 0 {
		return s[i+len("github.com/"):]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimPrefix(s, "//")
}

// Staged returns the index version of every staged file. Deleted files are
// skipped.
func Staged(ctx context.Context, root string) ([]Blob, error) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}
	out, err := run(ctx, validRoot, "diff", "--name-only", "--cached", "--diff-filter=ACMR")
	if err != nil {
		return nil, err
	}
	var blobs []Blob
	for _, p := range lines(out) {
		b, err := run(ctx, validRoot, "show", ":"+p)
		if err != nil {
			continue
		}
		blobs = append(blobs, Blob{Path: p, Data: b})
	}
	return blobs, nil
}

// AddedSince returns, per changed file, only the lines added relative to
// base. Files whose diff adds nothing are omitted.
func AddedSince(ctx context.Context, root, base string) ([]Blob, error) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}
	out, err := run(ctx, validRoot, "diff", "--name-only", base)
	if err != nil {
		return nil, err
	}
	var blobs []Blob
	for _, p := range lines(out) {
		diff, err := run(ctx, validRoot, "diff", "--unified=0", base, "--", p)
		if err != nil {
			continue
		}
		if added := addedLines(diff); len(added) > 0 {
			blobs = append(blobs, Blob{Path: p, Data: added})
		}
	}
	return blobs, nil
}

// addedLines extracts '+' lines from a unified diff, without headers.
func addedLines(diff []byte) []byte {
	var buf bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(diff))
	sc.Buffer(make([]byte, 64*1024), 8<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") || strings.HasPrefix(line, "@@") {
			continue
		}
		if strings.HasPrefix(line, "+") {
			buf.WriteString(line[1:])
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// History returns the files touched by each of the last n commits on HEAD,
// at their committed versions, newest commit first.
func History(ctx context.Context, root string, n int) ([]Blob, error) {
	if n <= 0 {
		return nil, nil
	}
	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}
	out, err := run(ctx, validRoot, "rev-list", "--max-count", strconv.Itoa(n), "HEAD")
	if err != nil {
		return nil, err
	}
	var blobs []Blob
	for _, h := range lines(out) {
		files, err := run(ctx, validRoot, "show", h, "--name-only", "--pretty=", "--diff-filter=ACMR")
		if err != nil {
			continue
		}
		for _, p := range lines(files) {
			b, err := run(ctx, validRoot, "show", h+":"+p)
			if err != nil {
				continue
			}
			blobs = append(blobs, Blob{Path: p, Data: b, Commit: h})
		}
	}
	return blobs, nil
}
