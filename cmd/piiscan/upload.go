package piiscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redactyl/piiscan/internal/git"
	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/types"
)

const uploadSchemaVersion = "1"

// uploadFinding never carries the matched text.
type uploadFinding struct {
	Path       string  `json:"path"`
	Line       int     `json:"line"`
	Column     int     `json:"column"`
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score"`
	Recognizer string  `json:"recognizer,omitempty"`
	Key        string  `json:"key"`
}

type uploadEnvelope struct {
	Tool     string          `json:"tool"`
	Version  string          `json:"version"`
	Schema   string          `json:"schema_version"`
	Repo     string          `json:"repo,omitempty"`
	Commit   string          `json:"commit,omitempty"`
	Branch   string          `json:"branch,omitempty"`
	Findings []uploadFinding `json:"findings"`
}

func uploadFindings(ctx context.Context, rootPath, url, token string, noMeta bool, findings []types.FileFinding) error {
	if len(findings) == 0 {
		return nil
	}
	env := uploadEnvelope{Tool: "piiscan", Version: version, Schema: uploadSchemaVersion}
	for _, f := range findings {
		env.Findings = append(env.Findings, uploadFinding{
			Path:       f.Path,
			Line:       f.Line,
			Column:     f.Column,
			EntityType: f.EntityType,
			Score:      f.Score,
			Recognizer: f.Recognizer,
			Key:        report.Key(f),
		})
	}
	if !noMeta {
		md := git.RepoMetadata(ctx, rootPath)
		env.Repo, env.Commit, env.Branch = md.Repo, md.Commit, md.Branch
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload status %d", resp.StatusCode)
	}
	return nil
}
