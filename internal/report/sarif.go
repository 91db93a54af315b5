package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/redactyl/piiscan/internal/git"
	"github.com/redactyl/piiscan/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	VCS        []sarifVCS     `json:"versionControlProvenance,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string         `json:"ruleId"`
	RuleIndex  int            `json:"ruleIndex"`
	Level      string         `json:"level"`
	Message    sarifMessage   `json:"message"`
	Locations  []sarifLoc     `json:"locations"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

type sarifVCS struct {
	RepositoryURI string `json:"repositoryUri"`
	RevisionID    string `json:"revisionId,omitempty"`
	Branch        string `json:"branch,omitempty"`
}

// SARIFOptions adds run-level metadata to a SARIF document.
type SARIFOptions struct {
	ToolVersion string
	Repo        git.Metadata
	Properties  map[string]any
}

func scoreToLevel(score float64) string {
	switch Level(score) {
	case "high":
		return "error"
	case "medium":
		return "warning"
	}
	return "note"
}

// WriteSARIF writes findings as SARIF 2.1.0. Matched text is never
// included.
func WriteSARIF(w io.Writer, findings []types.FileFinding, opts SARIFOptions) error {
	ruleIndex := map[string]int{}
	var entities []string
	for _, f := range findings {
		if _, ok := ruleIndex[f.EntityType]; !ok {
			ruleIndex[f.EntityType] = 0
			entities = append(entities, f.EntityType)
		}
	}
	sort.Strings(entities)
	rules := make([]sarifRule, 0, len(entities))
	for i, e := range entities {
		ruleIndex[e] = i
		rules = append(rules, sarifRule{ID: e, ShortDescription: sarifMessage{Text: e + " detected"}})
	}

	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           "piiscan",
			Version:        opts.ToolVersion,
			InformationURI: "https://github.com/redactyl/piiscan",
			Rules:          rules,
		}},
		Results:    make([]sarifResult, 0, len(findings)),
		Properties: opts.Properties,
	}
	if opts.Repo.Repo != "" || opts.Repo.Commit != "" {
		run.VCS = []sarifVCS{{RepositoryURI: opts.Repo.Repo, RevisionID: opts.Repo.Commit, Branch: opts.Repo.Branch}}
	}
	for _, f := range findings {
		run.Results = append(run.Results, sarifResult{
			RuleID:    f.EntityType,
			RuleIndex: ruleIndex[f.EntityType],
			Level:     scoreToLevel(f.Score),
			Message:   sarifMessage{Text: fmt.Sprintf("%s detected by %s (score %.2f)", f.EntityType, f.Recognizer, f.Score)},
			Locations: []sarifLoc{{
				PhysicalLocation: sarifPhys{
					ArtifactLocation: sarifArt{URI: f.Path},
					Region:           sarifRegion{StartLine: f.Line, StartColumn: f.Column},
				},
			}},
			Properties: map[string]any{"score": f.Score, "recognizer": f.Recognizer},
		})
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	return WriteJSON(w, doc)
}
