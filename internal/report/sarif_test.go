package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/redactyl/piiscan/internal/git"
)

func TestWriteSARIF(t *testing.T) {
	var buf bytes.Buffer
	opts := SARIFOptions{
		ToolVersion: "1.2.3",
		Repo:        git.Metadata{Repo: "acme/app", Commit: "abc123", Branch: "main"},
		Properties:  map[string]any{"filesScanned": 3},
	}
	if err := WriteSARIF(&buf, sample(), opts); err != nil {
		t.Fatalf("WriteSARIF: %v", err)
	}
	if strings.Contains(buf.String(), "jane@example.com") {
		t.Fatalf("SARIF must not contain matched text")
	}
	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Properties map[string]any `json:"properties"`
			Tool       struct {
				Driver struct {
					Version string `json:"version"`
					Rules   []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				RuleIndex int    `json:"ruleIndex"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						Region struct {
							StartLine   int `json:"startLine"`
							StartColumn int `json:"startColumn"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
			VCS []struct {
				RevisionID string `json:"revisionId"`
			} `json:"versionControlProvenance"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v; body=%s", err, buf.String())
	}
	if doc.Version != "2.1.0" || len(doc.Runs) != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	run := doc.Runs[0]
	if len(run.Tool.Driver.Rules) != 3 || run.Tool.Driver.Version != "1.2.3" {
		t.Fatalf("unexpected driver: %+v", run.Tool.Driver)
	}
	for _, r := range run.Results {
		if run.Tool.Driver.Rules[r.RuleIndex].ID != r.RuleID {
			t.Fatalf("ruleIndex %d does not point at %s", r.RuleIndex, r.RuleID)
		}
	}
	if run.Results[0].Level != "error" || run.Results[2].Level != "note" {
		t.Fatalf("unexpected levels: %+v", run.Results)
	}
	if run.Results[0].Locations[0].PhysicalLocation.Region.StartLine != 4 {
		t.Fatalf("unexpected region: %+v", run.Results[0].Locations)
	}
	if len(run.VCS) != 1 || run.VCS[0].RevisionID != "abc123" {
		t.Fatalf("expected version control provenance, got %+v", run.VCS)
	}
	if run.Properties["filesScanned"].(float64) != 3 {
		t.Fatalf("expected run properties, got %+v", run.Properties)
	}
}
