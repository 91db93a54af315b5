package cache

import (
	"encoding/json"
	"os"
	"time"

	"github.com/redactyl/piiscan/internal/types"
)

// ScanResults stores the findings and metadata from a scan.
type ScanResults struct {
	Findings  []types.FileFinding `json:"findings"`
	Timestamp time.Time           `json:"timestamp"`
	Root      string              `json:"root"`
	Count     int                 `json:"count"`
	Files     int                 `json:"files"`
}

func resultsPath(root string) string {
	return stateFile(root, "piiscan_last_scan.json", ".piiscan_last_scan.json")
}

// SaveResults records the outcome of the latest scan of root.
func SaveResults(root string, findings []types.FileFinding, files int) error {
	results := ScanResults{
		Findings:  findings,
		Timestamp: time.Now().UTC(),
		Root:      root,
		Count:     len(findings),
		Files:     files,
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(root), b, 0644)
}

// LoadResults loads the last scan results of root.
func LoadResults(root string) (ScanResults, error) {
	var results ScanResults
	b, err := os.ReadFile(resultsPath(root))
	if err != nil {
		return results, err
	}
	if err := json.Unmarshal(b, &results); err != nil {
		return results, err
	}
	return results, nil
}
