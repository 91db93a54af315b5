package report

import (
	"encoding/json"
	"os"
	"strconv"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/redactyl/piiscan/internal/types"
)

// DefaultBaselinePath is where `piiscan baseline update` writes.
const DefaultBaselinePath = ".piiscan-baseline.json"

// Baseline is a set of accepted findings. Keys never contain matched text,
// only its hash.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

// LoadBaseline reads a baseline. A missing or unreadable file yields an
// empty baseline and the error.
func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return Baseline{Items: map[string]bool{}}, err
	}
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

// SaveBaseline records findings as accepted.
func SaveBaseline(path string, findings []types.FileFinding) error {
	b := Baseline{Items: map[string]bool{}}
	for _, f := range findings {
		b.Items[Key(f)] = true
	}
	return b.Save(path)
}

// Save writes the baseline to path.
func (b Baseline) Save(path string) error {
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// FilterNewFindings drops findings present in base.
func FilterNewFindings(findings []types.FileFinding, base Baseline) []types.FileFinding {
	var out []types.FileFinding
	for _, f := range findings {
		if !base.Items[Key(f)] {
			out = append(out, f)
		}
	}
	return out
}

// Key identifies a finding independently of its position in the file, so
// unrelated edits do not invalidate the baseline.
func Key(f types.FileFinding) string {
	return f.Path + "|" + f.EntityType + "|" + strconv.FormatUint(xxhash.Sum64String(f.Match), 16)
}

// ShouldFail reports whether any finding reaches minScore. minScore <= 0
// disables failing.
func ShouldFail(findings []types.FileFinding, minScore float64) bool {
	if minScore <= 0 {
		return false
	}
	for _, f := range findings {
		if f.Score >= minScore {
			return true
		}
	}
	return false
}
