package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/redactyl/piiscan/internal/report"
)

// MarshalFindings writes findings in the same JSON shape as
// `piiscan analyze --json`: an indented array, [] when empty.
func MarshalFindings(w io.Writer, findings []Finding) error {
	return report.WriteFindings(w, findings)
}

// MarshalFileFindings is MarshalFindings for scan results, matching
// `piiscan scan --json`.
func MarshalFileFindings(w io.Writer, findings []FileFinding) error {
	return report.WriteFindings(w, findings)
}

// UnmarshalFindings decodes the output of MarshalFindings or of
// `piiscan analyze --json`. A null document decodes to an empty slice.
func UnmarshalFindings(r io.Reader) ([]Finding, error) {
	fs := []Finding{}
	if err := json.NewDecoder(r).Decode(&fs); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	if fs == nil {
		fs = []Finding{}
	}
	return fs, nil
}
