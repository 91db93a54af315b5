// Package report renders findings for people and machines: colored text,
// tables, JSON and SARIF, plus baselines and the CI fail threshold.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/redactyl/piiscan/internal/recognizers"
	"github.com/redactyl/piiscan/internal/redact"
	"github.com/redactyl/piiscan/internal/types"
)

// PrintOptions controls human-readable output.
type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
	FilesCached  int
	// ShowMatch prints matched text unmasked.
	ShowMatch bool
}

var (
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	entityStyle = lipgloss.NewStyle().Bold(true)
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Level buckets a score for display and SARIF severity.
func Level(score float64) string {
	switch {
	case score >= 0.85:
		return "high"
	case score >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// ColorEnabled reports whether colored output should be written to f.
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func styleScore(score float64, color bool) string {
	s := strconv.FormatFloat(score, 'f', 2, 64)
	if !color {
		return s
	}
	switch Level(score) {
	case "high":
		return highStyle.Render(s)
	case "medium":
		return mediumStyle.Render(s)
	}
	return lowStyle.Render(s)
}

func render(st lipgloss.Style, s string, color bool) string {
	if !color {
		return s
	}
	return st.Render(s)
}

func display(match string, show bool) string {
	if show {
		return match
	}
	return redact.MaskValue(match)
}

// SortFindings orders file findings by path, line and column.
func SortFindings(fs []types.FileFinding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// PrintText writes one line per finding followed by a summary footer.
func PrintText(w io.Writer, findings []types.FileFinding, opts PrintOptions) {
	color := !opts.NoColor
	SortFindings(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No PII found ✅")
	} else {
		width := 8
		for _, f := range findings {
			if l := len(f.EntityType); l > width {
				width = l
			}
		}
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			entity := fmt.Sprintf("%-*s", width, f.EntityType)
			loc := fmt.Sprintf("%s:%d:%d", f.Path, f.Line, f.Column)
			fmt.Fprintf(w, "%s  %s  %s  %s\n",
				styleScore(f.Score, color),
				render(entityStyle, entity, color),
				render(pathStyle, loc, color),
				display(f.Match, opts.ShowMatch))
		}
	}
	printFooter(w, findings, opts)
}

// PrintTable writes findings as a bordered table followed by the footer.
func PrintTable(w io.Writer, findings []types.FileFinding, opts PrintOptions) error {
	SortFindings(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No PII found ✅")
		printFooter(w, findings, opts)
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("SCORE", "ENTITY", "LOCATION", "RECOGNIZER", "MATCH")
	for _, f := range findings {
		if err := table.Append([]string{
			strconv.FormatFloat(f.Score, 'f', 2, 64),
			f.EntityType,
			fmt.Sprintf("%s:%d:%d", f.Path, f.Line, f.Column),
			f.Recognizer,
			display(f.Match, opts.ShowMatch),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	printFooter(w, findings, opts)
	return nil
}

func printFooter(w io.Writer, findings []types.FileFinding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.FilesScanned <= 0 && opts.FilesCached <= 0 {
		return
	}
	counts := map[string]int{}
	for _, f := range findings {
		counts[Level(f.Score)]++
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (high: %d, medium: %d, low: %d)\n", len(findings), counts["high"], counts["medium"], counts["low"])
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.FilesScanned > 0 || opts.FilesCached > 0 {
		fmt.Fprintf(w, "Files scanned: %d (cached: %d)\n", opts.FilesScanned, opts.FilesCached)
	}
}

// PrintFindings writes the findings of a single text analysis as a table.
func PrintFindings(w io.Writer, text string, findings []types.Finding, opts PrintOptions) error {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No PII found ✅")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("ENTITY", "START", "END", "SCORE", "RECOGNIZER", "TEXT")
	for _, f := range findings {
		if err := table.Append([]string{
			f.EntityType,
			strconv.Itoa(f.Start),
			strconv.Itoa(f.End),
			strconv.FormatFloat(f.Score, 'f', 2, 64),
			f.Recognizer,
			display(f.Text(text), opts.ShowMatch),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintRecognizers lists recognizers with their capabilities.
func PrintRecognizers(w io.Writer, recs []recognizers.Recognizer) error {
	table := tablewriter.NewWriter(w)
	table.Header("NAME", "ENTITIES", "LANGUAGES")
	for _, r := range recs {
		if err := table.Append([]string{
			r.Name(),
			strings.Join(r.SupportedEntities(), ", "),
			strings.Join(r.SupportedLanguages(), ", "),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteFindings writes findings as an indented JSON array. No findings is
// written as [] rather than null.
func WriteFindings[T any](w io.Writer, findings []T) error {
	if findings == nil {
		findings = []T{}
	}
	return WriteJSON(w, findings)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
