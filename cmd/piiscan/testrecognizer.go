package piiscan

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/recognizers"
	"github.com/redactyl/piiscan/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "test-recognizer <name>",
		Short: "Run a single recognizer against provided text (stdin)",
		Long: "Run one recognizer, without deduplication or score filtering, against text read from stdin. " +
			"Use 'piiscan recognizers' to list names.",
		Args: cobra.ExactArgs(1),
		RunE: runTestRecognizer,
	}
	rootCmd.AddCommand(cmd)
}

func runTestRecognizer(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(fileCfg)
	if err != nil {
		return err
	}
	rec, ok := rt.registry.Get(args[0])
	if !ok {
		var names []string
		for _, r := range rt.registry.All() {
			names = append(names, r.Name())
		}
		return fmt.Errorf("unknown recognizer %q (available: %s)", args[0], strings.Join(names, ", "))
	}
	lang := rt.cfg.DefaultLanguage
	if flagLanguage != "" {
		lang = nlp.NormalizeLanguage(flagLanguage)
	}
	if !recognizers.Supports(rec, lang) {
		return errs.Unsupported(lang)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}
	text := string(data)

	ctx := cmd.Context()
	if err := rt.registry.EnsureLoaded(ctx, rec); err != nil {
		return err
	}
	art, err := rt.nlp.Process(ctx, text, lang)
	if err != nil {
		return err
	}
	fs, err := rec.Analyze(ctx, text, rec.SupportedEntities(), art)
	if err != nil {
		return &errs.RecognizerError{Recognizer: rec.Name(), Op: "analyze", Err: err}
	}
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].Start < fs[j].Start })
	if flagJSON {
		return report.WriteJSON(cmd.OutOrStdout(), fs)
	}
	return report.PrintFindings(cmd.OutOrStdout(), text, fs, report.PrintOptions{ShowMatch: true})
}
