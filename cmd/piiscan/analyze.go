package piiscan

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/git"
	"github.com/redactyl/piiscan/internal/logging"
	"github.com/redactyl/piiscan/internal/report"
	"github.com/redactyl/piiscan/internal/types"
)

var (
	flagFile           string
	flagEntities       string
	flagScoreThreshold float64
	flagCorrelationID  string
	flagTrace          bool
	flagNoExplanation  bool
	flagShowMatch      bool
	flagText           bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Analyze one text for PII",
		Long:  "Analyze text given as arguments, read from --file, or piped on stdin.",
		Example: `  piiscan analyze "John's SSN is 078-05-1120"
  echo "mail jane@example.com" | piiscan analyze --json
  piiscan analyze --file notes.txt --entities EMAIL_ADDRESS,PHONE_NUMBER`,
		RunE: runAnalyze,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagFile, "file", "f", "", "read text from this file")
	cmd.Flags().BoolVar(&flagShowMatch, "show-match", false, "print matched text unmasked")
	cmd.Flags().BoolVar(&flagText, "text", false, "output one line per finding instead of a table")
	addAnalysisFlags(cmd)
}

// addAnalysisFlags registers the per-request flags shared by analyze, redact
// and scan.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagEntities, "entities", "", "only report these entity types (comma-separated)")
	cmd.Flags().Float64Var(&flagScoreThreshold, "score-threshold", 0, "drop findings scoring below this value (0-1)")
	cmd.Flags().StringVar(&flagCorrelationID, "correlation-id", "", "id attached to logs and trace events")
	cmd.Flags().BoolVar(&flagTrace, "trace", false, "record the decision process to the trace sink")
	cmd.Flags().BoolVar(&flagNoExplanation, "no-explanation", false, "omit analysis explanations from JSON output")
}

// readInput returns the text to analyze and a display name for it.
func readInput(cmd *cobra.Command, args []string) (string, string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), "<args>", nil
	case flagFile != "":
		b, err := os.ReadFile(flagFile)
		if err != nil {
			return "", "", err
		}
		return string(b), flagFile, nil
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), "<stdin>", nil
	}
}

// analysisRequest builds the request template shared by analyze, redact and
// scan from the command's flags and the loaded configuration.
func analysisRequest(cmd *cobra.Command) engine.Request {
	return engine.Request{
		Language:           flagLanguage,
		Entities:           pickList(flagEntities, fileCfg.Entities),
		CorrelationID:      flagCorrelationID,
		ScoreThreshold:     pickFloat(flagScoreThreshold, cmd.Flags().Changed("score-threshold"), fileCfg.ScoreThreshold),
		Trace:              flagTrace,
		RedactExplanations: flagNoExplanation,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, name, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(fileCfg)
	if err != nil {
		return err
	}
	req := analysisRequest(cmd)
	req.Text = text
	ctx := cmd.Context()
	if req.CorrelationID != "" {
		ctx = logging.WithCorrelationID(ctx, req.CorrelationID)
	}
	findings, err := rt.analyzer.Analyze(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case flagJSON:
		return report.WriteFindings(out, findings)
	case flagSARIF:
		return report.WriteSARIF(out, types.Locate(name, text, findings), report.SARIFOptions{
			ToolVersion: version,
			Repo:        git.RepoMetadata(ctx, "."),
		})
	case flagText:
		report.PrintText(out, types.Locate(name, text, findings), report.PrintOptions{
			NoColor:   !colorEnabled(),
			ShowMatch: flagShowMatch,
		})
		return nil
	default:
		return report.PrintFindings(out, text, findings, report.PrintOptions{ShowMatch: flagShowMatch})
	}
}

func colorEnabled() bool {
	return report.ColorEnabled(os.Stdout, pickBool(flagNoColor, rootCmd.PersistentFlags().Changed("no-color"), fileCfg.NoColor))
}
