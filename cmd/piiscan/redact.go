package piiscan

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/redact"
	"github.com/redactyl/piiscan/internal/report"
)

var (
	flagOperator    string
	flagNewValue    string
	flagMaskChar    string
	flagCharsToMask int
	flagFromEnd     bool
	flagSalt        string
	flagWrite       bool
	flagDryRun      bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "redact [text...]",
		Short: "Anonymize PII in text or a file",
		Example: `  piiscan redact "call 212-555-0199"
  piiscan redact --operator mask --chars-to-mask 4 --from-end < export.csv
  piiscan redact --file notes.txt --operator hash --write`,
		RunE: runRedact,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagFile, "file", "f", "", "read text from this file")
	cmd.Flags().StringVar(&flagOperator, "operator", "replace", "replace|mask|hash|remove")
	cmd.Flags().StringVar(&flagNewValue, "new-value", "", "replacement for the replace operator (default <ENTITY_TYPE>)")
	cmd.Flags().StringVar(&flagMaskChar, "mask-char", "*", "masking character")
	cmd.Flags().IntVar(&flagCharsToMask, "chars-to-mask", 0, "characters to mask (0 = whole value)")
	cmd.Flags().BoolVar(&flagFromEnd, "from-end", false, "mask trailing characters")
	cmd.Flags().StringVar(&flagSalt, "salt", "", "salt mixed into hash digests")
	cmd.Flags().BoolVar(&flagWrite, "write", false, "rewrite --file in place")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "with --write, only report whether the file would change")
	addAnalysisFlags(cmd)
}

func redactOptions() (redact.Options, error) {
	op, err := redact.ParseOperator(flagOperator)
	if err != nil {
		return redact.Options{}, err
	}
	mc, _ := utf8.DecodeRuneInString(flagMaskChar)
	if mc == utf8.RuneError {
		mc = '*'
	}
	return redact.Options{
		Operator:    op,
		NewValue:    flagNewValue,
		MaskChar:    mc,
		CharsToMask: flagCharsToMask,
		FromEnd:     flagFromEnd,
		Salt:        flagSalt,
	}, nil
}

// rewriter analyzes a text and anonymizes every finding.
func rewriter(ctx context.Context, a *engine.Analyzer, req engine.Request, opts redact.Options) redact.Rewriter {
	return func(text string) (string, error) {
		req.Text = text
		fs, err := a.Analyze(ctx, req)
		if err != nil {
			return "", err
		}
		out, _, err := redact.Anonymize(text, fs, opts)
		return out, err
	}
}

func runRedact(cmd *cobra.Command, args []string) error {
	opts, err := redactOptions()
	if err != nil {
		return err
	}
	rt, err := buildRuntime(fileCfg)
	if err != nil {
		return err
	}
	req := analysisRequest(cmd)
	out := cmd.OutOrStdout()

	if flagWrite {
		if flagFile == "" {
			return errors.New("--write requires --file")
		}
		rw := rewriter(cmd.Context(), rt.analyzer, req, opts)
		if flagDryRun {
			changed, err := redact.WouldChange(flagFile, rw)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(out, "would redact %s\n", flagFile)
			}
			return nil
		}
		changed, err := redact.Apply(flagFile, rw)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(out, "redacted %s\n", flagFile)
		}
		return nil
	}

	text, _, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	req.Text = text
	fs, err := rt.analyzer.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}
	anonymized, items, err := redact.Anonymize(text, fs, opts)
	if err != nil {
		return err
	}
	if flagJSON {
		return report.WriteJSON(out, struct {
			Text  string        `json:"text"`
			Items []redact.Item `json:"items"`
		}{anonymized, items})
	}
	_, err = fmt.Fprint(out, anonymized)
	return err
}
